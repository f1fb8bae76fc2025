package router

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"userhub/internal/auth"
	"userhub/internal/config"
	"userhub/internal/handler"
	"userhub/internal/logging"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Logger      *slog.Logger
	JWTService  *auth.JWTService
	UserHandler *handler.UserHandler
	AuthHandler *handler.AuthHandler
	// Exit terminates the process after an escaped panic. Defaults to os.Exit.
	Exit func(code int)
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, deps Deps) {
	exit := deps.Exit
	if exit == nil {
		exit = os.Exit
	}

	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger(deps.Logger))
	e.Use(FailFast(deps.Logger, exit))

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")
	requireAuth := auth.Middleware(deps.JWTService)

	// Public routes
	api.POST("/register", deps.AuthHandler.Register)
	api.POST("/login", deps.AuthHandler.Login)

	// Secured routes (require JWT authentication)
	api.GET("/me", deps.AuthHandler.Me, requireAuth)

	users := api.Group("/users")
	if cfg.UsersRequireAuth {
		users.Use(requireAuth)
	}
	users.GET("", deps.UserHandler.ListUsers)
	users.POST("", deps.UserHandler.CreateUser)
	users.GET("/:id", deps.UserHandler.GetUser)
	users.PUT("/:id", deps.UserHandler.UpdateUser)
	users.DELETE("/:id", deps.UserHandler.DeleteUser)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
