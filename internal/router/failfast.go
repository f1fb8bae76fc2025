package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"userhub/internal/errors"
)

// FailFast recovers a panic escaping a handler, logs it with its stack and
// terminates the process through exit. The process is not trusted to keep
// serving after an unexpected panic; a supervisor is expected to restart it.
func FailFast(logger *slog.Logger, exit func(code int)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				logger.Error("panic escaped handler, terminating",
					"panic", fmt.Sprint(r),
					"method", c.Request().Method,
					"uri", c.Request().RequestURI,
					"stack", string(debug.Stack()),
				)
				exit(1)

				// only reached when exit does not terminate
				err = echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
					Error: "internal server error",
					Code:  errors.CodeInternal,
				})
			}()
			return next(c)
		}
	}
}
