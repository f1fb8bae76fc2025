package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"userhub/internal/errors"
)

// respondError converts a service error into an echo HTTP error carrying the
// standard error body. Unexpected errors keep their cause for the request log.
func respondError(err error) *echo.HTTPError {
	httpErr := errors.MapErrorToHTTP(err)
	he := echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	if httpErr.StatusCode >= http.StatusInternalServerError {
		he.SetInternal(err)
	}
	return he
}

func invalidRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: msg,
		Code:  errors.CodeInvalidRequest,
	})
}

// bindAndValidate decodes the request body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return invalidRequest("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return invalidRequest(err.Error())
	}
	return nil
}
