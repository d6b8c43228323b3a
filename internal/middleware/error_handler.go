package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"tripplan_app_echo/internal/services"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps an error onto an HTTP status and a client-facing message
func StatusFor(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		if msg, ok := he.Message.(string); ok && msg != "" {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	case errors.Is(err, services.ErrPermissionDenied):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "the plan was changed concurrently, please retry"
	case errors.Is(err, services.ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "something went wrong, please try again later"
	}
}

// CustomErrorHandler renders errors as JSON
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, message := StatusFor(err)
	if code >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, ErrorResponse{Error: message})
	}
	if writeErr != nil {
		c.Logger().Error(writeErr)
	}
}
