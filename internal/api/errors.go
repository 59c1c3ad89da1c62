package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"contact-sync/backend/internal/apperr"
	"contact-sync/backend/internal/logging"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// requestError attaches the public message a handler wants shown when the
// cause carries none of its own.
type requestError struct {
	fallback string
	err      error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// fail wraps err with the message used for store and internal failures,
// e.g. "Failed to import contacts".
func fail(err error, fallback string) error {
	return &requestError{fallback: fallback, err: err}
}

// ErrorHandler converts handler errors into the uniform {error} body.
func ErrorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, message := classify(err)
		req := c.Request()
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", "method", req.Method, "path", req.URL.Path, "status", status, "error", err)
		} else {
			logger.Debug("Request rejected", "method", req.Method, "path", req.URL.Path, "status", status, "error", err)
		}

		var writeErr error
		if req.Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, ErrorResponse{Error: message})
		}
		if writeErr != nil {
			logger.Error("Failed to write error response", "error", writeErr)
		}
	}
}

// classify picks the status code and public message for err. Store and
// internal failures never expose their cause.
func classify(err error) (int, string) {
	fallback := http.StatusText(http.StatusInternalServerError)
	var re *requestError
	if errors.As(err, &re) {
		fallback = re.fallback
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		kind := ae.Kind
		if kind == apperr.KindStore || kind == apperr.KindInternal {
			return apperr.Status(kind), fallback
		}
		return apperr.Status(kind), apperr.MessageOf(err, fallback)
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message)
	}
	return http.StatusInternalServerError, fallback
}
