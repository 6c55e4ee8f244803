package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"tuition-pricing-service/internal/apperror"
)

var statusByKind = map[apperror.Kind]int{
	apperror.KindValidation: http.StatusBadRequest,
	apperror.KindNotFound:   http.StatusNotFound,
	apperror.KindState:      http.StatusConflict,
	apperror.KindDependency: http.StatusServiceUnavailable,
}

type errorResponse struct {
	Error  string                `json:"error"`
	Kind   apperror.Kind         `json:"kind,omitempty"`
	Fields []apperror.FieldError `json:"fields,omitempty"`
}

// appHTTPErrorHandler maps engine errors onto HTTP statuses. Anything unclassified is a 500.
func appHTTPErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	resp := errorResponse{Error: http.StatusText(http.StatusInternalServerError)}

	var appErr *apperror.Error
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = statusByKind[appErr.Kind]
		resp.Kind = appErr.Kind
		resp.Fields = appErr.Fields
		resp.Error = err.Error()
		if appErr.Kind == apperror.KindDependency {
			logger.Error().Err(err).Msg("Dependency failure")
			// internals of the failing store are not echoed to clients
			resp.Error = appErr.Message
		}
	case errors.As(err, &httpErr):
		if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
			httpErr = herr
		}
		code = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			resp.Error = msg
		} else {
			resp.Error = http.StatusText(code)
		}
	default:
		logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Unhandled error")
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, resp)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Error writing error response")
	}
}
