package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/intakebilling/binder"
	"github.com/dmitrymomot/intakebilling/pkg/logger"
)

// ErrorInfo contains classified error information
type ErrorInfo struct {
	StatusCode int
	Key        string
	LogLevel   slog.Level
}

func isClientError(statusCode int) bool {
	return statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError
}

// determineLogLevel maps HTTP status codes to appropriate log levels
func determineLogLevel(statusCode int) slog.Level {
	if isClientError(statusCode) {
		return slog.LevelWarn
	}
	return slog.LevelError
}

// ClassifyError maps err to a status code and key. Binding failures are
// client errors; anything unrecognised is a 500.
func ClassifyError(err error) ErrorInfo {
	info := ErrorInfo{
		StatusCode: ErrInternalServerError.Code,
		Key:        ErrInternalServerError.Key,
	}

	var httpErr HTTPError
	var validationErr ValidationError
	switch {
	case errors.As(err, &validationErr):
		info.StatusCode = http.StatusBadRequest
		info.Key = "validation_error"
	case errors.As(err, &httpErr):
		info.StatusCode = httpErr.Code
		info.Key = httpErr.Key
	case errors.Is(err, binder.ErrBodyTooLarge):
		info.StatusCode, info.Key = ErrRequestTooLarge.Code, ErrRequestTooLarge.Key
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		info.StatusCode, info.Key = ErrUnsupportedMedia.Code, ErrUnsupportedMedia.Key
	case errors.Is(err, binder.ErrInvalidJSON),
		errors.Is(err, binder.ErrInvalidPath),
		errors.Is(err, binder.ErrInvalidHeader):
		info.StatusCode, info.Key = ErrBadRequest.Code, ErrBadRequest.Key
	}

	info.LogLevel = determineLogLevel(info.StatusCode)
	return info
}

// NewErrorHandler returns an ErrorHandler that logs the error with request
// context and renders it as a JSON error body. Server errors never leak
// their message to the client.
func NewErrorHandler(log *slog.Logger) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		info := ClassifyError(err)
		r := ctx.Request()

		log.LogAttrs(r.Context(), info.LogLevel, "request error",
			logger.RequestID(ctx.RequestID()),
			logger.Error(err),
			slog.Int("status_code", info.StatusCode),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		resp := JSONError(newErrorDetail(err, info), WithJSONStatus(info.StatusCode))
		if renderErr := resp.Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response",
				logger.RequestID(ctx.RequestID()),
				logger.Error(renderErr),
			)
		}
	}
}

// newErrorDetail exposes the message of client errors only. HTTPError
// messages are the status text; validation errors list their fields.
func newErrorDetail(err error, info ErrorInfo) *ErrorDetail {
	detail := &ErrorDetail{Code: info.Key, Message: http.StatusText(info.StatusCode)}

	var validationErr ValidationError
	var httpErr HTTPError
	switch {
	case errors.As(err, &validationErr):
		detail.Message = validationErr.Error()
		detail.Details = map[string][]string(validationErr)
	case isClientError(info.StatusCode) && !errors.As(err, &httpErr):
		detail.Message = err.Error()
	}
	return detail
}
