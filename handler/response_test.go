package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/intakebilling/binder"
	"github.com/dmitrymomot/intakebilling/handler"
	"github.com/dmitrymomot/intakebilling/pkg/requestid"
)

func render(t *testing.T, resp handler.Response) (*httptest.ResponseRecorder, handler.JSONResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	require.NoError(t, resp.Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))

	var body handler.JSONResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("wraps data", func(t *testing.T) {
		t.Parallel()
		w, body := render(t, handler.JSON(map[string]string{"status": "pending"}))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, map[string]any{"status": "pending"}, body.Data)
		assert.Nil(t, body.Error)
	})

	t.Run("custom status", func(t *testing.T) {
		t.Parallel()
		w, body := render(t, handler.JSON("ok", handler.WithJSONStatus(http.StatusCreated)))
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		assert.Nil(t, body.Meta)
	})

	t.Run("error value renders as error", func(t *testing.T) {
		t.Parallel()
		w, body := render(t, handler.JSON(handler.ErrNotFound))
		assert.Equal(t, http.StatusNotFound, w.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, "not_found", body.Error.Code)
	})
}

func TestJSONError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKey  string
		wantMsg  string
	}{
		{"http error", handler.NewHTTPError(http.StatusConflict, "already_subscribed"), http.StatusConflict, "already_subscribed", "Conflict"},
		{"wrapped http error", errors.Join(errors.New("intake has sub_1"), handler.ErrConflict), http.StatusConflict, "conflict", "Conflict"},
		{"bad json", binder.ErrInvalidJSON, http.StatusBadRequest, "bad_request", "invalid JSON"},
		{"wrong media type", binder.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported media type"},
		{"body too large", binder.ErrBodyTooLarge, http.StatusRequestEntityTooLarge, "request_entity_too_large", "request body too large"},
		{"internal error hides message", errors.New("pq: password authentication failed"), http.StatusInternalServerError, "internal_server_error", "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w, body := render(t, handler.JSONError(tt.err))
			assert.Equal(t, tt.wantCode, w.Code)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantKey, body.Error.Code)
			assert.Equal(t, tt.wantMsg, body.Error.Message)
			assert.Nil(t, body.Data)
		})
	}

	t.Run("validation error carries details", func(t *testing.T) {
		t.Parallel()
		verr := handler.NewValidationError()
		verr.Add("plan", "is required")

		w, body := render(t, handler.JSONError(verr))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, "validation_error", body.Error.Code)
		assert.Equal(t, []string{"is required"}, body.Error.Details["plan"])
	})

	t.Run("error detail with status option", func(t *testing.T) {
		t.Parallel()
		w, body := render(t, handler.JSONError(&handler.ErrorDetail{Code: "custom"}, handler.WithJSONStatus(http.StatusTeapot)))
		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Equal(t, "custom", body.Error.Code)
	})
}

func TestJSONErrorRequestID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/intakes/x/status", nil)
	req = req.WithContext(requestid.WithContext(req.Context(), "req-42"))

	w := httptest.NewRecorder()
	require.NoError(t, handler.JSONError(handler.ErrNotFound).Render(w, req))
	var body handler.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "req-42", body.Meta["request_id"])

	w = httptest.NewRecorder()
	require.NoError(t, handler.JSON("ok").Render(w, req))
	body = handler.JSONResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Nil(t, body.Meta)
}
