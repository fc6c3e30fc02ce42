package binder_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/intakebilling/binder"
)

type checkoutBody struct {
	IntakeID string `json:"intakeId"`
	Plan     string `json:"plan"`
	Currency string `json:"currency"`
}

func jsonRequest(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/checkout/start", bytes.NewBufferString(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestBindJSON(t *testing.T) {
	t.Parallel()

	t.Run("valid body", func(t *testing.T) {
		t.Parallel()
		var got checkoutBody
		err := binder.BindJSON()(jsonRequest(`{"intakeId":"abc","plan":"starter","currency":"USD"}`, "application/json"), &got)
		require.NoError(t, err)
		assert.Equal(t, checkoutBody{IntakeID: "abc", Plan: "starter", Currency: "USD"}, got)
	})

	t.Run("content type with parameters", func(t *testing.T) {
		t.Parallel()
		var got checkoutBody
		err := binder.BindJSON()(jsonRequest(`{"plan":"growth"}`, "application/json; charset=utf-8"), &got)
		require.NoError(t, err)
		assert.Equal(t, "growth", got.Plan)
	})

	t.Run("missing content type", func(t *testing.T) {
		t.Parallel()
		var got checkoutBody
		err := binder.BindJSON()(jsonRequest(`{"plan":"growth"}`, ""), &got)
		assert.ErrorIs(t, err, binder.ErrMissingContentType)
	})

	t.Run("wrong content type", func(t *testing.T) {
		t.Parallel()
		var got checkoutBody
		err := binder.BindJSON()(jsonRequest(`plan=growth`, "application/x-www-form-urlencoded"), &got)
		assert.ErrorIs(t, err, binder.ErrUnsupportedMediaType)
		assert.Contains(t, err.Error(), "got application/x-www-form-urlencoded")
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()
		var got checkoutBody
		err := binder.BindJSON()(jsonRequest("", "application/json"), &got)
		assert.ErrorIs(t, err, binder.ErrInvalidJSON)
		assert.Contains(t, err.Error(), "empty body")
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()
		var got checkoutBody
		err := binder.BindJSON()(jsonRequest(`{"plan":`, "application/json"), &got)
		assert.ErrorIs(t, err, binder.ErrInvalidJSON)
	})

	t.Run("type mismatch", func(t *testing.T) {
		t.Parallel()
		var got checkoutBody
		err := binder.BindJSON()(jsonRequest(`{"plan":42}`, "application/json"), &got)
		assert.ErrorIs(t, err, binder.ErrInvalidJSON)
		assert.Contains(t, err.Error(), "cannot unmarshal")
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		t.Parallel()
		var got checkoutBody
		err := binder.BindJSON()(jsonRequest(`{"plan":"starter","coupon":"FREE"}`, "application/json"), &got)
		assert.ErrorIs(t, err, binder.ErrInvalidJSON)
		assert.Contains(t, err.Error(), "unknown")
	})

	t.Run("trailing data rejected", func(t *testing.T) {
		t.Parallel()
		var got checkoutBody
		err := binder.BindJSON()(jsonRequest(`{"plan":"starter"}{"plan":"scale"}`, "application/json"), &got)
		assert.ErrorIs(t, err, binder.ErrInvalidJSON)
		assert.Contains(t, err.Error(), "unexpected data after JSON object")
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		t.Parallel()
		var got checkoutBody
		body := `{"plan":"` + strings.Repeat("a", binder.DefaultMaxBodySize) + `"}`
		err := binder.BindJSON()(jsonRequest(body, "application/json"), &got)
		assert.ErrorIs(t, err, binder.ErrBodyTooLarge)
	})
}
