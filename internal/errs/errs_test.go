package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(New(KindNotFound, "order %s not found", "X-1")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindInternal, KindOf(nil))

	wrapped := fmt.Errorf("outer: %w", New(KindProviderUnavailable, "siteb is down"))
	assert.Equal(t, KindProviderUnavailable, KindOf(wrapped), "kind survives wrapping")
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindProviderUnavailable, cause, "quote request failed")

	assert.True(t, IsKind(err, KindProviderUnavailable))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindValidation))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindInsufficientStock))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(KindNotFound))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(KindProviderUnavailable))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindInternal))
}

func TestMessage_NeverLeaksInternals(t *testing.T) {
	assert.Equal(t, "quote request failed", Message(Wrap(KindProviderUnavailable, errors.New("dial tcp: refused"), "quote request failed")))
	assert.Equal(t, "internal error", Message(errors.New("sql: driver panic at 0x1f")))
}
