package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("HTTP %d", int(s)) }
func (s statusErr) HTTPStatus() int { return int(s) }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"explicit transient", NewTransientError(errors.New("x"), 503), true},
		{"wrapped transient", eris.Wrap(NewTransientError(errors.New("x"), 0), "ctx"), true},
		{"vendor 429", statusErr(429), true},
		{"vendor 503 wrapped", eris.Wrap(statusErr(503), "box: get"), true},
		{"vendor 404", statusErr(404), false},
		{"vendor 409", eris.Wrap(statusErr(409), "box: create"), false},
		{"net timeout", &net.DNSError{Err: "timeout", IsTimeout: true}, true},
		{"conn reset", fmt.Errorf("dial: %w", syscall.ECONNRESET), true},
		{"broken pipe text", errors.New("write: broken pipe"), true},
		{"context cancelled", context.Canceled, false},
		{"circuit open", eris.Wrapf(ErrCircuitOpen, "service %s", "box"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 409, 501} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	te := NewTransientError(inner, 502)
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "inner", te.Error())
	assert.Equal(t, 502, te.StatusCode)
}
