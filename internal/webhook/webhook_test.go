package webhook

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uploadBody = `{"type":"webhook_event","id":"evt-1","trigger":"FILE.UPLOADED","created_at":"2026-03-01T12:00:00Z","source":{"id":"f1","type":"file","name":"A1111.txt","parent":{"id":"folder-1","type":"folder"}}}`

var deliveredAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func signedHeaders(primary, secondary string, body []byte, ts time.Time) http.Header {
	h := http.Header{}
	stamp := ts.Format(time.RFC3339)
	h.Set(HeaderTimestamp, stamp)
	if primary != "" {
		h.Set(HeaderSignaturePrimary, Sign(primary, body, stamp))
	}
	if secondary != "" {
		h.Set(HeaderSignatureSecondary, Sign(secondary, body, stamp))
	}
	return h
}

func newTestVerifier(t *testing.T, primary, secondary string) *Verifier {
	t.Helper()
	v, err := NewVerifier(primary, secondary)
	require.NoError(t, err)
	v.now = func() time.Time { return deliveredAt.Add(time.Minute) }
	return v
}

func TestVerify(t *testing.T) {
	body := []byte(uploadBody)
	tests := []struct {
		name    string
		headers http.Header
		body    []byte
		wantErr error
	}{
		{"primary", signedHeaders("p-key", "", body, deliveredAt), body, nil},
		{"secondary after rotation", signedHeaders("old-key", "s-key", body, deliveredAt), body, nil},
		{"wrong keys", signedHeaders("x", "y", body, deliveredAt), body, ErrBadSignature},
		{"tampered body", signedHeaders("p-key", "", body, deliveredAt), []byte(`{"trigger":"FILE.DELETED"}`), ErrBadSignature},
		{"expired", signedHeaders("p-key", "", body, deliveredAt.Add(-time.Hour)), body, ErrExpired},
		{"future", signedHeaders("p-key", "", body, deliveredAt.Add(time.Hour)), body, ErrFuture},
		{"just past skew", signedHeaders("p-key", "", body, deliveredAt.Add(2*time.Minute+time.Second)), body, ErrFuture},
		{"within skew", signedHeaders("p-key", "", body, deliveredAt.Add(2*time.Minute)), body, nil},
		{"unsigned", http.Header{HeaderTimestamp: {deliveredAt.Format(time.RFC3339)}}, body, ErrBadSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestVerifier(t, "p-key", "s-key").Verify(tt.headers, tt.body)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerify_BadTimestamp(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderTimestamp, "yesterday")
	err := newTestVerifier(t, "p-key", "").Verify(h, []byte(uploadBody))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timestamp")
}

func TestVerify_MalformedSignature(t *testing.T) {
	h := signedHeaders("", "", nil, deliveredAt)
	h.Set(HeaderSignaturePrimary, "%%%not-base64")
	assert.ErrorIs(t, newTestVerifier(t, "p-key", "").Verify(h, []byte(uploadBody)), ErrBadSignature)
}

func TestNewVerifier_NeedsKey(t *testing.T) {
	_, err := NewVerifier("", "")
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	e, err := Decode([]byte(uploadBody))
	require.NoError(t, err)
	assert.Equal(t, "evt-1", e.ID)
	assert.True(t, e.IsFileUpload())
	assert.Equal(t, "A1111.txt", e.Source.Name)
	require.NotNil(t, e.Source.Parent)
	assert.Equal(t, "folder-1", e.Source.Parent.ID)

	folder, err := Decode([]byte(`{"trigger":"FILE.UPLOADED","source":{"id":"d1","type":"folder"}}`))
	require.NoError(t, err)
	assert.False(t, folder.IsFileUpload())

	_, err = Decode([]byte("{"))
	assert.Error(t, err)
}
