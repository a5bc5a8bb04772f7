// Package webhook verifies and decodes Box webhook deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Delivery headers set by Box.
const (
	HeaderTimestamp          = "Box-Delivery-Timestamp"
	HeaderSignaturePrimary   = "Box-Signature-Primary"
	HeaderSignatureSecondary = "Box-Signature-Secondary"
	HeaderDeliveryID         = "Box-Delivery-Id"
)

// TriggerFileUploaded fires when a file lands in a watched folder, for
// example through a file request.
const TriggerFileUploaded = "FILE.UPLOADED"

// MaxAge is how old a delivery timestamp may be before it is rejected as a
// replay.
const MaxAge = 10 * time.Minute

// MaxSkew is how far ahead of the local clock a delivery timestamp may be.
const MaxSkew = time.Minute

var (
	// ErrBadSignature is returned when neither signature matches.
	ErrBadSignature = eris.New("webhook: signature mismatch")
	// ErrExpired is returned for deliveries older than MaxAge.
	ErrExpired = eris.New("webhook: delivery expired")
	// ErrFuture is returned for deliveries stamped more than MaxSkew ahead.
	ErrFuture = eris.New("webhook: delivery timestamp in the future")
)

// Event is the subset of a webhook payload boxflow acts on.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Trigger   string    `json:"trigger"`
	CreatedAt time.Time `json:"created_at"`
	Source    Source    `json:"source"`
}

// Source is the item that triggered the event.
type Source struct {
	ID     string     `json:"id"`
	Type   string     `json:"type"`
	Name   string     `json:"name"`
	Parent *SourceRef `json:"parent,omitempty"`
}

// SourceRef is a mini folder reference.
type SourceRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// IsFileUpload reports whether e is a file upload.
func (e Event) IsFileUpload() bool {
	return e.Trigger == TriggerFileUploaded && e.Source.Type == "file" && e.Source.ID != ""
}

// Verifier checks delivery signatures against the primary and secondary
// keys. Either key may be empty, but not both.
type Verifier struct {
	primary   []byte
	secondary []byte
	now       func() time.Time
}

// NewVerifier returns a Verifier for the two signature keys.
func NewVerifier(primaryKey, secondaryKey string) (*Verifier, error) {
	if primaryKey == "" && secondaryKey == "" {
		return nil, eris.New("webhook: at least one signature key is required")
	}
	return &Verifier{primary: []byte(primaryKey), secondary: []byte(secondaryKey), now: time.Now}, nil
}

// Verify checks the timestamp and signatures of a delivery. Box signs the
// raw body followed by the timestamp header value.
func (v *Verifier) Verify(h http.Header, body []byte) error {
	ts := h.Get(HeaderTimestamp)
	delivered, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return eris.Wrapf(err, "webhook: bad delivery timestamp %q", ts)
	}
	if v.now().Sub(delivered) > MaxAge {
		return eris.Wrapf(ErrExpired, "delivered %s", ts)
	}
	if delivered.Sub(v.now()) > MaxSkew {
		return eris.Wrapf(ErrFuture, "delivered %s", ts)
	}

	if matches(v.primary, body, ts, h.Get(HeaderSignaturePrimary)) ||
		matches(v.secondary, body, ts, h.Get(HeaderSignatureSecondary)) {
		return nil
	}
	return ErrBadSignature
}

// Sign returns the base64 signature Box would send for body and timestamp
// under key.
func Sign(key string, body []byte, timestamp string) string {
	return base64.StdEncoding.EncodeToString(mac([]byte(key), body, timestamp))
}

// Decode parses a delivery body.
func Decode(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, eris.Wrap(err, "webhook: decode event")
	}
	return e, nil
}

func matches(key, body []byte, ts, sig string) bool {
	if len(key) == 0 || sig == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	return hmac.Equal(got, mac(key, body, ts))
}

func mac(key, body []byte, ts string) []byte {
	m := hmac.New(sha256.New, key)
	m.Write(body)
	m.Write([]byte(ts))
	return m.Sum(nil)
}
