// Package webhook verifies signed webhook deliveries.
//
// A signature header has the form "t=<unix-timestamp>,v1=<hex-hmac>", where
// the HMAC is SHA-256 over "<timestamp>.<payload>" keyed by the shared secret.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformedHeader = errors.New("webhook: malformed signature header")
	ErrStale           = errors.New("webhook: timestamp outside tolerance")
)

// DefaultTolerance is the replay window callers apply when none is configured.
const DefaultTolerance = 5 * time.Minute

// Header is a parsed signature header.
type Header struct {
	Timestamp string
	Signature string
}

// ParseHeader splits a signature header into its timestamp and v1 signature.
// Fields may appear in either order; unknown keys are ignored.
func ParseHeader(header string) (Header, error) {
	var h Header
	if !strings.Contains(header, ",") {
		return h, ErrMalformedHeader
	}
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return Header{}, ErrMalformedHeader
		}
		switch key {
		case "t":
			h.Timestamp = value
		case "v1":
			h.Signature = value
		}
	}
	if h.Timestamp == "" || h.Signature == "" {
		return Header{}, ErrMalformedHeader
	}
	return h, nil
}

func digest(payload, timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign returns the header value a sender would attach to payload.
func Sign(payload, timestamp, secret string) string {
	return fmt.Sprintf("t=%s,v1=%s", timestamp, digest(payload, timestamp, secret))
}

// Verify reports whether header carries a valid signature of payload under
// secret. It never fails loudly: any malformed input yields false. Freshness
// of the timestamp is not checked here, see CheckFreshness.
func Verify(payload, header, secret string) bool {
	h, err := ParseHeader(header)
	if err != nil {
		return false
	}
	expected := digest(payload, h.Timestamp, secret)
	return hmac.Equal([]byte(expected), []byte(h.Signature))
}

// CheckFreshness rejects headers whose timestamp is further than tolerance
// from now in either direction.
func CheckFreshness(header string, now time.Time, tolerance time.Duration) error {
	h, err := ParseHeader(header)
	if err != nil {
		return err
	}
	ts, err := strconv.ParseInt(h.Timestamp, 10, 64)
	if err != nil {
		return ErrMalformedHeader
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	diff := now.Sub(time.Unix(ts, 0))
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		return ErrStale
	}
	return nil
}
