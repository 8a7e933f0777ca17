package payment

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

// SignatureHeader carries the webhook signature in the provider's
// "t=<unix>,v1=<hex hmac>" format. The HMAC-SHA256 is computed over
// "<unix>.<raw body>" with the shared webhook secret.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance bounds how stale a signed timestamp may be before the
// event is treated as a replay.
const DefaultTolerance = 5 * time.Minute

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Sign produces a signature header value for payload at the given time.
// Used by the provider; exposed here for tests and local tooling.
func Sign(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", ts, computeHMAC(payload, secret, ts))
}

// VerifySignature checks header against payload and the shared secret.
// Comparison is constant-time; any parse failure, MAC mismatch or
// out-of-tolerance timestamp yields ErrInvalidSignature.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	var ts string
	var macs []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			macs = append(macs, v)
		}
	}
	if ts == "" || len(macs) == 0 {
		return ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	if tolerance > 0 {
		age := time.Since(time.Unix(unix, 0))
		if age > tolerance || age < -tolerance {
			return ErrInvalidSignature
		}
	}

	expected := computeHMAC(payload, secret, ts)
	for _, mac := range macs {
		if hmac.Equal([]byte(mac), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

func computeHMAC(payload []byte, secret, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
