package consumer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/go-uuid"
)

// DefaultNonceLength is the length of the nonce generated for each Begin
// call.
const DefaultNonceLength = 12

// StateID derives a session identifier from the base context URL, the
// consumer's seed, and a point in time, by hashing the three through a
// cryptographic digest. The time input is what keeps ids distinct across
// Begin calls that reuse the same seed; callers pass it explicitly so the
// derivation stays deterministic under test.
func StateID(contextURL, seed string, t time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d.%09d", t.Unix(), t.Nanosecond())
	h.Write([]byte(contextURL))
	h.Write([]byte(seed))
	return hex.EncodeToString(h.Sum(nil))
}

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randString generates a random alphanumeric string of length n, suitable
// for seeds and nonces.
func randString(n int) (string, error) {
	b, err := uuid.GenerateRandomBytes(n)
	if err != nil {
		return "", fmt.Errorf("randString: %w", ErrIDGeneratorFailed)
	}
	out := make([]byte, n)
	for i, c := range b {
		out[i] = idCharset[int(c)%len(idCharset)]
	}
	return string(out), nil
}
