// Package cryptox provides the small crypto surface the gateway needs:
// opaque random tokens for session and challenge ids, and authenticated
// encryption for credentials at rest.
package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize96 provides 96 bits of entropy; used for short-lived
	// challenge temp ids.
	TokenSize96 = 12
	// TokenSize128 provides 128 bits of entropy; used for session ids.
	TokenSize128 = 16
)

// GenerateToken creates a cryptographically secure random token of the
// given byte length, returned base64url-encoded without padding.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MustGenerateToken is like GenerateToken but panics on error. The only
// failure mode is a broken system RNG, which is unrecoverable anyway.
func MustGenerateToken(size int) string {
	token, err := GenerateToken(size)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to generate token: %v", err))
	}
	return token
}
