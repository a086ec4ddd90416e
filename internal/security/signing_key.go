package security

import (
	"crypto/sha256"
	"errors"
	"os"
	"strings"
	"sync"
)

const jwtSecretEnv = "JWT_SECRET"

var (
	signingKeyOnce sync.Once
	signingKey     []byte
	signingKeyErr  error
)

// SigningKey derives the HMAC key for session tokens from JWT_SECRET.
func SigningKey() ([]byte, error) {
	signingKeyOnce.Do(func() {
		raw := strings.TrimSpace(os.Getenv(jwtSecretEnv))
		if raw == "" {
			signingKeyErr = errors.New("token signing secret not set: " + jwtSecretEnv)
			return
		}
		sum := sha256.Sum256([]byte(raw))
		signingKey = sum[:]
	})
	return signingKey, signingKeyErr
}

// ResetSigningKeyForTests allows tests to reinitialise the key with a different env.
func ResetSigningKeyForTests() {
	signingKeyOnce = sync.Once{}
	signingKey = nil
	signingKeyErr = nil
}
