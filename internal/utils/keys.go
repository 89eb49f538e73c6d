package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateIV returns a random hex-encoded initialisation vector of n bytes.
func GenerateIV(n int) (string, error) {
	return randomHex(n)
}

// GenerateState returns an unguessable value for an OAuth2 state parameter.
func GenerateState() (string, error) {
	return randomHex(32)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateKeyIdentifier returns a label for a file key in the format
// key-XXXX-XXXX-XXXX.
func GenerateKeyIdentifier() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("key-%s-%s-%s",
		raw[0:4],
		raw[4:8],
		raw[8:12],
	)
}
