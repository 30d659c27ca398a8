package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const ballotTokenBytes = 32

// GenerateBallotToken returns a new unguessable, URL-safe ballot token. The
// token is a voter's only credential, so it comes straight from the CSPRNG.
func GenerateBallotToken() (string, error) {
	raw := make([]byte, ballotTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate ballot token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
