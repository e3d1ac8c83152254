package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	invitationTTL    = 14 * 24 * time.Hour
	resetPasswordTTL = 6 * time.Hour
)

// newToken returns a raw token for an email link and the hash that is stored.
func newToken(now time.Time) (string, string, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", "", err
	}
	raw := id.String()
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
