package security

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/baechuer/silverback/internal/domain"
)

// RandomTokens produces the opaque tokens used for password reset,
// invitation and refresh.
type RandomTokens struct {
	size int
}

func NewRandomTokens(size int) *RandomTokens {
	if size < 16 {
		size = 32
	}
	return &RandomTokens{size: size}
}

// NewToken returns size random bytes, hex encoded.
func (g *RandomTokens) NewToken() (string, error) {
	b := make([]byte, g.size)
	if _, err := rand.Read(b); err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	return hex.EncodeToString(b), nil
}
