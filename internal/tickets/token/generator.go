package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// ErrGeneratorUnavailable is returned when the randomness source cannot
// produce a token.
var ErrGeneratorUnavailable = errors.New("token generator unavailable")

// Generator produces random version 4 UUID tokens (122 random bits).
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewGeneratorFromReader lets callers supply the entropy source.
func NewGeneratorFromReader(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate returns a new token in canonical UUID form.
func (g *Generator) Generate() (string, error) {
	id, err := uuid.NewRandomFromReader(g.rand)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	}
	return id.String(), nil
}
