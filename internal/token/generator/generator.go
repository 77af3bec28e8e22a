// Package generator draws onboarding token strings from a CSPRNG.
package generator

import (
	"crypto/rand"
	"fmt"
	"io"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// rejectAbove is the largest multiple of len(alphabet) that fits in a byte.
// Bytes at or above it are redrawn so every character is equally likely.
const rejectAbove = 256 - 256%len(alphabet)

// Random produces tokens of a fixed length over [A-Za-z0-9].
type Random struct {
	length int
	src    io.Reader
}

func New(length int) *Random {
	return &Random{length: length, src: rand.Reader}
}

// NewWithSource is New reading entropy from src.
func NewWithSource(length int, src io.Reader) *Random {
	return &Random{length: length, src: src}
}

func (g *Random) Generate() (string, error) {
	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length+g.length/4)
	for len(out) < g.length {
		if _, err := io.ReadFull(g.src, buf); err != nil {
			return "", fmt.Errorf("read entropy: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == g.length {
				break
			}
		}
	}
	return string(out), nil
}
