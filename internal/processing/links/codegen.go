package links

import (
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

const (
	base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	DefaultCodeLength = 6
)

// Seed is the input material a short code is derived from.
type Seed struct {
	URL   string
	Owner uuid.UUID
	At    time.Time
}

// HashCodeGenerator derives codes from a SHA-256 digest of the seed and the
// attempt number. The same seed and attempt always yield the same code.
type HashCodeGenerator struct {
	length int
}

func NewHashCodeGenerator(length int) *HashCodeGenerator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	return &HashCodeGenerator{length: length}
}

func (g *HashCodeGenerator) Length() int { return g.length }

func (g *HashCodeGenerator) Generate(seed Seed, attempt int) string {
	material := make([]byte, 0, len(seed.URL)+1+len(seed.Owner)+16)
	material = append(material, seed.URL...)
	material = append(material, 0)
	material = append(material, seed.Owner[:]...)
	material = binary.BigEndian.AppendUint64(material, uint64(seed.At.UnixNano()))
	material = binary.BigEndian.AppendUint64(material, uint64(attempt))

	out := make([]byte, 0, g.length)
	for block := uint32(0); len(out) < g.length; block++ {
		digest := sha256.Sum256(binary.BigEndian.AppendUint32(material, block))
		for _, b := range digest {
			if len(out) == g.length {
				break
			}
			out = append(out, base62Alphabet[int(b)%len(base62Alphabet)])
		}
	}
	return string(out)
}
