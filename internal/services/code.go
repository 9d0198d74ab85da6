package services

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
	"strconv"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// CodeGenerator produces 6-digit one-time codes.
type CodeGenerator interface {
	Generate() string
}

// RandomCodeGenerator draws codes uniformly from [100000, 999999].
type RandomCodeGenerator struct{}

// NewCodeGenerator returns a RandomCodeGenerator.
func NewCodeGenerator() RandomCodeGenerator {
	return RandomCodeGenerator{}
}

// Generate returns a code from crypto/rand, falling back to math/rand if the
// system source fails.
func (RandomCodeGenerator) Generate() string {
	span := int64(codeMax - codeMin + 1)
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return strconv.FormatInt(codeMin+mrand.Int63n(span), 10)
	}
	return strconv.FormatInt(codeMin+n.Int64(), 10)
}
