package application

import (
	"fmt"

	"github.com/oksasatya/reach-identity/pkg/helpers"
)

// CodeGenerator issues verification codes at sign-up.
type CodeGenerator interface {
	Generate() (string, error)
}

// RandomCodeGenerator issues crypto-random numeric codes of a fixed length.
type RandomCodeGenerator struct {
	Length int
}

func NewRandomCodeGenerator(length int) RandomCodeGenerator {
	if length < 4 {
		length = 6
	}
	return RandomCodeGenerator{Length: length}
}

func (g RandomCodeGenerator) Generate() (string, error) {
	return helpers.GenNumericCode(g.Length)
}

// FixedCodeGenerator always issues the same code. Test and demo environments only.
type FixedCodeGenerator struct {
	Code string
}

func (g FixedCodeGenerator) Generate() (string, error) {
	if g.Code == "" {
		return "", fmt.Errorf("fixed verification code not configured")
	}
	return g.Code, nil
}

// NewCodeGenerator picks a generator from the configured mode.
func NewCodeGenerator(mode string, length int, fixed string) (CodeGenerator, error) {
	switch mode {
	case "", "random":
		return NewRandomCodeGenerator(length), nil
	case "fixed":
		return FixedCodeGenerator{Code: fixed}, nil
	default:
		return nil, fmt.Errorf("unknown verification code mode %q", mode)
	}
}
