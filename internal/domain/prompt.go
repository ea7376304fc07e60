package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxPromptLength bounds prompt text accepted at intake, in runes.
const MaxPromptLength = 2000

// NormalizePrompt trims surrounding whitespace and converts the prompt to
// Unicode NFC so composed and decomposed input are stored identically.
func NormalizePrompt(prompt string) string {
	return norm.NFC.String(strings.TrimSpace(prompt))
}
