package utils

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// NormalizeText lowercases text and keeps only its word tokens, space separated.
func NormalizeText(text string) string {
	return strings.Join(wordPattern.FindAllString(strings.ToLower(text), -1), " ")
}
