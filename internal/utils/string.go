package utils

import (
	"strings"
	"unicode/utf8"
)

// Tokens lowercases s and splits it on whitespace.
// Datum values and query fragments go through the same tokenizer.
func Tokens(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// RuneLen counts characters, not bytes, so "é" is one character of a fragment.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
