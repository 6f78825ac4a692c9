package util

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	maxFileNameRunes = 128
	fallbackFileName = "upload"
)

var dotRun = regexp.MustCompile(`\.{2,}`)

// SanitizeFileName flattens name into a single safe path segment: separators
// become '_', runs of dots collapse to '_', control characters are dropped
// and the length is capped while keeping the extension. It never fails; an
// empty result becomes "upload".
func SanitizeFileName(name string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(name))
	s = dotRun.ReplaceAllString(s, "_")
	if s == "" || s == "." {
		return fallbackFileName
	}
	runes := []rune(s)
	if len(runes) > maxFileNameRunes {
		ext := []rune(extension(s))
		if len(ext) >= maxFileNameRunes {
			ext = nil
		}
		runes = append(runes[:maxFileNameRunes-len(ext)], ext...)
	}
	return string(runes)
}

func extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	return name[i:]
}
