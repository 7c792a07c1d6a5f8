package ui

import "regexp"

// stripANSI removes ANSI escape sequences for plain-text comparison.
var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string { return ansiRe.ReplaceAllString(s, "") }
