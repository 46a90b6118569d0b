// Package topic renders MQTT topic names from a base topic and an
// event-type suffix.
package topic

import "strings"

// Separator is the MQTT topic level separator.
const Separator = "/"

// Render joins base and ext with exactly one separator.
//
// One trailing separator is stripped from base, and a separator is
// inserted unless ext already starts with one:
//
//	Render("a/", "b")  == "a/b"
//	Render("a", "/b")  == "a/b"
//	Render("a", "b")   == "a/b"
//
// Both arguments are expected to be non-empty; callers validate them.
func Render(base, ext string) string {
	t := strings.TrimSuffix(base, Separator)

	if !strings.HasPrefix(ext, Separator) {
		t += Separator
	}

	return t + ext
}
