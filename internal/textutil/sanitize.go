package textutil

import "strings"

// fileNameReplacer maps characters that are unsafe in a path segment.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes name usable as a single path segment. Separators,
// colons and asterisks become dashes and the remaining unsafe characters are
// dropped.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// HiddenSibling returns the dot-prefixed name placed next to a project file
// for the given suffix, e.g. ".cut.kdenlive.lock".
func HiddenSibling(base, suffix string) string {
	name := SanitizeFileName(base)
	if name == "" {
		name = "project"
	}
	return "." + name + suffix
}
