package pipeline

import "strings"

var titleReplacer = strings.NewReplacer(
	"/", "",
	"\\", "",
	":", "",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeTitle removes the characters that cannot appear in a file name on common
// filesystems, an empty result falls back to `fallback`.
func SanitizeTitle(title, fallback string) string {
	sanitized := strings.TrimSpace(titleReplacer.Replace(title))
	sanitized = strings.Trim(sanitized, ".")
	if sanitized == "" {
		return fallback
	}
	return sanitized
}
