package storybee

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultBaseUrl       = "https://www.storybee.space/"
	DefaultLegacyBaseUrl = "http://books.storybee.space/books/"
)

var legacyIdRegex = regexp.MustCompile(`/books/([^/?#]+)/`)

// Resolver turns free-form book references into a BookIdentity.
type Resolver struct {
	baseUrl       string
	legacyBaseUrl string
}

func NewResolver(baseUrl, legacyBaseUrl string) Resolver {
	return Resolver{
		baseUrl:       withTrailingSlash(baseUrl),
		legacyBaseUrl: withTrailingSlash(legacyBaseUrl),
	}
}

func withTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func stripScheme(s string) string {
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(s, scheme) {
			return s[len(scheme):]
		}
	}
	return s
}

func (r Resolver) isLegacy(raw string) bool {
	return strings.HasPrefix(stripScheme(raw), stripScheme(r.legacyBaseUrl))
}

// Resolve reads the book id and variant out of `raw`.
//
// References on the legacy host yield the path segment after /books/, which must be
// followed by another slash. Anything else yields its final path segment.
func (r Resolver) Resolve(raw string) (BookIdentity, error) {
	raw = strings.TrimSpace(raw)

	if r.isLegacy(raw) {
		groups := legacyIdRegex.FindStringSubmatch(raw)
		if len(groups) < 2 {
			return BookIdentity{}, fmt.Errorf("%w: %q has no book id after /books/", ErrInvalidReference, raw)
		}
		return BookIdentity{
			Id:           groups[1],
			Variant:      VariantV1,
			DisplayTitle: groups[1],
		}, nil
	}

	trimmed := strings.TrimRight(raw, "/")
	id := trimmed[strings.LastIndex(trimmed, "/")+1:]
	if id == "" {
		return BookIdentity{}, fmt.Errorf("%w: %q is empty", ErrInvalidReference, raw)
	}
	return BookIdentity{
		Id:           id,
		Variant:      VariantV2,
		DisplayTitle: id,
	}, nil
}

// BookUrl returns the page that describes the book's slides.
func (r Resolver) BookUrl(book BookIdentity) string {
	if book.Variant == VariantV1 {
		return r.legacyBaseUrl + book.Id
	}
	return r.baseUrl + book.Id
}
