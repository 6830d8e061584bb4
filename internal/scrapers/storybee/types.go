package storybee

import "fmt"

// Variant is the site presentation a book is served with, it decides the book page url.
type Variant int

const (
	// VariantV1 is the legacy books.storybee.space flipbook host.
	VariantV1 Variant = iota + 1
	// VariantV2 is the main site.
	VariantV2
)

func (v Variant) String() string {
	switch v {
	case VariantV1:
		return "v1"
	case VariantV2:
		return "v2"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// BookIdentity identifies a book on the site. Id is the url key of the book and never changes,
// DisplayTitle starts out as Id and is replaced once by discovery when the viewer config carries a title.
type BookIdentity struct {
	Id           string
	Variant      Variant
	DisplayTitle string
}

// SlideRef is one page image of a book, the order of a []SlideRef is the page order.
type SlideRef struct {
	// Remote is the absolute url of the image.
	Remote string
	// LocalName is the file name the image is stored under in the book's working directory,
	// it is unique within a book.
	LocalName string
}

// Strategy is the way slides were discovered on a book page.
type Strategy int

const (
	StrategyNone Strategy = iota
	// StrategyGallery reads inline gallery slideshow markup.
	StrategyGallery
	// StrategyViewerConfig reads the flipbook viewer's embedded json config script.
	StrategyViewerConfig
)

func (s Strategy) String() string {
	switch s {
	case StrategyGallery:
		return "gallery"
	case StrategyViewerConfig:
		return "viewer-config"
	default:
		return "none"
	}
}

// Discovery is the result of slide discovery.
type Discovery struct {
	Slides   []SlideRef
	Book     BookIdentity
	Strategy Strategy
}
