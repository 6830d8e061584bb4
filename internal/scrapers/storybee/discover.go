package storybee

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"storybee-crawler/internal/assert"
	"storybee-crawler/internal/telemetry"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_discoverer_gallery       = "discoverer.gallery"
	report_discoverer_viewer_config = "discoverer.viewer-config"
)

const DefaultSlideUrlTemplate = "http://books.storybee.space/books/%s/files/large/"

var configScriptRegex = regexp.MustCompile(`config\.js`)

// PageFetcher fetches auxiliary documents referenced by a book page.
type PageFetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Discoverer finds the ordered slides of a book page.
type Discoverer struct {
	fetch            PageFetcher
	slideUrlTemplate string
	tel              telemetry.API
}

// NewDiscoverer creates a Discoverer, slideUrlTemplate is a format string that receives the
// book id and yields the directory the viewer serves full size pages from.
func NewDiscoverer(fetch PageFetcher, slideUrlTemplate string, tel telemetry.API) Discoverer {
	assert.NotNil(fetch)
	assert.NotNil(tel)
	if slideUrlTemplate == "" {
		slideUrlTemplate = DefaultSlideUrlTemplate
	}
	return Discoverer{
		fetch:            fetch,
		slideUrlTemplate: slideUrlTemplate,
		tel:              telemetry.NewScopedAPI("storybee_discoverer", tel),
	}
}

// Discover reads the slides out of `page`, the body of `pageUrl`.
//
// Inline gallery markup is used when present, otherwise the flipbook viewer's config script
// is fetched and read. The returned book carries the viewer's title when it has one.
func (d Discoverer) Discover(ctx context.Context, page []byte, pageUrl string, book BookIdentity) (Discovery, error) {
	base, err := url.Parse(pageUrl)
	if err != nil {
		return Discovery{}, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return Discovery{}, fmt.Errorf("parse book page: %w", err)
	}

	slides := d.gallerySlides(doc, base)
	if len(slides) > 0 {
		return Discovery{
			Slides:   uniqueLocalNames(slides),
			Book:     book,
			Strategy: StrategyGallery,
		}, nil
	}

	slides, title, err := d.viewerSlides(ctx, doc, base, book)
	if err != nil {
		return Discovery{}, err
	}
	if title != "" {
		book.DisplayTitle = title
	}
	return Discovery{
		Slides:   uniqueLocalNames(slides),
		Book:     book,
		Strategy: StrategyViewerConfig,
	}, nil
}

func (d Discoverer) gallerySlides(doc *goquery.Document, base *url.URL) []SlideRef {
	var slides []SlideRef
	doc.Find("figure.gallery-slideshow-item").Each(func(i int, item *goquery.Selection) {
		img := item.Find("img").First()
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			src = strings.TrimSpace(img.AttrOr("data-src", ""))
		}
		if src == "" {
			d.tel.ReportWarning(report_discoverer_gallery, fmt.Errorf("slide %d has no image source", i))
			return
		}

		remote, err := base.Parse(src)
		if err != nil {
			d.tel.ReportWarning(report_discoverer_gallery, fmt.Errorf("slide %d: parse image url: %w", i, err), src)
			return
		}
		name := path.Base(remote.Path)
		if name == "." || name == "/" {
			d.tel.ReportWarning(report_discoverer_gallery, fmt.Errorf("slide %d: image url has no file name", i), src)
			return
		}

		slides = append(slides, SlideRef{
			Remote:    remote.String(),
			LocalName: name,
		})
	})
	return slides
}

func (d Discoverer) viewerSlides(ctx context.Context, doc *goquery.Document, base *url.URL, book BookIdentity) ([]SlideRef, string, error) {
	var src string
	doc.Find("script[src]").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		candidate := script.AttrOr("src", "")
		if configScriptRegex.MatchString(candidate) {
			src = candidate
			return false
		}
		return true
	})
	if src == "" {
		return nil, "", fmt.Errorf("%w: no gallery items or viewer config script on %s", ErrNoSlidesFound, base)
	}
	_, token, _ := strings.Cut(src, "?")

	// script sources are relative to the book "directory"
	dir := *base
	if !strings.HasSuffix(dir.Path, "/") {
		dir.Path += "/"
	}
	scriptUrl, err := dir.Parse(src)
	if err != nil {
		return nil, "", fmt.Errorf("%w: viewer config script url %q: %w", ErrConfigParse, src, err)
	}

	d.tel.ReportDebug("fetch viewer config", scriptUrl.String())
	script, err := d.fetch.Get(ctx, scriptUrl.String())
	if err != nil {
		d.tel.ReportBroken(report_discoverer_viewer_config, fmt.Errorf("fetch: %w", err), scriptUrl.String())
		return nil, "", fmt.Errorf("fetch viewer config: %w", err)
	}

	names, title, err := parseViewerConfig(script)
	if err != nil {
		d.tel.ReportBroken(report_discoverer_viewer_config, err, scriptUrl.String())
		return nil, "", err
	}
	if len(names) == 0 {
		return nil, "", fmt.Errorf("%w: viewer config of %s lists no pages", ErrNoSlidesFound, book.Id)
	}

	prefix := fmt.Sprintf(d.slideUrlTemplate, book.Id)
	slides := make([]SlideRef, len(names))
	for i, name := range names {
		remote := prefix + name
		if token != "" {
			remote += "?" + token
		}
		slides[i] = SlideRef{
			Remote:    remote,
			LocalName: path.Base(name),
		}
	}
	return slides, title, nil
}

// uniqueLocalNames suffixes repeated local names with -2, -3, ... before the extension so
// that no slide overwrites another on disk.
func uniqueLocalNames(slides []SlideRef) []SlideRef {
	taken := make(map[string]bool, len(slides))
	for _, slide := range slides {
		taken[slide.LocalName] = true
	}

	seen := make(map[string]bool, len(slides))
	for i, slide := range slides {
		if !seen[slide.LocalName] {
			seen[slide.LocalName] = true
			continue
		}
		ext := path.Ext(slide.LocalName)
		stem := strings.TrimSuffix(slide.LocalName, ext)
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
			if !taken[candidate] && !seen[candidate] {
				slides[i].LocalName = candidate
				seen[candidate] = true
				break
			}
		}
	}
	return slides
}
