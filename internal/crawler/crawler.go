package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"storybee-crawler/internal/assert"
	"storybee-crawler/internal/catalog"
	"storybee-crawler/internal/pipeline"
	"storybee-crawler/internal/scrapers/storybee"
	"storybee-crawler/internal/telemetry"
)

const (
	report_crawler_process_book = "crawler.process-book"
	report_crawler_catalog      = "crawler.catalog"
)

// Session is the http session every request of a run goes through.
type Session interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

type Options struct {
	BaseUrl          string
	LegacyBaseUrl    string
	SlideUrlTemplate string
	CatalogCacheFile string
	SourceDir        string
	OutputDir        string
}

type Crawler struct {
	session    Session
	resolver   storybee.Resolver
	discoverer storybee.Discoverer
	pipeline   *pipeline.Pipeline
	opts       Options
	tel        telemetry.API
}

func New(session Session, opts Options, tel telemetry.API) *Crawler {
	assert.NotNil(session)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)
	assert.NotEmptyStr(opts.LegacyBaseUrl)

	return &Crawler{
		session:    session,
		resolver:   storybee.NewResolver(opts.BaseUrl, opts.LegacyBaseUrl),
		discoverer: storybee.NewDiscoverer(session, opts.SlideUrlTemplate, tel),
		pipeline: pipeline.New(session, pipeline.Options{
			SourceDir: opts.SourceDir,
			OutputDir: opts.OutputDir,
		}, tel),
		opts: opts,
		tel:  telemetry.NewScopedAPI("crawler", tel),
	}
}

type BookResult struct {
	Reference string
	Discovery storybee.Discovery
	Run       pipeline.Result
}

// ProcessBook resolves the reference, discovers the book's slides and runs the pipeline
// over them.
func (c *Crawler) ProcessBook(ctx context.Context, reference string, progress pipeline.Progress) (BookResult, error) {
	result := BookResult{Reference: reference}

	book, err := c.resolver.Resolve(reference)
	if err != nil {
		return result, err
	}
	result.Discovery.Book = book

	pageUrl := c.resolver.BookUrl(book)
	c.tel.ReportDebug("fetch book page", book.Id, book.Variant.String(), pageUrl)
	page, err := c.session.Get(ctx, pageUrl)
	if err != nil {
		c.tel.ReportWarning(report_crawler_process_book, fmt.Errorf("fetch book page: %w", err), reference)
		return result, fmt.Errorf("fetch book page: %w", err)
	}

	discovery, err := c.discoverer.Discover(ctx, page, pageUrl, book)
	if err != nil {
		c.tel.ReportWarning(report_crawler_process_book, fmt.Errorf("discover: %w", err), reference)
		return result, fmt.Errorf("discover %s: %w", book.Id, err)
	}
	result.Discovery = discovery
	c.tel.ReportDebug(
		"discovered slides",
		discovery.Book.Id,
		discovery.Book.DisplayTitle,
		discovery.Strategy.String(),
		len(discovery.Slides),
	)

	run, err := c.pipeline.Run(ctx, discovery, progress)
	result.Run = run
	if err != nil {
		return result, fmt.Errorf("process %s: %w", book.Id, err)
	}
	return result, nil
}

type CatalogResult struct {
	Categories []storybee.Category
	// Added is the number of urls that were not in the catalog cache yet.
	Added int
	Books []BookResult
}

// Catalog refreshes the catalog cache from the landing page. When fetch is set, every book
// listed under a category whose title contains filter is processed. Books that fail do not
// stop the crawl, their errors are joined into the returned error.
func (c *Crawler) Catalog(ctx context.Context, fetch bool, filter string, progress pipeline.Progress) (CatalogResult, error) {
	var result CatalogResult

	page, err := c.session.Get(ctx, c.opts.BaseUrl)
	if err != nil {
		c.tel.ReportWarning(report_crawler_catalog, fmt.Errorf("fetch landing page: %w", err))
		return result, fmt.Errorf("fetch landing page: %w", err)
	}
	categories, err := storybee.ParseCatalog(page, c.opts.BaseUrl)
	if err != nil {
		c.tel.ReportBroken(report_crawler_catalog, err)
		return result, err
	}
	result.Categories = categories
	c.tel.ReportCount(report_crawler_catalog, int64(len(categories)))

	if c.opts.CatalogCacheFile != "" {
		cache, err := catalog.Load(c.opts.CatalogCacheFile)
		if err != nil {
			return result, err
		}
		result.Added = cache.Merge(categories)
		err = cache.Save(c.opts.CatalogCacheFile)
		if err != nil {
			c.tel.ReportBroken(report_crawler_catalog, err, c.opts.CatalogCacheFile)
			return result, err
		}
	}

	if !fetch {
		return result, nil
	}

	var errlist []error
	for _, category := range categories {
		if !category.Matches(filter) {
			continue
		}
		for _, bookUrl := range category.BookUrls {
			if ctx.Err() != nil {
				errlist = append(errlist, ctx.Err())
				return result, errors.Join(errlist...)
			}

			book, err := c.ProcessBook(ctx, bookUrl, progress)
			result.Books = append(result.Books, book)
			if err != nil {
				c.tel.ReportWarning(report_crawler_catalog, err, category.Title, bookUrl)
				errlist = append(errlist, fmt.Errorf("%s: %w", bookUrl, err))
			}
		}
	}
	return result, errors.Join(errlist...)
}
