package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"storybee-crawler/internal/assert"
	"storybee-crawler/internal/scrapers/storybee"
	"storybee-crawler/internal/telemetry"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_pipeline_run      = "pipeline.run"
	report_pipeline_download = "pipeline.download"
	report_pipeline_assemble = "pipeline.assemble"
)

var meter = otel.Meter("storybee-crawler/pipeline")

var (
	downloadedCounter, _ = meter.Int64Counter("storybee.slides.downloaded")
	skippedCounter, _    = meter.Int64Counter("storybee.slides.skipped")
	bytesCounter, _      = meter.Int64Counter("storybee.slides.bytes", metric.WithUnit("By"))
)

type Options struct {
	// SourceDir holds one working directory of slide images per book id.
	SourceDir string
	// OutputDir holds the assembled documents.
	OutputDir string
}

// Pipeline downloads the slides of a book and assembles them into a pdf.
type Pipeline struct {
	fetch Fetcher
	opts  Options
	tel   telemetry.API
}

func New(fetch Fetcher, opts Options, tel telemetry.API) *Pipeline {
	assert.NotNil(fetch)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.SourceDir)
	assert.NotEmptyStr(opts.OutputDir)

	return &Pipeline{
		fetch: fetch,
		opts:  opts,
		tel:   telemetry.NewScopedAPI("pipeline", tel),
	}
}

// OutputPath is where the document of the book is written.
func (p *Pipeline) OutputPath(book storybee.BookIdentity) string {
	return filepath.Join(p.opts.OutputDir, SanitizeTitle(book.DisplayTitle, book.Id)+".pdf")
}

// WorkDir is the directory the slide images of the book are kept in.
func (p *Pipeline) WorkDir(book storybee.BookIdentity) string {
	return filepath.Join(p.opts.SourceDir, SanitizeTitle(book.Id, "_"))
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Run downloads every slide that is not yet in the book's working directory and then
// assembles all of them, in order, into the book's output document.
//
// If the output document already exists nothing is fetched or written and the result is
// marked NoOp. Slides downloaded before a failure stay on disk for the next run.
func (p *Pipeline) Run(ctx context.Context, discovery storybee.Discovery, progress Progress) (Result, error) {
	if progress == nil {
		progress = nopProgress{}
	}
	book := discovery.Book
	result := Result{
		Book:       book,
		OutputPath: p.OutputPath(book),
	}

	done, err := exists(result.OutputPath)
	if err != nil {
		return result, err
	}
	if done {
		p.tel.ReportDebug("output already exists", result.OutputPath)
		result.NoOp = true
		return result, nil
	}

	if len(discovery.Slides) == 0 {
		return result, fmt.Errorf("%w: %s", storybee.ErrNoSlidesFound, book.Id)
	}

	workDir := p.WorkDir(book)
	err = os.MkdirAll(workDir, 0755)
	if err != nil {
		return result, fmt.Errorf("create working directory: %w", err)
	}
	err = os.MkdirAll(p.opts.OutputDir, 0755)
	if err != nil {
		return result, fmt.Errorf("create output directory: %w", err)
	}

	lock := flock.New(filepath.Join(workDir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return result, fmt.Errorf("acquire book lock: %w", err)
	}
	if !locked {
		return result, fmt.Errorf("%w: %s", ErrBookLocked, book.Id)
	}
	defer func() {
		err := lock.Unlock()
		if err != nil {
			p.tel.ReportWarning(report_pipeline_run, fmt.Errorf("release book lock: %w", err), book.Id)
		}
	}()

	// another run may have finished the book while we waited for the lock
	done, err = exists(result.OutputPath)
	if err != nil {
		return result, err
	}
	if done {
		result.NoOp = true
		return result, nil
	}

	attrs := metric.WithAttributes(attribute.String("book", book.Id))
	total := len(discovery.Slides)
	images := make([]string, 0, total)

	progress.Start(book, total)
	defer progress.Finish()

	for i, slide := range discovery.Slides {
		err := ctx.Err()
		if err != nil {
			return result, err
		}

		outcome := p.download(ctx, slide, workDir)
		result.Slides = append(result.Slides, outcome)
		progress.Advance(outcome, i+1, total)

		switch outcome.Outcome {
		case OutcomeAlreadyPresent:
			skippedCounter.Add(ctx, 1, attrs)
		case OutcomeDownloaded:
			downloadedCounter.Add(ctx, 1, attrs)
			bytesCounter.Add(ctx, outcome.Bytes, attrs)
		case OutcomeFailed:
			p.tel.ReportWarning(report_pipeline_download, outcome.Err, book.Id)
			return result, outcome.Err
		}
		images = append(images, filepath.Join(workDir, slide.LocalName))
	}

	p.tel.ReportDebug("assembling document", result.OutputPath, len(images))
	err = assemble(images, result.OutputPath)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_assemble, err, book.Id)
		return result, err
	}
	return result, nil
}
