package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"storybee-crawler/internal/scrapers/storybee"
)

// download stores a slide under dir unless a file with its local name is already there.
// The body is written to a hidden temporary file that is only renamed into place once
// complete.
func (p *Pipeline) download(ctx context.Context, slide storybee.SlideRef, dir string) SlideOutcome {
	dest := filepath.Join(dir, slide.LocalName)

	_, err := os.Stat(dest)
	if err == nil {
		return SlideOutcome{Slide: slide, Outcome: OutcomeAlreadyPresent}
	}
	if !errors.Is(err, os.ErrNotExist) {
		return failed(slide, fmt.Errorf("stat: %w", err))
	}

	body, err := p.fetch.Open(ctx, slide.Remote)
	if err != nil {
		return failed(slide, err)
	}
	defer body.Close()

	tmp, err := os.CreateTemp(dir, "."+slide.LocalName+".*.part")
	if err != nil {
		return failed(slide, fmt.Errorf("create temp file: %w", err))
	}
	written, err := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dest)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return failed(slide, fmt.Errorf("write %s: %w", dest, err))
	}

	return SlideOutcome{
		Slide:   slide,
		Outcome: OutcomeDownloaded,
		Bytes:   written,
	}
}

func failed(slide storybee.SlideRef, err error) SlideOutcome {
	return SlideOutcome{
		Slide:   slide,
		Outcome: OutcomeFailed,
		Err:     &DownloadError{Slide: slide, Err: err},
	}
}
