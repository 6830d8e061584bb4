package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"storybee-crawler/internal/scrapers/storybee"
)

var ErrBookLocked = errors.New("book is being processed by another run")

// Fetcher opens the body of a remote slide image.
type Fetcher interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

type Outcome int

const (
	OutcomeAlreadyPresent Outcome = iota
	OutcomeDownloaded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAlreadyPresent:
		return "already present"
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type SlideOutcome struct {
	Slide   storybee.SlideRef
	Outcome Outcome
	// Bytes is the number of bytes written, 0 unless Outcome is OutcomeDownloaded.
	Bytes int64
	Err   error
}

// Result describes a finished run. NoOp is set when the output document already existed
// and nothing was done.
type Result struct {
	Book       storybee.BookIdentity
	OutputPath string
	NoOp       bool
	Slides     []SlideOutcome
}

func (r Result) Count(outcome Outcome) int {
	n := 0
	for _, s := range r.Slides {
		if s.Outcome == outcome {
			n++
		}
	}
	return n
}

func (r Result) DownloadedBytes() int64 {
	var n int64
	for _, s := range r.Slides {
		n += s.Bytes
	}
	return n
}

// Progress observes a run, Advance is called once per slide after it was handled.
type Progress interface {
	Start(book storybee.BookIdentity, total int)
	Advance(outcome SlideOutcome, done, total int)
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(storybee.BookIdentity, int) {}
func (nopProgress) Advance(SlideOutcome, int, int)   {}
func (nopProgress) Finish()                          {}

type DownloadError struct {
	Slide storybee.SlideRef
	Err   error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %s", e.Slide.Remote, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

type AssemblyError struct {
	OutputPath string
	Err        error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble %s: %s", e.OutputPath, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}
