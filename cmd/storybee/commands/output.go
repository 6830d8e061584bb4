package commands

import (
	"fmt"
	"os"
	"storybee-crawler/internal/crawler"
	"storybee-crawler/internal/pipeline"
	"storybee-crawler/internal/scrapers/storybee"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/schollz/progressbar/v3"
)

// barProgress draws a terminal progress bar per book.
type barProgress struct {
	bar   *progressbar.ProgressBar
	done  int
	total int
}

func newBarProgress() *barProgress {
	return &barProgress{}
}

func (p *barProgress) Start(book storybee.BookIdentity, total int) {
	p.done = 0
	p.total = total
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(book.DisplayTitle),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

func (p *barProgress) Advance(_ pipeline.SlideOutcome, done, total int) {
	p.done = done
	p.bar.Set(done)
}

func (p *barProgress) Finish() {
	if p.bar == nil {
		return
	}
	if p.done < p.total {
		// leave the bar where the run stopped
		fmt.Fprintln(os.Stderr)
		return
	}
	p.bar.Finish()
}

func printBookSummary(result crawler.BookResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Book", result.Discovery.Book.DisplayTitle})

	run := result.Run
	t.AppendRows([]table.Row{
		{"Id", result.Discovery.Book.Id},
		{"Variant", result.Discovery.Book.Variant.String()},
		{"Discovery", result.Discovery.Strategy.String()},
		{"Slides", len(result.Discovery.Slides)},
	})
	if run.NoOp {
		t.AppendRow(table.Row{"Status", "already exists"})
	} else {
		t.AppendRows([]table.Row{
			{"Downloaded", run.Count(pipeline.OutcomeDownloaded)},
			{"Already present", run.Count(pipeline.OutcomeAlreadyPresent)},
			{"Failed", run.Count(pipeline.OutcomeFailed)},
			{"Bytes", humanize.Bytes(uint64(run.DownloadedBytes()))},
		})
	}
	if run.OutputPath != "" {
		t.AppendRow(table.Row{"Output", run.OutputPath})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func printCatalogSummary(result crawler.CatalogResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Category", "Books"})
	for _, category := range result.Categories {
		t.AppendRow(table.Row{category.Title, len(category.BookUrls)})
	}
	t.AppendFooter(table.Row{"New urls", result.Added})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
