package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm/hxnav"
	"github.com/pthm/hxnav/lib/browser"
)

type browseOptions struct {
	Scrolls int
	Clicks  []string
	Back    bool
	HTML    bool
	Timeout time.Duration
}

func newBrowseCommand(opts *rootOptions) *cobra.Command {
	bo := &browseOptions{}

	cmd := &cobra.Command{
		Use:   "browse <url>",
		Short: "Load a page headlessly with the engine running",
		Long: `Load a page in the headless browser with the engine started on every
document load, then click elements, scroll to the end of the page and go
back in the given order. Prints a summary of the final page, or its HTML.`,
		Example: `  hxnav browse http://127.0.0.1:8080/ --scroll 3
  hxnav browse http://127.0.0.1:8080/ --click "#video-1 a" --back --html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd.Context(), opts, bo, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&bo.Scrolls, "scroll", 0, "scroll to the end of the page this many times")
	cmd.Flags().StringArrayVar(&bo.Clicks, "click", nil, "click the first element matching a selector (repeatable)")
	cmd.Flags().BoolVar(&bo.Back, "back", false, "go back one entry at the end")
	cmd.Flags().BoolVar(&bo.HTML, "html", false, "print the final document instead of a summary")
	cmd.Flags().DurationVar(&bo.Timeout, "timeout", 30*time.Second, "overall time limit")

	return cmd
}

func runBrowse(ctx context.Context, opts *rootOptions, bo *browseOptions, rawURL string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, bo.Timeout)
	defer cancel()

	var errs []error
	s := browser.New(
		browser.WithConfig(opts.config.Browser),
		browser.WithLogger(opts.log),
		browser.WithScript(hxnav.Script(
			hxnav.WithConfig(opts.config.Engine),
			hxnav.WithLogger(opts.log),
			hxnav.WithErrorHandler(func(err error) {
				opts.log.Error("engine error", "err", err)
				errs = append(errs, err)
			}),
		)),
	)
	defer s.Close()

	if err := s.Open(ctx, rawURL); err != nil {
		return err
	}
	for _, sel := range bo.Clicks {
		if err := s.Click(sel); err != nil {
			return err
		}
		if err := s.Settle(ctx); err != nil {
			return err
		}
	}
	for range bo.Scrolls {
		s.ScrollToEnd()
		if err := s.Settle(ctx); err != nil {
			return err
		}
	}
	if bo.Back {
		s.Back()
		if err := s.Settle(ctx); err != nil {
			return err
		}
	}

	if bo.HTML {
		_, err := io.WriteString(out, s.Doc().HTML())
		return err
	}
	return printSummary(out, s, len(errs))
}

func printSummary(out io.Writer, s *browser.Session, errCount int) error {
	boosted, _ := s.Doc().QuerySelectorAll(nil, `[boost="true"]`)
	sentinels, _ := s.Doc().QuerySelectorAll(nil, "[infinite-scroll]")

	_, err := fmt.Fprintf(out, `title:       %s
url:         %s
history:     %d/%d
loads:       %d
submissions: %d
boosted:     %d
sentinels:   %d
errors:      %d
`,
		s.Title(),
		s.Location(),
		s.Entries().Index()+1, s.Entries().Len(),
		len(s.Navigations()),
		len(s.Submissions()),
		len(boosted),
		len(sentinels),
		errCount,
	)
	return err
}
