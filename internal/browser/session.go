package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/orgball2608/social-poster-telegram-bot/internal/selector"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
	"github.com/playwright-community/playwright-go"
)

const (
	defaultStepTimeout = 15 * time.Second
	probeFloor         = 250 * time.Millisecond
)

// Session is one live page inside an account-scoped browser context. All
// waits derive their budget from the caller's context deadline, so an
// attempt timeout cuts every step short.
type Session struct {
	page    playwright.Page
	logger  logger.Logger
	cleanup func()
}

// Close tears down the browser context. Safe to call more than once.
func (s *Session) Close() {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

// Navigate loads the URL and lets redirects settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout: s.stepTimeout(ctx, 60*time.Second),
	})
	if err != nil {
		return fmt.Errorf("could not goto page '%s': %w", url, err)
	}
	return nil
}

// Location reports the page URL after any redirects.
func (s *Session) Location() string {
	return s.page.URL()
}

// PageText returns the page's visible text, used for marker checks.
func (s *Session) PageText(ctx context.Context) (string, error) {
	text, err := s.page.InnerText("body", playwright.PageInnerTextOptions{
		Timeout: s.stepTimeout(ctx, defaultStepTimeout),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read page text: %w", err)
	}
	return text, nil
}

// Probe implements selector.Prober: it succeeds once an element matching
// the strategy is attached to the DOM. Attached rather than visible, since
// both upload dialogs hide their file inputs.
func (s *Session) Probe(ctx context.Context, strat selector.Strategy) error {
	sel, err := toPlaywrightSelector(strat)
	if err != nil {
		return err
	}
	_, err = s.page.WaitForSelector(sel, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: s.stepTimeout(ctx, defaultStepTimeout),
	})
	return err
}

// Click waits for the element and clicks it.
func (s *Session) Click(ctx context.Context, strat selector.Strategy) error {
	sel, err := toPlaywrightSelector(strat)
	if err != nil {
		return err
	}
	err = s.page.Click(sel, playwright.PageClickOptions{
		Timeout: s.stepTimeout(ctx, defaultStepTimeout),
	})
	if err != nil {
		return fmt.Errorf("failed to click %s: %w", strat, err)
	}
	return nil
}

// Upload attaches a local file to a file input.
func (s *Session) Upload(ctx context.Context, strat selector.Strategy, path string) error {
	sel, err := toPlaywrightSelector(strat)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read media file: %w", err)
	}

	file := playwright.InputFile{
		Name:     filepath.Base(path),
		MimeType: mimeFor(path),
		Buffer:   data,
	}
	err = s.page.SetInputFiles(sel, []playwright.InputFile{file}, playwright.FrameSetInputFilesOptions{
		Timeout: s.stepTimeout(ctx, defaultStepTimeout),
	})
	if err != nil {
		return fmt.Errorf("failed to attach file to %s: %w", strat, err)
	}
	return nil
}

// stepTimeout converts the context deadline into a playwright timeout,
// capped at def so a generous attempt budget does not turn every wait
// into an eight-minute stall.
func (s *Session) stepTimeout(ctx context.Context, def time.Duration) *float64 {
	d := def
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining < probeFloor {
			remaining = probeFloor
		}
		if remaining < d {
			d = remaining
		}
	}
	return playwright.Float(float64(d.Milliseconds()))
}

// toPlaywrightSelector translates a locator strategy into a playwright
// selector string.
func toPlaywrightSelector(strat selector.Strategy) (string, error) {
	switch strat.Kind {
	case selector.KindCSS:
		return strat.Value, nil
	case selector.KindAttr:
		name, value, found := strings.Cut(strat.Value, "=")
		if !found {
			return fmt.Sprintf("[%s]", name), nil
		}
		return fmt.Sprintf(`[%s=%q]`, name, value), nil
	case selector.KindText:
		return "text=" + strat.Value, nil
	case selector.KindXPath:
		return "xpath=" + strat.Value, nil
	}
	return "", fmt.Errorf("unknown strategy kind %q", strat.Kind)
}

func mimeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	}
	return "application/octet-stream"
}
