package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/orgball2608/social-poster-telegram-bot/internal/selector"
	"github.com/playwright-community/playwright-go"
)

// Pause sleeps for a random duration in [min, max), honoring ctx.
func (s *Session) Pause(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Linger behaves like a person scanning the page: a beat of stillness,
// some mouse drift, a partial scroll. Flows call it between steps so the
// event timeline never looks machine-stamped.
func (s *Session) Linger(ctx context.Context) error {
	if err := s.Pause(ctx, 600*time.Millisecond, 1800*time.Millisecond); err != nil {
		return err
	}
	if err := s.MoveMouse(ctx); err != nil {
		return err
	}
	if err := s.ScrollBy(120 + rand.Intn(360)); err != nil {
		return err
	}
	return s.Pause(ctx, 300*time.Millisecond, 900*time.Millisecond)
}

// TypeHuman clicks the element and types the text with a per-keystroke
// delay instead of pasting it in one DOM write.
func (s *Session) TypeHuman(ctx context.Context, strat selector.Strategy, text string) error {
	sel, err := toPlaywrightSelector(strat)
	if err != nil {
		return err
	}
	if err := s.Click(ctx, strat); err != nil {
		return err
	}
	err = s.page.Type(sel, text, playwright.PageTypeOptions{
		Delay:   playwright.Float(float64(60 + rand.Intn(80))),
		Timeout: s.stepTimeout(ctx, time.Minute),
	})
	if err != nil {
		return fmt.Errorf("failed to type into %s: %w", strat, err)
	}
	return nil
}

// ScrollBy scrolls the viewport down by px.
func (s *Session) ScrollBy(px int) error {
	if _, err := s.page.Evaluate(fmt.Sprintf(`window.scrollBy(0, %d)`, px)); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

// MoveMouse drifts the cursor through a few random points in the viewport.
func (s *Session) MoveMouse(ctx context.Context) error {
	moves := 2 + rand.Intn(3)
	for i := 0; i < moves; i++ {
		x := float64(100 + rand.Intn(1000))
		y := float64(80 + rand.Intn(700))
		if err := s.page.Mouse().Move(x, y); err != nil {
			return fmt.Errorf("failed to move mouse: %w", err)
		}
		if err := s.Pause(ctx, 60*time.Millisecond, 240*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}
