package browser

import (
	"testing"
	"time"

	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/internal/selector"
)

func TestToPlaywrightSelector(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		strat   selector.Strategy
		want    string
		wantErr bool
	}{
		{
			name:  "css passes through",
			strat: selector.Strategy{Kind: selector.KindCSS, Value: `input[type="file"]`},
			want:  `input[type="file"]`,
		},
		{
			name:  "attr pair becomes attribute selector",
			strat: selector.Strategy{Kind: selector.KindAttr, Value: "aria-label=New post"},
			want:  `[aria-label="New post"]`,
		},
		{
			name:  "bare attr matches presence",
			strat: selector.Strategy{Kind: selector.KindAttr, Value: "contenteditable"},
			want:  "[contenteditable]",
		},
		{
			name:  "text uses the text engine",
			strat: selector.Strategy{Kind: selector.KindText, Value: "Share"},
			want:  "text=Share",
		},
		{
			name:  "xpath is prefixed",
			strat: selector.Strategy{Kind: selector.KindXPath, Value: `//div[@role="button"]`},
			want:  `xpath=//div[@role="button"]`,
		},
		{
			name:    "unknown kind errors",
			strat:   selector.Strategy{Kind: "regex", Value: ".*"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toPlaywrightSelector(tt.strat)
			if tt.wantErr {
				if err == nil {
					t.Fatal("toPlaywrightSelector() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("toPlaywrightSelector() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("toPlaywrightSelector() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToPlaywrightCookiesDropsExpired(t *testing.T) {
	t.Parallel()

	now := float64(time.Now().Unix())
	cookies := []domain.SessionCookie{
		{Name: "sessionid", Value: "live", Domain: ".instagram.com", Expires: now + 3600},
		{Name: "stale", Value: "dead", Domain: ".instagram.com", Expires: now - 3600},
		{Name: "csrftoken", Value: "keep", Domain: ".instagram.com"},
	}

	got := toPlaywrightCookies(cookies)
	if len(got) != 2 {
		t.Fatalf("toPlaywrightCookies() kept %d cookies, want 2", len(got))
	}
	for _, c := range got {
		if c.Name == "stale" {
			t.Error("expired cookie survived conversion")
		}
	}
	if got[1].Name != "csrftoken" {
		t.Errorf("session cookie without expiry = %q, want csrftoken", got[1].Name)
	}
	if *got[0].Path != "/" {
		t.Errorf("empty path defaulted to %q, want /", *got[0].Path)
	}
}

func TestMimeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"/media/cat.jpg", "image/jpeg"},
		{"/media/cat.JPEG", "image/jpeg"},
		{"/media/dog.png", "image/png"},
		{"/media/clip.mp4", "video/mp4"},
		{"/media/unknown.xyz", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := mimeFor(tt.path); got != tt.want {
			t.Errorf("mimeFor(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
