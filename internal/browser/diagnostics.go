package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
)

// CaptureDiagnostics saves a full-page screenshot and the rendered HTML
// for a failed flow and returns the written paths. Best effort: the page
// may already be gone, and a capture failure must never mask the original
// error.
func (s *Session) CaptureDiagnostics(dir, label string) []string {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Error("Failed to create diagnostics dir", "dir", dir, "error", err)
		return nil
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	base := filepath.Join(dir, fmt.Sprintf("%s_%s", label, stamp))
	var saved []string

	shotPath := base + ".png"
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(shotPath),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		s.logger.Warn("Failed to capture screenshot", "label", label, "error", err)
	} else {
		saved = append(saved, shotPath)
	}

	html, err := s.page.Content()
	if err != nil {
		s.logger.Warn("Failed to capture page HTML", "label", label, "error", err)
	} else {
		htmlPath := base + ".html"
		if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
			s.logger.Warn("Failed to write page HTML", "path", htmlPath, "error", err)
		} else {
			saved = append(saved, htmlPath)
		}
	}

	if len(saved) > 0 {
		s.logger.Info("Saved failure diagnostics", "label", label, "files", saved)
	}
	return saved
}
