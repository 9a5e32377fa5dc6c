package browser

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/config"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/fx"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Manager owns the single browser process. Delivery flows get isolated
// browser contexts from it, so a wedged flow can never poison another
// account's cookies.
type Manager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	config  *config.Config
	logger  logger.Logger
}

type Opts struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Logger logger.Logger
}

func NewManager(opts Opts) (*Manager, error) {
	log := opts.Logger.WithComponent("Browser")
	log.Info("Initializing browser manager...")

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Config.Browser.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--disable-dev-shm-usage", // Important in Docker/container
			"--disable-accelerated-2d-canvas",
			"--no-first-run",
			"--no-zygote",
			"--disable-gpu",
			"--lang=en-US",
		},
	}
	if opts.Config.Browser.ChromePath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.Config.Browser.ChromePath)
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	manager := &Manager{
		pw:      pw,
		browser: browser,
		config:  opts.Config,
		logger:  log,
	}

	opts.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down browser...")
			if err := manager.browser.Close(); err != nil {
				log.Error("Failed to close browser", "error", err)
			}
			if err := manager.pw.Stop(); err != nil {
				log.Error("Failed to stop playwright", "error", err)
				return err
			}
			log.Info("Browser stopped successfully.")
			return nil
		},
	})

	log.Info("Browser manager initialized successfully.")
	return manager, nil
}

type SessionOpts struct {
	UserAgent string
	Cookies   []domain.SessionCookie
}

// NewSession opens a fresh browser context with the account's cookies
// installed before the first navigation, so the site never sees a
// logged-out request. The caller must Close the session; Close is safe
// regardless of how far the flow got.
func (m *Manager) NewSession(ctx context.Context, opts SessionOpts) (*Session, error) {
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	brContext, err := m.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(ua),
		Viewport:  &playwright.Size{Width: 1280, Height: 900},
	})
	if err != nil {
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}

	cleanup := func() {
		if err := brContext.Close(); err != nil {
			m.logger.Warn("Failed to close browser context", "error", err)
		}
		debug.FreeOSMemory()
	}

	if len(opts.Cookies) > 0 {
		if err := brContext.AddCookies(toPlaywrightCookies(opts.Cookies)); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to install session cookies: %w", err)
		}
	}

	page, err := brContext.NewPage()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("could not create new page: %w", err)
	}

	return &Session{
		page:    page,
		logger:  m.logger,
		cleanup: cleanup,
	}, nil
}

func toPlaywrightCookies(cookies []domain.SessionCookie) []playwright.OptionalCookie {
	now := time.Now()
	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		// Replaying an already-expired cookie buys nothing; the session
		// check downstream reports the expiry far more clearly.
		if exp := c.ExpiresAt(); !exp.IsZero() && exp.Before(now) {
			continue
		}

		path := c.Path
		if path == "" {
			path = "/"
		}
		pc := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   playwright.String(c.Domain),
			Path:     playwright.String(path),
			HttpOnly: playwright.Bool(c.HTTPOnly),
			Secure:   playwright.Bool(c.Secure),
		}
		if c.Expires > 0 {
			pc.Expires = playwright.Float(c.Expires)
		}
		out = append(out, pc)
	}
	return out
}
