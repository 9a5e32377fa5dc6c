package publisherimpl

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/internal/publisher"
	"github.com/orgball2608/social-poster-telegram-bot/internal/ratelimit"
	"github.com/orgball2608/social-poster-telegram-bot/internal/selector"
	"github.com/orgball2608/social-poster-telegram-bot/internal/vault"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/config"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/retry"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any)           {}
func (nopLogger) Info(msg string, args ...any)            {}
func (nopLogger) Warn(msg string, args ...any)            {}
func (nopLogger) Error(msg string, args ...any)           {}
func (nopLogger) WithComponent(name string) logger.Logger { return nopLogger{} }

type fakeStorage struct {
	path  string
	fails int
	calls int
}

func (f *fakeStorage) EnsureLocal(ctx context.Context, mediaRef string) (string, error) {
	f.calls++
	if f.calls <= f.fails {
		return "", errors.New("download stalled")
	}
	return f.path, nil
}

func testPublisher(t *testing.T, deliver deliverFunc) (*PublisherImpl, *vault.Vault) {
	t.Helper()

	v, err := vault.NewWithSecret(t.TempDir(), "test-secret", nopLogger{})
	if err != nil {
		t.Fatalf("NewWithSecret() error = %v", err)
	}

	cfg := &config.Config{}
	cfg.Instagram.Engine = "browser"

	p := &PublisherImpl{
		config:  cfg,
		logger:  nopLogger{},
		vault:   v,
		storage: &fakeStorage{path: "/tmp/media.jpg"},
		limiter: ratelimit.NewInMemoryLimiter(100, time.Second, 100),
		deliver: deliver,
		retryCfg: retry.Config{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2,
		},
	}
	return p, v
}

func storeSession(t *testing.T, v *vault.Vault, platform domain.Platform) {
	t.Helper()
	payload := []byte(`{"username":"alice","cookies":[{"name":"sessionid","value":"abc","domain":".instagram.com"}]}`)
	if err := v.Store(platform, 42, "main", payload); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
}

func testRequest() publisher.Request {
	return publisher.Request{
		Platform: domain.PlatformInstagram,
		UserID:   42,
		Nickname: "main",
		MediaRef: "media.jpg",
		Caption:  "hello",
	}
}

func TestPublishMissingCredentialsFailsFast(t *testing.T) {
	t.Parallel()

	calls := 0
	p, _ := testPublisher(t, func(ctx context.Context, req publisher.Request, session *domain.SessionPayload, mediaPath string) (*publisher.Result, error) {
		calls++
		return &publisher.Result{}, nil
	})

	_, err := p.Publish(context.Background(), testRequest())
	var credErr *vault.CredentialError
	if !errors.As(err, &credErr) || credErr.Reason != vault.ReasonMissing {
		t.Fatalf("Publish() error = %v, want missing CredentialError", err)
	}
	if calls != 0 {
		t.Errorf("deliver called %d times, want 0 (no transport attempts without credentials)", calls)
	}
}

func TestPublishMalformedSessionPayload(t *testing.T) {
	t.Parallel()

	p, v := testPublisher(t, func(ctx context.Context, req publisher.Request, session *domain.SessionPayload, mediaPath string) (*publisher.Result, error) {
		t.Fatal("deliver must not run with an unusable session")
		return nil, nil
	})
	if err := v.Store(domain.PlatformInstagram, 42, "main", []byte("not-json")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	_, err := p.Publish(context.Background(), testRequest())
	var credErr *vault.CredentialError
	if !errors.As(err, &credErr) || credErr.Reason != vault.ReasonDecryptFailed {
		t.Fatalf("Publish() error = %v, want decrypt-failed CredentialError", err)
	}
}

func TestPublishRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	p, v := testPublisher(t, func(ctx context.Context, req publisher.Request, session *domain.SessionPayload, mediaPath string) (*publisher.Result, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("navigation flaked")
		}
		return &publisher.Result{Platform: req.Platform}, nil
	})
	storeSession(t, v, domain.PlatformInstagram)

	res, err := p.Publish(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if res.Platform != domain.PlatformInstagram {
		t.Errorf("Result.Platform = %v, want instagram", res.Platform)
	}
	if calls != 3 {
		t.Errorf("deliver called %d times, want 3", calls)
	}
}

func TestPublishExhaustsTransportAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	p, v := testPublisher(t, func(ctx context.Context, req publisher.Request, session *domain.SessionPayload, mediaPath string) (*publisher.Result, error) {
		calls++
		return nil, errors.New("still flaking")
	})
	storeSession(t, v, domain.PlatformInstagram)

	if _, err := p.Publish(context.Background(), testRequest()); err == nil {
		t.Fatal("Publish() error = nil, want transport exhaustion error")
	}
	if calls != 3 {
		t.Errorf("deliver called %d times, want 3 (initial + 2 retries)", calls)
	}
}

func TestPublishPermanentErrorsStopRetrying(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{
			name: "bot detection",
			err:  &publisher.BotDetectionError{Platform: domain.PlatformInstagram, Marker: "confirm it's you"},
		},
		{
			name: "session expired",
			err:  &publisher.SessionExpiredError{Platform: domain.PlatformInstagram, Location: "https://www.instagram.com/accounts/login/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			p, v := testPublisher(t, func(ctx context.Context, req publisher.Request, session *domain.SessionPayload, mediaPath string) (*publisher.Result, error) {
				calls++
				return nil, tt.err
			})
			storeSession(t, v, domain.PlatformInstagram)

			_, err := p.Publish(context.Background(), testRequest())
			if !errors.Is(err, tt.err) {
				t.Fatalf("Publish() error = %v, want %v", err, tt.err)
			}
			if calls != 1 {
				t.Errorf("deliver called %d times, want 1 (no retry on permanent error)", calls)
			}
		})
	}
}

func TestPublishRetriesMediaLocalization(t *testing.T) {
	t.Parallel()

	delivered := 0
	p, v := testPublisher(t, func(ctx context.Context, req publisher.Request, session *domain.SessionPayload, mediaPath string) (*publisher.Result, error) {
		delivered++
		if mediaPath != "/tmp/media.jpg" {
			t.Errorf("mediaPath = %q, want /tmp/media.jpg", mediaPath)
		}
		return &publisher.Result{Platform: req.Platform}, nil
	})
	p.storage = &fakeStorage{path: "/tmp/media.jpg", fails: 2}
	storeSession(t, v, domain.PlatformInstagram)

	if _, err := p.Publish(context.Background(), testRequest()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if delivered != 1 {
		t.Errorf("deliver called %d times, want 1", delivered)
	}
}

func TestIsPermanentClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain network error", errors.New("socket reset"), false},
		{"missing credentials", &vault.CredentialError{Reason: vault.ReasonMissing}, true},
		{"wrapped credential error", fmt.Errorf("instagram: %w", &vault.CredentialError{Reason: vault.ReasonDecryptFailed}), true},
		{"bot challenge", &publisher.BotDetectionError{Platform: domain.PlatformTiktok, Marker: "security check"}, true},
		{"session expired", &publisher.SessionExpiredError{Platform: domain.PlatformInstagram, Location: "/accounts/login"}, true},
		// Selector exhaustion stays in the transport retry loop: a slow
		// page often renders the element on the next attempt.
		{"selector exhaustion", &selector.ElementNotFoundError{Platform: domain.PlatformInstagram, Action: "publish"}, false},
	}

	for _, tc := range tests {
		if got := publisher.IsPermanent(tc.err); got != tc.want {
			t.Errorf("%s: IsPermanent = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestOnDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rawURL string
		suffix string
		want   bool
	}{
		{"https://www.instagram.com/", "instagram.com", true},
		{"https://instagram.com/accounts/login", "instagram.com", true},
		{"https://www.tiktok.com/upload?lang=en", "tiktok.com", true},
		{"https://evil-instagram.com/phish", "instagram.com", false},
		{"https://l.facebook.com/l.php?u=x", "instagram.com", false},
		{"https://www.tiktok.com/", "instagram.com", false},
		{"::bad::", "instagram.com", false},
	}

	for _, tc := range tests {
		if got := onDomain(tc.rawURL, tc.suffix); got != tc.want {
			t.Errorf("onDomain(%q, %q) = %v, want %v", tc.rawURL, tc.suffix, got, tc.want)
		}
	}
}
