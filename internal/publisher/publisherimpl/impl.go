package publisherimpl

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/orgball2608/social-poster-telegram-bot/internal/browser"
	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/internal/publisher"
	"github.com/orgball2608/social-poster-telegram-bot/internal/ratelimit"
	"github.com/orgball2608/social-poster-telegram-bot/internal/selector"
	"github.com/orgball2608/social-poster-telegram-bot/internal/storage"
	"github.com/orgball2608/social-poster-telegram-bot/internal/vault"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/config"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/retry"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Config   *config.Config
	Logger   logger.Logger
	Vault    *vault.Vault
	Browser  *browser.Manager
	Resolver *selector.Resolver
	Storage  storage.Client
	Limiter  ratelimit.Limiter
}

type PublisherImpl struct {
	config   *config.Config
	logger   logger.Logger
	vault    *vault.Vault
	browser  *browser.Manager
	resolver *selector.Resolver
	storage  storage.Client
	limiter  ratelimit.Limiter

	deliver  deliverFunc
	retryCfg retry.Config
}

type deliverFunc func(ctx context.Context, req publisher.Request, session *domain.SessionPayload, mediaPath string) (*publisher.Result, error)

func New(opts Opts) *PublisherImpl {
	p := &PublisherImpl{
		config:   opts.Config,
		logger:   opts.Logger.WithComponent("Publisher"),
		vault:    opts.Vault,
		browser:  opts.Browser,
		resolver: opts.Resolver,
		storage:  opts.Storage,
		limiter:  opts.Limiter,
		retryCfg: deliveryRetryConfig(),
	}
	p.deliver = p.deliverByPlatform
	return p
}

var _ publisher.Client = (*PublisherImpl)(nil)

// Publish runs one delivery with up to three transport attempts. Broken
// credentials fail immediately without touching the network; bot
// detection and session expiry abort the retry loop.
func (p *PublisherImpl) Publish(ctx context.Context, req publisher.Request) (*publisher.Result, error) {
	log := p.logger.WithComponent(string(req.Platform))

	payload, err := p.vault.Load(req.Platform, req.UserID, req.Nickname)
	if err != nil {
		return nil, err
	}

	session, err := domain.ParseSessionPayload(payload)
	if err != nil {
		// Decrypted fine but unusable: same handling as broken ciphertext.
		return nil, &vault.CredentialError{Reason: vault.ReasonDecryptFailed, Err: err}
	}

	limiterKey := string(req.Platform) + "/" + req.Nickname
	if err := p.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	var result *publisher.Result
	operation := func() error {
		mediaPath, err := p.storage.EnsureLocal(ctx, req.MediaRef)
		if err != nil {
			return err
		}

		res, err := p.deliver(ctx, req, session, mediaPath)
		if err != nil {
			if publisher.IsPermanent(err) {
				return retry.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	}

	err = retry.Do(ctx, log, "Publish:"+string(req.Platform), operation, p.retryCfg)
	if err != nil {
		return nil, err
	}

	log.Info("Delivery succeeded",
		"nickname", req.Nickname, "media", req.MediaRef, "post_url", result.PostURL)
	return result, nil
}

func deliveryRetryConfig() retry.Config {
	return retry.Config{
		MaxRetries:      2,
		InitialInterval: 750 * time.Millisecond,
		MaxInterval:     3 * time.Second,
		Multiplier:      2,
	}
}

func (p *PublisherImpl) deliverByPlatform(ctx context.Context, req publisher.Request, session *domain.SessionPayload, mediaPath string) (*publisher.Result, error) {
	switch req.Platform {
	case domain.PlatformInstagram:
		if p.config.Instagram.Engine == "api" {
			return p.publishInstagramAPI(ctx, req, session, mediaPath)
		}
		return p.publishInstagramBrowser(ctx, req, session, mediaPath)
	case domain.PlatformTiktok:
		return p.publishTiktokBrowser(ctx, req, session, mediaPath)
	}
	return nil, fmt.Errorf("unsupported platform %q", req.Platform)
}

// botMarkers are phrases that only show up on challenge interstitials.
// Matching is case-insensitive against the page's visible text.
var botMarkers = map[domain.Platform][]string{
	domain.PlatformInstagram: {
		"suspicious login attempt",
		"confirm it's you",
		"we detected automated behavior",
		"unusual activity",
	},
	domain.PlatformTiktok: {
		"verify to continue",
		"drag the slider",
		"too many attempts",
		"security check",
	},
}

func (p *PublisherImpl) checkBotMarkers(ctx context.Context, sess *browser.Session, platform domain.Platform) error {
	text, err := sess.PageText(ctx)
	if err != nil {
		// A text read failure is not evidence of a challenge; let the
		// flow's next step produce the real error.
		p.logger.Debug("Could not read page text for bot check", "platform", platform, "error", err)
		return nil
	}

	lower := strings.ToLower(text)
	for _, marker := range botMarkers[platform] {
		if strings.Contains(lower, marker) {
			return &publisher.BotDetectionError{Platform: platform, Marker: marker}
		}
	}
	return nil
}

// ensureOnDomain recovers from a redirect off the platform's site: one
// forced return navigation, then failure if the page leaves again. Ad
// interstitials and consent bounces usually survive the single return;
// anything more persistent is left to the transport retry.
func (p *PublisherImpl) ensureOnDomain(ctx context.Context, sess *browser.Session, domainSuffix, returnURL string) error {
	if onDomain(sess.Location(), domainSuffix) {
		return nil
	}

	p.logger.Warn("Redirected off platform domain, navigating back",
		"location", sess.Location(), "expected", domainSuffix)
	if err := sess.Navigate(ctx, returnURL); err != nil {
		return err
	}
	if loc := sess.Location(); !onDomain(loc, domainSuffix) {
		return fmt.Errorf("redirected off %s twice, landed on %s", domainSuffix, loc)
	}
	return nil
}

func onDomain(rawURL, domainSuffix string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == domainSuffix || strings.HasSuffix(host, "."+domainSuffix)
}

// click resolves the working strategy for an action and clicks it.
func (p *PublisherImpl) click(ctx context.Context, sess *browser.Session, platform domain.Platform, action string) error {
	strat, err := p.resolver.Resolve(ctx, platform, action, sess)
	if err != nil {
		return err
	}
	return sess.Click(ctx, strat)
}

// waitFor re-resolves an action until it appears or the budget runs out.
// Used for confirmations that trail a long server-side operation, where a
// single per-strategy probe timeout is far too short.
func (p *PublisherImpl) waitFor(ctx context.Context, sess *browser.Session, platform domain.Platform, action string, budget time.Duration) error {
	deadline := time.Now().Add(budget)
	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := p.resolver.Resolve(ctx, platform, action, sess)
		if err == nil {
			return nil
		}
		lastErr = err

		if time.Now().After(deadline) {
			return lastErr
		}
		if err := sess.Pause(ctx, 1500*time.Millisecond, 2500*time.Millisecond); err != nil {
			return err
		}
	}
}

// diagnose captures the failure evidence and wraps the step error.
func (p *PublisherImpl) diagnose(sess *browser.Session, req publisher.Request, step string, err error) error {
	label := fmt.Sprintf("%s_%s_%s", req.Platform, req.Nickname, step)
	sess.CaptureDiagnostics(p.config.Media.DiagnosticsDir, label)
	return fmt.Errorf("%s %s: %w", req.Platform, step, err)
}
