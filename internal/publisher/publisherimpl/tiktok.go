package publisherimpl

import (
	"context"
	"strings"
	"time"

	"github.com/orgball2608/social-poster-telegram-bot/internal/browser"
	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/internal/publisher"
)

const (
	tiktokUploadURL = "https://www.tiktok.com/upload?lang=en"

	// Video transcoding gates the caption editor and the final publish;
	// both waits get generous budgets.
	tiktokProcessingBudget = 120 * time.Second
	tiktokPostBudget       = 90 * time.Second
)

func (p *PublisherImpl) publishTiktokBrowser(ctx context.Context, req publisher.Request, session *domain.SessionPayload, mediaPath string) (*publisher.Result, error) {
	sess, err := p.browser.NewSession(ctx, browser.SessionOpts{
		UserAgent: session.UserAgent,
		Cookies:   session.Cookies,
	})
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	// --- Step 1: Go straight to the upload studio ---
	if err := sess.Navigate(ctx, tiktokUploadURL); err != nil {
		return nil, p.diagnose(sess, req, "navigate", err)
	}
	if err := p.ensureOnDomain(ctx, sess, "tiktok.com", tiktokUploadURL); err != nil {
		return nil, p.diagnose(sess, req, "domain-guard", err)
	}

	if loc := sess.Location(); strings.Contains(loc, "/login") {
		return nil, p.diagnose(sess, req, "login-redirect",
			&publisher.SessionExpiredError{Platform: domain.PlatformTiktok, Location: loc})
	}
	if err := p.checkBotMarkers(ctx, sess, domain.PlatformTiktok); err != nil {
		return nil, p.diagnose(sess, req, "bot-check", err)
	}
	if err := sess.Linger(ctx); err != nil {
		return nil, err
	}

	// --- Step 2: Attach the video ---
	fileInput, err := p.resolver.Resolve(ctx, domain.PlatformTiktok, "file-input", sess)
	if err != nil {
		return nil, p.diagnose(sess, req, "file-input", err)
	}
	if err := sess.Upload(ctx, fileInput, mediaPath); err != nil {
		return nil, p.diagnose(sess, req, "attach-media", err)
	}

	// --- Step 3: Wait out transcoding until the caption editor shows ---
	if err := p.waitFor(ctx, sess, domain.PlatformTiktok, "caption-field", tiktokProcessingBudget); err != nil {
		if botErr := p.checkBotMarkers(ctx, sess, domain.PlatformTiktok); botErr != nil {
			return nil, p.diagnose(sess, req, "processing-bot-check", botErr)
		}
		return nil, p.diagnose(sess, req, "processing", err)
	}
	if err := sess.Linger(ctx); err != nil {
		return nil, err
	}

	// --- Step 4: Caption ---
	if req.Caption != "" {
		captionField, err := p.resolver.Resolve(ctx, domain.PlatformTiktok, "caption-field", sess)
		if err != nil {
			return nil, p.diagnose(sess, req, "caption-field", err)
		}
		if err := sess.TypeHuman(ctx, captionField, req.Caption); err != nil {
			return nil, p.diagnose(sess, req, "caption-type", err)
		}
		if err := sess.Pause(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
			return nil, err
		}
	}

	// --- Step 5: Post ---
	if err := p.click(ctx, sess, domain.PlatformTiktok, "post-button"); err != nil {
		return nil, p.diagnose(sess, req, "post", err)
	}

	// --- Step 6: Wait for the upload confirmation ---
	if err := p.waitFor(ctx, sess, domain.PlatformTiktok, "success-marker", tiktokPostBudget); err != nil {
		if botErr := p.checkBotMarkers(ctx, sess, domain.PlatformTiktok); botErr != nil {
			return nil, p.diagnose(sess, req, "post-submit-bot-check", botErr)
		}
		return nil, p.diagnose(sess, req, "success-marker", err)
	}

	return &publisher.Result{Platform: domain.PlatformTiktok}, nil
}
