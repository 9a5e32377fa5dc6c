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
	instagramBaseURL = "https://www.instagram.com/"

	// Sharing ends with a server-side publish that can trail the click by
	// a long time; the confirmation wait gets its own budget.
	instagramShareBudget = 90 * time.Second
)

func (p *PublisherImpl) publishInstagramBrowser(ctx context.Context, req publisher.Request, session *domain.SessionPayload, mediaPath string) (*publisher.Result, error) {
	sess, err := p.browser.NewSession(ctx, browser.SessionOpts{
		UserAgent: session.UserAgent,
		Cookies:   session.Cookies,
	})
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	// --- Step 1: Land on the home feed with the stored session ---
	if err := sess.Navigate(ctx, instagramBaseURL); err != nil {
		return nil, p.diagnose(sess, req, "navigate", err)
	}
	if err := p.ensureOnDomain(ctx, sess, "instagram.com", instagramBaseURL); err != nil {
		return nil, p.diagnose(sess, req, "domain-guard", err)
	}

	if loc := sess.Location(); strings.Contains(loc, "/challenge") {
		return nil, p.diagnose(sess, req, "challenge-redirect",
			&publisher.BotDetectionError{Platform: domain.PlatformInstagram, Marker: loc})
	} else if strings.Contains(loc, "/accounts/login") {
		return nil, p.diagnose(sess, req, "login-redirect",
			&publisher.SessionExpiredError{Platform: domain.PlatformInstagram, Location: loc})
	}
	if err := p.checkBotMarkers(ctx, sess, domain.PlatformInstagram); err != nil {
		return nil, p.diagnose(sess, req, "bot-check", err)
	}
	if _, err := p.resolver.Resolve(ctx, domain.PlatformInstagram, "logged-in-marker", sess); err != nil {
		return nil, p.diagnose(sess, req, "logged-in-check", err)
	}
	if err := sess.Linger(ctx); err != nil {
		return nil, err
	}

	// --- Step 2: Open the create dialog ---
	if err := p.click(ctx, sess, domain.PlatformInstagram, "new-post-button"); err != nil {
		return nil, p.diagnose(sess, req, "new-post", err)
	}
	if err := sess.Pause(ctx, 800*time.Millisecond, 2*time.Second); err != nil {
		return nil, err
	}

	// --- Step 3: Attach the media file ---
	fileInput, err := p.resolver.Resolve(ctx, domain.PlatformInstagram, "file-input", sess)
	if err != nil {
		return nil, p.diagnose(sess, req, "file-input", err)
	}
	if err := sess.Upload(ctx, fileInput, mediaPath); err != nil {
		return nil, p.diagnose(sess, req, "attach-media", err)
	}
	if err := sess.Pause(ctx, 2*time.Second, 4*time.Second); err != nil {
		return nil, err
	}

	// --- Step 4: Through the crop and edit screens ---
	if err := p.click(ctx, sess, domain.PlatformInstagram, "next-button"); err != nil {
		return nil, p.diagnose(sess, req, "crop-next", err)
	}
	if err := sess.Linger(ctx); err != nil {
		return nil, err
	}
	if err := p.click(ctx, sess, domain.PlatformInstagram, "next-button"); err != nil {
		return nil, p.diagnose(sess, req, "edit-next", err)
	}
	if err := sess.Pause(ctx, 800*time.Millisecond, 2*time.Second); err != nil {
		return nil, err
	}

	// --- Step 5: Write the caption like a person would ---
	if req.Caption != "" {
		captionField, err := p.resolver.Resolve(ctx, domain.PlatformInstagram, "caption-field", sess)
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

	// --- Step 6: Share ---
	if err := p.click(ctx, sess, domain.PlatformInstagram, "share-button"); err != nil {
		return nil, p.diagnose(sess, req, "share", err)
	}

	// --- Step 7: Wait for the confirmation toast ---
	if err := p.waitFor(ctx, sess, domain.PlatformInstagram, "success-marker", instagramShareBudget); err != nil {
		// A challenge can replace the toast; check before blaming markup.
		if botErr := p.checkBotMarkers(ctx, sess, domain.PlatformInstagram); botErr != nil {
			return nil, p.diagnose(sess, req, "post-share-bot-check", botErr)
		}
		return nil, p.diagnose(sess, req, "success-marker", err)
	}

	return &publisher.Result{Platform: domain.PlatformInstagram}, nil
}
