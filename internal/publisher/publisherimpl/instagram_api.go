package publisherimpl

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Davincible/goinsta/v3"
	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/internal/publisher"
	"github.com/orgball2608/social-poster-telegram-bot/internal/vault"
)

// publishInstagramAPI posts through the private API instead of a browser.
// For api-engine accounts the vault payload is a goinsta session export
// rather than a cookie list.
func (p *PublisherImpl) publishInstagramAPI(ctx context.Context, req publisher.Request, session *domain.SessionPayload, mediaPath string) (*publisher.Result, error) {
	insta, err := goinsta.ImportReader(bytes.NewReader(session.Raw))
	if err != nil {
		return nil, &vault.CredentialError{Reason: vault.ReasonDecryptFailed, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Warm the session up the way the app does before any write call.
	if err := insta.Account.Sync(); err != nil {
		return nil, fmt.Errorf("account sync failed: %w", err)
	}

	file, err := os.Open(mediaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open media file: %w", err)
	}
	defer file.Close()

	item, err := insta.Upload(&goinsta.UploadOptions{
		File:    file,
		Caption: req.Caption,
	})
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	// The API rotates tokens as it goes; persist the refreshed session so
	// the next delivery does not start from a stale one.
	p.storeRefreshedSession(insta, req)

	result := &publisher.Result{Platform: domain.PlatformInstagram}
	if item != nil && item.Code != "" {
		result.PostURL = "https://www.instagram.com/p/" + item.Code + "/"
	}
	return result, nil
}

func (p *PublisherImpl) storeRefreshedSession(insta *goinsta.Instagram, req publisher.Request) {
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("goinsta-%d-%s.json", req.UserID, req.Nickname))
	defer os.Remove(tmp)

	if err := insta.Export(tmp); err != nil {
		p.logger.Warn("Failed to export refreshed session", "nickname", req.Nickname, "error", err)
		return
	}
	raw, err := os.ReadFile(tmp)
	if err != nil {
		p.logger.Warn("Failed to read refreshed session", "nickname", req.Nickname, "error", err)
		return
	}
	if err := p.vault.Store(domain.PlatformInstagram, req.UserID, req.Nickname, raw); err != nil {
		p.logger.Warn("Failed to store refreshed session", "nickname", req.Nickname, "error", err)
	}
}
