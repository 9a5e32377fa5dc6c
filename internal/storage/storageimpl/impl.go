package storageimpl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orgball2608/social-poster-telegram-bot/internal/storage"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/config"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

type StorageImpl struct {
	Client *http.Client
	Config *config.Config
	Logger logger.Logger
}

func New(opts Opts) *StorageImpl {
	return &StorageImpl{
		Client: &http.Client{Timeout: 60 * time.Second},
		Config: opts.Config,
		Logger: opts.Logger.WithComponent("Storage"),
	}
}

var _ storage.Client = (*StorageImpl)(nil)

func (s *StorageImpl) EnsureLocal(ctx context.Context, mediaRef string) (string, error) {
	if strings.HasPrefix(mediaRef, "http://") || strings.HasPrefix(mediaRef, "https://") {
		return s.download(ctx, mediaRef)
	}

	p := filepath.Clean(mediaRef)
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.Config.Media.Dir, p)
	}

	info, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("media file not accessible: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("media reference %s is a directory", mediaRef)
	}
	return p, nil
}

func (s *StorageImpl) download(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download media: %w", err)
	}
	defer s.safeClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media download returned status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(s.Config.Media.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}

	dest := filepath.Join(s.Config.Media.Dir, "dl_"+uuid.NewString()+extFor(rawURL, resp.Header.Get("Content-Type")))
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	if closeErr != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to close media file: %w", closeErr)
	}
	if written == 0 {
		os.Remove(dest)
		return "", fmt.Errorf("media download for %s was empty", rawURL)
	}

	s.Logger.Info("Downloaded media", "url", rawURL, "path", dest, "bytes", written)
	return dest, nil
}

func (s *StorageImpl) safeClose(closer io.ReadCloser) {
	if err := closer.Close(); err != nil {
		s.Logger.Error("Error closing response body", "error", err)
	}
}

func extFor(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" {
			return ext
		}
	}

	switch {
	case strings.Contains(contentType, "image/jpeg"):
		return ".jpg"
	case strings.Contains(contentType, "image/png"):
		return ".png"
	case strings.Contains(contentType, "image/webp"):
		return ".webp"
	case strings.Contains(contentType, "video/mp4"):
		return ".mp4"
	}
	return ".bin"
}
