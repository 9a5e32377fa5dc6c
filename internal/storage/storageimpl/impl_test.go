package storageimpl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/orgball2608/social-poster-telegram-bot/pkg/config"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any)           {}
func (nopLogger) Info(msg string, args ...any)            {}
func (nopLogger) Warn(msg string, args ...any)            {}
func (nopLogger) Error(msg string, args ...any)           {}
func (nopLogger) WithComponent(name string) logger.Logger { return nopLogger{} }

func newTestStorage(t *testing.T) *StorageImpl {
	t.Helper()
	cfg := &config.Config{}
	cfg.Media.Dir = t.TempDir()
	return &StorageImpl{
		Client: &http.Client{Timeout: 5 * time.Second},
		Config: cfg,
		Logger: nopLogger{},
	}
}

func TestEnsureLocalRelativePath(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	want := filepath.Join(s.Config.Media.Dir, "photo.jpg")
	if err := os.WriteFile(want, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("writing media file: %v", err)
	}

	got, err := s.EnsureLocal(context.Background(), "photo.jpg")
	if err != nil {
		t.Fatalf("EnsureLocal() error = %v", err)
	}
	if got != want {
		t.Errorf("EnsureLocal() = %q, want %q", got, want)
	}
}

func TestEnsureLocalMissingFile(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	if _, err := s.EnsureLocal(context.Background(), "nope.jpg"); err == nil {
		t.Fatal("EnsureLocal() error = nil, want missing file error")
	}
}

func TestEnsureLocalRejectsDirectory(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	if _, err := s.EnsureLocal(context.Background(), "."); err == nil {
		t.Fatal("EnsureLocal() error = nil, want directory error")
	}
}

func TestEnsureLocalDownloadsURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	s := newTestStorage(t)
	got, err := s.EnsureLocal(context.Background(), srv.URL+"/media/cat.jpg")
	if err != nil {
		t.Fatalf("EnsureLocal() error = %v", err)
	}

	if !strings.HasPrefix(got, s.Config.Media.Dir) {
		t.Errorf("download landed at %q, want inside %q", got, s.Config.Media.Dir)
	}
	if filepath.Ext(got) != ".jpg" {
		t.Errorf("downloaded ext = %q, want .jpg", filepath.Ext(got))
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("downloaded content = %q, want %q", data, "jpeg-bytes")
	}
}

func TestEnsureLocalDownloadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			s := newTestStorage(t)
			if _, err := s.EnsureLocal(context.Background(), srv.URL+"/x.jpg"); err == nil {
				t.Fatal("EnsureLocal() error = nil, want error")
			}
		})
	}
}
