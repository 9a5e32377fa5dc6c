package vault

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any)           {}
func (nopLogger) Info(msg string, args ...any)            {}
func (nopLogger) Warn(msg string, args ...any)            {}
func (nopLogger) Error(msg string, args ...any)           {}
func (nopLogger) WithComponent(name string) logger.Logger { return nopLogger{} }

func newTestVault(t *testing.T, secret string) *Vault {
	t.Helper()
	v, err := NewWithSecret(t.TempDir(), secret, nopLogger{})
	if err != nil {
		t.Fatalf("NewWithSecret() error = %v", err)
	}
	return v
}

func TestVaultRoundTrip(t *testing.T) {
	t.Parallel()

	v := newTestVault(t, "test-secret")

	tests := []struct {
		name     string
		platform domain.Platform
		userID   int64
		nickname string
		payload  []byte
	}{
		{
			name:     "instagram session",
			platform: domain.PlatformInstagram,
			userID:   42,
			nickname: "main",
			payload:  []byte(`{"username":"alice","cookies":[{"name":"sessionid","value":"abc"}]}`),
		},
		{
			name:     "tiktok session",
			platform: domain.PlatformTiktok,
			userID:   42,
			nickname: "main",
			payload:  []byte(`{"username":"alice_tt"}`),
		},
		{
			name:     "empty nickname falls back to default",
			platform: domain.PlatformInstagram,
			userID:   7,
			nickname: "",
			payload:  []byte(`{}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.Store(tt.platform, tt.userID, tt.nickname, tt.payload); err != nil {
				t.Fatalf("Store() error = %v", err)
			}
			got, err := v.Load(tt.platform, tt.userID, tt.nickname)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Errorf("Load() = %q, want %q", got, tt.payload)
			}
		})
	}
}

func TestVaultLoadMissing(t *testing.T) {
	t.Parallel()

	v := newTestVault(t, "test-secret")

	_, err := v.Load(domain.PlatformInstagram, 1, "ghost")
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("Load() error = %v, want *CredentialError", err)
	}
	if credErr.Reason != ReasonMissing {
		t.Errorf("Reason = %q, want %q", credErr.Reason, ReasonMissing)
	}
}

func TestVaultEnvelopeLayout(t *testing.T) {
	t.Parallel()

	v := newTestVault(t, "test-secret")
	payload := []byte(`{"username":"bob"}`)

	if err := v.Store(domain.PlatformInstagram, 9, "main", payload); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(v.dir, "instagram_9_main.json.enc"))
	if err != nil {
		t.Fatalf("reading envelope: %v", err)
	}
	if want := ivSize + tagSize + len(payload); len(raw) != want {
		t.Errorf("envelope length = %d, want %d", len(raw), want)
	}
	if bytes.Contains(raw, []byte("bob")) {
		t.Error("envelope contains plaintext")
	}

	// A second store of the same payload must pick a fresh IV.
	if err := v.Store(domain.PlatformInstagram, 9, "main", payload); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	raw2, err := os.ReadFile(filepath.Join(v.dir, "instagram_9_main.json.enc"))
	if err != nil {
		t.Fatalf("reading envelope: %v", err)
	}
	if bytes.Equal(raw[:ivSize], raw2[:ivSize]) {
		t.Error("IV reused across Store() calls")
	}
}

func TestVaultTamperedEnvelope(t *testing.T) {
	t.Parallel()

	v := newTestVault(t, "test-secret")
	if err := v.Store(domain.PlatformTiktok, 3, "alt", []byte(`{"username":"eve"}`)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	path := filepath.Join(v.dir, "tiktok_3_alt.json.enc")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading envelope: %v", err)
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"flipped ciphertext byte", func(b []byte) []byte {
			out := append([]byte(nil), b...)
			out[len(out)-1] ^= 0xff
			return out
		}},
		{"flipped tag byte", func(b []byte) []byte {
			out := append([]byte(nil), b...)
			out[ivSize] ^= 0xff
			return out
		}},
		{"truncated below header", func(b []byte) []byte {
			return b[:ivSize+tagSize-1]
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(path, tt.mutate(raw), 0o600); err != nil {
				t.Fatalf("writing envelope: %v", err)
			}
			_, err := v.Load(domain.PlatformTiktok, 3, "alt")
			var credErr *CredentialError
			if !errors.As(err, &credErr) {
				t.Fatalf("Load() error = %v, want *CredentialError", err)
			}
			if credErr.Reason != ReasonDecryptFailed {
				t.Errorf("Reason = %q, want %q", credErr.Reason, ReasonDecryptFailed)
			}
		})
	}
}

func TestVaultWrongSecret(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	v1, err := NewWithSecret(dir, "secret-one", nopLogger{})
	if err != nil {
		t.Fatalf("NewWithSecret() error = %v", err)
	}
	if err := v1.Store(domain.PlatformInstagram, 5, "main", []byte(`{}`)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	v2, err := NewWithSecret(dir, "secret-two", nopLogger{})
	if err != nil {
		t.Fatalf("NewWithSecret() error = %v", err)
	}
	_, err = v2.Load(domain.PlatformInstagram, 5, "main")
	var credErr *CredentialError
	if !errors.As(err, &credErr) || credErr.Reason != ReasonDecryptFailed {
		t.Fatalf("Load() error = %v, want decrypt-failed CredentialError", err)
	}
}

func TestVaultEmptySecret(t *testing.T) {
	t.Parallel()

	if _, err := NewWithSecret(t.TempDir(), "", nopLogger{}); err == nil {
		t.Fatal("NewWithSecret() with empty secret: want error, got nil")
	}
}

func TestVaultLegacyMigration(t *testing.T) {
	t.Parallel()

	v := newTestVault(t, "test-secret")
	payload := []byte(`{"username":"carol","cookies":[]}`)

	if err := os.MkdirAll(v.dir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	legacy := filepath.Join(v.dir, "instagram_11_main.json")
	if err := os.WriteFile(legacy, payload, 0o600); err != nil {
		t.Fatalf("writing legacy file: %v", err)
	}

	got, err := v.Load(domain.PlatformInstagram, 11, "main")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Load() = %q, want %q", got, payload)
	}

	enc := filepath.Join(v.dir, "instagram_11_main.json.enc")
	if _, err := os.Stat(enc); err != nil {
		t.Fatalf("canonical file not written after migration: %v", err)
	}

	// Once migrated, the legacy file must be ignored even if it rots.
	if err := os.WriteFile(legacy, []byte("garbage"), 0o600); err != nil {
		t.Fatalf("corrupting legacy file: %v", err)
	}
	got, err = v.Load(domain.PlatformInstagram, 11, "main")
	if err != nil {
		t.Fatalf("Load() after migration error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Load() after migration = %q, want %q", got, payload)
	}
}

func TestVaultDelete(t *testing.T) {
	t.Parallel()

	v := newTestVault(t, "test-secret")
	if err := v.Store(domain.PlatformInstagram, 8, "main", []byte(`{}`)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if err := v.Delete(domain.PlatformInstagram, 8, "main"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := v.Load(domain.PlatformInstagram, 8, "main")
	var credErr *CredentialError
	if !errors.As(err, &credErr) || credErr.Reason != ReasonMissing {
		t.Fatalf("Load() after Delete() error = %v, want missing CredentialError", err)
	}

	err = v.Delete(domain.PlatformInstagram, 8, "main")
	if !errors.As(err, &credErr) || credErr.Reason != ReasonMissing {
		t.Fatalf("second Delete() error = %v, want missing CredentialError", err)
	}
}

func TestVaultList(t *testing.T) {
	t.Parallel()

	v := newTestVault(t, "test-secret")

	entries, err := v.List()
	if err != nil {
		t.Fatalf("List() on empty dir error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("List() on empty dir = %v, want empty", entries)
	}

	if err := v.Store(domain.PlatformInstagram, 42, "main", []byte(`{}`)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := v.Store(domain.PlatformTiktok, 42, "brand_account", []byte(`{}`)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	// A legacy plaintext sibling must not show up.
	legacy := filepath.Join(v.dir, "instagram_9_old.json")
	if err := os.WriteFile(legacy, []byte(`{}`), 0o600); err != nil {
		t.Fatalf("writing legacy file: %v", err)
	}

	entries, err = v.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List() returned %d entries, want 2: %v", len(entries), entries)
	}

	byNickname := map[string]Entry{}
	for _, e := range entries {
		byNickname[e.Nickname] = e
	}
	if e, ok := byNickname["main"]; !ok || e.Platform != domain.PlatformInstagram || e.UserID != 42 {
		t.Errorf("instagram entry = %+v, want platform instagram user 42", e)
	}
	if e, ok := byNickname["brand_account"]; !ok || e.Platform != domain.PlatformTiktok || e.UserID != 42 {
		t.Errorf("underscored nickname entry = %+v, want tiktok user 42 nickname intact", e)
	}
}

func TestVaultFileNameSanitized(t *testing.T) {
	t.Parallel()

	v := newTestVault(t, "test-secret")
	if err := v.Store(domain.PlatformInstagram, 2, "../sneaky", []byte(`{}`)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	entries, err := os.ReadDir(v.dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries in sessions dir, want 1", len(entries))
	}
	if name := entries[0].Name(); name != "instagram_2_---sneaky.json.enc" {
		t.Errorf("file name = %q, want sanitized name", name)
	}
}
