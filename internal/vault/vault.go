package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/config"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
	"go.uber.org/fx"
	"golang.org/x/crypto/scrypt"
)

const (
	// Fixed application salt for the scrypt derivation. Rotating it
	// invalidates every stored session, so treat it as part of the on-disk
	// format.
	keySalt = "social-poster-vault-v1"

	ivSize  = 12
	tagSize = 16
	keySize = 32

	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1
)

const (
	ReasonMissing       = "missing"
	ReasonDecryptFailed = "decrypt-failed"
)

// CredentialError reports why an account's session material is unusable.
// Reason is one of ReasonMissing or ReasonDecryptFailed.
type CredentialError struct {
	Reason string
	Err    error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential %s: %v", e.Reason, e.Err)
	}
	return "credential " + e.Reason
}

func (e *CredentialError) Unwrap() error { return e.Err }

// Vault stores per-account session payloads encrypted at rest.
//
// On-disk layout: {platform}_{userID}_{nickname}.json.enc under the sessions
// directory, each file holding [12-byte IV][16-byte GCM tag][ciphertext].
// A plaintext {platform}_{userID}_{nickname}.json sibling is a legacy file
// from before encryption was introduced; Load migrates it in place on first
// read.
type Vault struct {
	dir    string
	key    []byte
	logger logger.Logger
}

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

func New(opts Opts) (*Vault, error) {
	return NewWithSecret(opts.Config.Vault.SessionsDir, opts.Config.Vault.Secret, opts.Logger)
}

// NewWithSecret derives the AES key once, up front. scrypt is slow, so the
// key is reused for the process lifetime.
func NewWithSecret(dir, secret string, log logger.Logger) (*Vault, error) {
	if secret == "" {
		return nil, fmt.Errorf("vault secret is not configured")
	}

	key, err := scrypt.Key([]byte(secret), []byte(keySalt), scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive vault key: %w", err)
	}

	return &Vault{
		dir:    dir,
		key:    key,
		logger: log.WithComponent("Vault"),
	}, nil
}

// Store encrypts payload and writes it to the canonical path, overwriting
// any previous session for the same account.
func (v *Vault) Store(platform domain.Platform, userID int64, nickname string, payload []byte) error {
	if err := os.MkdirAll(v.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create sessions dir: %w", err)
	}

	sealed, err := v.seal(payload)
	if err != nil {
		return err
	}

	path := v.encPath(platform, userID, nickname)
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load reads and decrypts the session payload for an account. If only the
// legacy plaintext file exists it is re-encrypted to the canonical path and
// its contents returned; afterwards the legacy file is never consulted
// again.
func (v *Vault) Load(platform domain.Platform, userID int64, nickname string) ([]byte, error) {
	path := v.encPath(platform, userID, nickname)

	sealed, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read session file: %w", err)
		}
		return v.loadLegacy(platform, userID, nickname)
	}

	payload, err := v.open(sealed)
	if err != nil {
		return nil, &CredentialError{Reason: ReasonDecryptFailed, Err: err}
	}
	return payload, nil
}

func (v *Vault) loadLegacy(platform domain.Platform, userID int64, nickname string) ([]byte, error) {
	legacy := v.legacyPath(platform, userID, nickname)

	payload, err := os.ReadFile(legacy)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &CredentialError{Reason: ReasonMissing}
		}
		return nil, fmt.Errorf("failed to read legacy session file: %w", err)
	}

	// One-time, read-triggered migration: once the canonical file exists
	// the legacy one is dead weight, kept only so the operator can verify
	// and remove it.
	if err := v.Store(platform, userID, nickname, payload); err != nil {
		return nil, fmt.Errorf("failed to migrate legacy session: %w", err)
	}
	v.logger.Info("Migrated legacy plaintext session",
		"platform", platform, "user_id", userID, "nickname", nickname)

	return payload, nil
}

// Entry identifies one stored session.
type Entry struct {
	Platform domain.Platform
	UserID   int64
	Nickname string
}

// List enumerates the accounts holding an encrypted session on disk, for
// tooling that audits or revokes links. Legacy plaintext files are not
// listed; they surface through their first Load.
func (v *Vault) List() ([]Entry, error) {
	dirents, err := os.ReadDir(v.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sessions dir: %w", err)
	}

	var out []Entry
	for _, d := range dirents {
		name := d.Name()
		if d.IsDir() || !strings.HasSuffix(name, ".json.enc") {
			continue
		}

		// Stem layout is {platform}_{userID}_{nickname}; only the first
		// two separators are structural, nicknames may carry underscores.
		stem := strings.TrimSuffix(name, ".json.enc")
		parts := strings.SplitN(stem, "_", 3)
		if len(parts) != 3 {
			continue
		}
		userID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}

		out = append(out, Entry{
			Platform: domain.Platform(parts[0]),
			UserID:   userID,
			Nickname: parts[2],
		})
	}
	return out, nil
}

// Delete removes the stored session for an account (the revoke flow). Both
// the canonical and legacy files are removed when present.
func (v *Vault) Delete(platform domain.Platform, userID int64, nickname string) error {
	encErr := os.Remove(v.encPath(platform, userID, nickname))
	legacyErr := os.Remove(v.legacyPath(platform, userID, nickname))

	if os.IsNotExist(encErr) && os.IsNotExist(legacyErr) {
		return &CredentialError{Reason: ReasonMissing}
	}
	if encErr != nil && !os.IsNotExist(encErr) {
		return fmt.Errorf("failed to remove session file: %w", encErr)
	}
	if legacyErr != nil && !os.IsNotExist(legacyErr) {
		return fmt.Errorf("failed to remove legacy session file: %w", legacyErr)
	}
	return nil
}

func (v *Vault) seal(payload []byte) ([]byte, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	// gcm.Seal appends the auth tag after the ciphertext; the envelope
	// wants [iv][tag][ciphertext], so split and reorder.
	sealed := gcm.Seal(nil, iv, payload, nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, ivSize+tagSize+len(ct))
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ct...)
	return out, nil
}

func (v *Vault) open(envelope []byte) ([]byte, error) {
	if len(envelope) < ivSize+tagSize {
		return nil, fmt.Errorf("envelope too short: %d bytes", len(envelope))
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	iv := envelope[:ivSize]
	tag := envelope[ivSize : ivSize+tagSize]
	ct := envelope[ivSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	return gcm.Open(nil, iv, sealed, nil)
}

func (v *Vault) encPath(platform domain.Platform, userID int64, nickname string) string {
	return filepath.Join(v.dir, fileStem(platform, userID, nickname)+".json.enc")
}

func (v *Vault) legacyPath(platform domain.Platform, userID int64, nickname string) string {
	return filepath.Join(v.dir, fileStem(platform, userID, nickname)+".json")
}

func fileStem(platform domain.Platform, userID int64, nickname string) string {
	if nickname == "" {
		nickname = "default"
	}
	// Nicknames come from chat input; keep them from escaping the dir.
	nickname = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '.', ' ':
			return '-'
		}
		return r
	}, nickname)

	return fmt.Sprintf("%s_%d_%s", platform, userID, nickname)
}
