package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		SentryURL string `env:"SENTRY_URL"`
	}
	Postgres struct {
		Port    int    `env:"POSTGRES_PORT"`
		Host    string `env:"POSTGRES_HOST"`
		User    string `env:"POSTGRES_USER"`
		Pass    string `env:"POSTGRES_PASS"`
		Name    string `env:"POSTGRES_NAME"`
		SslMode string `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	}
	Telegram struct {
		User  int64  `env:"TELEGRAM_USER"`
		Token string `env:"TELEGRAM_TOKEN"`
	}
	Vault struct {
		Secret      string `env:"VAULT_SECRET"`
		SessionsDir string `env:"VAULT_SESSIONS_DIR" env-default:"./sessions"`
	}
	Media struct {
		Dir            string `env:"MEDIA_DIR" env-default:"./media"`
		DiagnosticsDir string `env:"DIAGNOSTICS_DIR" env-default:"./diagnostics"`
	}
	Browser struct {
		Headless   bool   `env:"HEADLESS" env-default:"true"`
		ChromePath string `env:"CHROME_PATH"`
	}
	Selector struct {
		ConfigPath string        `env:"SELECTOR_CONFIG_PATH"`
		Timeout    time.Duration `env:"SELECTOR_TIMEOUT" env-default:"4s"`
	}
	Scheduler struct {
		Tick           time.Duration `env:"SCHEDULER_TICK" env-default:"1m"`
		AttemptTimeout time.Duration `env:"ATTEMPT_TIMEOUT" env-default:"8m"`
		ClaimLease     time.Duration `env:"CLAIM_LEASE" env-default:"10m"`
		SweepCron      string        `env:"SWEEP_CRON" env-default:"*/5 * * * *"`
		DigestCron     string        `env:"DIGEST_CRON" env-default:"0 9 * * *"`
	}
	Instagram struct {
		Engine string `env:"INSTAGRAM_ENGINE" env-default:"browser"`
	}
}

var (
	once sync.Once
	cfg  *Config
)

// GetDSN builds the lib/pq connection string used by the migration tooling.
// The pgx pool builds its own URL form.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("dbname=%s user=%s password=%s host=%s port=%d sslmode=%s",
		c.Postgres.Name, c.Postgres.User, c.Postgres.Pass, c.Postgres.Host, c.Postgres.Port, c.Postgres.SslMode)
}

func New() (*Config, error) {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			help, _ := cleanenv.GetDescription(cfg, nil)
			log.Fatalf("Failed to read configuration: %v\n%v", err, help)
		}
	})
	return cfg, nil
}
