package selector

import (
	"context"
	"fmt"
	"time"

	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/config"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
	"go.uber.org/fx"
)

// Kind names how a Strategy locates an element on the page.
const (
	KindAttr  = "attr"
	KindCSS   = "css"
	KindText  = "text"
	KindXPath = "xpath"
)

// Strategy is one way of locating a page element. Value is interpreted per
// Kind: "attr" is a name=value pair, "css" a CSS selector, "text" a visible
// substring, "xpath" an XPath expression.
type Strategy struct {
	Kind  string `yaml:"kind"`
	Value string `yaml:"value"`
}

func (s Strategy) String() string {
	return s.Kind + ":" + s.Value
}

// Prober checks whether a strategy currently matches an element. The
// browser session implements this; tests use fakes.
type Prober interface {
	Probe(ctx context.Context, s Strategy) error
}

// ElementNotFoundError is returned when every strategy for an action failed
// to locate its element.
type ElementNotFoundError struct {
	Platform domain.Platform
	Action   string
	Tried    int
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("no selector matched for %s/%s after %d strategies", e.Platform, e.Action, e.Tried)
}

// Resolver picks the working locator strategy for a (platform, action)
// pair. Strategies that recently worked are probed first via a small MRU
// cache, so one markup change costs a single slow resolution rather than
// one per delivery.
type Resolver struct {
	catalog *Catalog
	cache   *mruCache
	timeout time.Duration
	logger  logger.Logger
}

type Opts struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Logger logger.Logger
}

func New(opts Opts) (*Resolver, error) {
	catalog := NewCatalog()
	if path := opts.Config.Selector.ConfigPath; path != "" {
		if err := catalog.LoadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load selector config: %w", err)
		}
	}

	r := NewResolver(catalog, opts.Config.Selector.Timeout, opts.Logger)

	if path := opts.Config.Selector.ConfigPath; path != "" {
		watchCtx, cancel := context.WithCancel(context.Background())
		opts.LC.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return catalog.Watch(watchCtx, path, opts.Logger)
			},
			OnStop: func(ctx context.Context) error {
				cancel()
				return nil
			},
		})
	}

	return r, nil
}

func NewResolver(catalog *Catalog, timeout time.Duration, log logger.Logger) *Resolver {
	return &Resolver{
		catalog: catalog,
		cache:   newMRUCache(cacheCapacity),
		timeout: timeout,
		logger:  log.WithComponent("SelectorResolver"),
	}
}

// Resolve probes strategies for the action until one matches and returns
// it. Cached winners go first in most-recent order, then the configured
// list; each probe gets its own timeout so a dead strategy cannot stall
// the whole resolution.
func (r *Resolver) Resolve(ctx context.Context, platform domain.Platform, action string, prober Prober) (Strategy, error) {
	key := cacheKey(platform, action)
	candidates := r.candidates(key, platform, action)

	tried := 0
	for _, s := range candidates {
		if err := ctx.Err(); err != nil {
			return Strategy{}, err
		}

		tried++
		probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := prober.Probe(probeCtx, s)
		cancel()
		if err == nil {
			r.cache.noteSuccess(key, s)
			return s, nil
		}
		r.logger.Debug("Selector strategy missed",
			"platform", platform, "action", action, "strategy", s.String())
	}

	return Strategy{}, &ElementNotFoundError{Platform: platform, Action: action, Tried: tried}
}

func (r *Resolver) candidates(key string, platform domain.Platform, action string) []Strategy {
	cached := r.cache.get(key)
	configured := r.catalog.Strategies(platform, action)

	out := make([]Strategy, 0, len(cached)+len(configured))
	out = append(out, cached...)
	for _, s := range configured {
		if containsStrategy(cached, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func containsStrategy(list []Strategy, s Strategy) bool {
	for _, c := range list {
		if c == s {
			return true
		}
	}
	return false
}

func cacheKey(platform domain.Platform, action string) string {
	return string(platform) + "/" + action
}
