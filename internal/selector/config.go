package selector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
	"go.yaml.in/yaml/v3"
)

// Catalog holds the ordered strategy lists per platform and action. It
// starts from the compiled-in defaults; a YAML file can replace the list
// for any (platform, action) pair and is re-read on change, so selector
// fixes ship without a redeploy.
//
// File format:
//
//	instagram:
//	  caption-field:
//	    - kind: css
//	      value: 'div[contenteditable="true"][role="textbox"]'
type Catalog struct {
	mu        sync.RWMutex
	overrides map[string][]Strategy
}

func NewCatalog() *Catalog {
	return &Catalog{overrides: make(map[string][]Strategy)}
}

// Strategies returns the configured list for an action, defaults when no
// override exists. The returned slice is a copy.
func (c *Catalog) Strategies(platform domain.Platform, action string) []Strategy {
	c.mu.RLock()
	list, ok := c.overrides[cacheKey(platform, action)]
	c.mu.RUnlock()
	if !ok {
		list = defaultStrategies[cacheKey(platform, action)]
	}

	out := make([]Strategy, len(list))
	copy(out, list)
	return out
}

func (c *Catalog) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read selector file: %w", err)
	}

	var doc map[string]map[string][]Strategy
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse selector file: %w", err)
	}

	overrides := make(map[string][]Strategy)
	for platform, actions := range doc {
		for action, list := range actions {
			for _, s := range list {
				if !validKind(s.Kind) {
					return fmt.Errorf("unknown strategy kind %q for %s/%s", s.Kind, platform, action)
				}
			}
			overrides[platform+"/"+action] = list
		}
	}

	c.mu.Lock()
	c.overrides = overrides
	c.mu.Unlock()
	return nil
}

// Watch reloads the file whenever it changes. A broken edit keeps the
// previous catalog and logs the parse error.
func (c *Catalog) Watch(ctx context.Context, path string, log logger.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create selector watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace the file on
	// save, which would drop a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch selector dir: %w", err)
	}

	log = log.WithComponent("SelectorCatalog")
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := c.LoadFile(path); err != nil {
					log.Error("Failed to reload selector config", "error", err)
					continue
				}
				log.Info("Reloaded selector config", "path", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error("Selector watcher error", "error", err)
			}
		}
	}()
	return nil
}

func validKind(kind string) bool {
	switch kind {
	case KindAttr, KindCSS, KindText, KindXPath:
		return true
	}
	return false
}

// defaultStrategies is the compiled-in catalog, ordered most to least
// likely per action. Keys are platform/action.
var defaultStrategies = map[string][]Strategy{
	"instagram/logged-in-marker": {
		{Kind: KindAttr, Value: `aria-label=Home`},
		{Kind: KindCSS, Value: `img[alt*="profile picture"]`},
		{Kind: KindXPath, Value: `//a[contains(@href, "/direct/")]`},
	},
	"instagram/new-post-button": {
		{Kind: KindAttr, Value: `aria-label=New post`},
		{Kind: KindCSS, Value: `svg[aria-label="New post"]`},
		{Kind: KindText, Value: `Create`},
	},
	"instagram/file-input": {
		{Kind: KindCSS, Value: `input[type="file"]`},
		{Kind: KindXPath, Value: `//form//input[@accept]`},
	},
	"instagram/next-button": {
		{Kind: KindText, Value: `Next`},
		{Kind: KindXPath, Value: `//div[@role="button" and text()="Next"]`},
	},
	"instagram/caption-field": {
		{Kind: KindAttr, Value: `aria-label=Write a caption...`},
		{Kind: KindCSS, Value: `div[contenteditable="true"][role="textbox"]`},
		{Kind: KindXPath, Value: `//textarea[@aria-label]`},
	},
	"instagram/share-button": {
		{Kind: KindText, Value: `Share`},
		{Kind: KindXPath, Value: `//div[@role="button" and text()="Share"]`},
	},
	"instagram/success-marker": {
		{Kind: KindText, Value: `Your post has been shared`},
		{Kind: KindCSS, Value: `img[alt="Animated checkmark"]`},
	},
	"tiktok/logged-in-marker": {
		{Kind: KindCSS, Value: `[data-e2e="profile-icon"]`},
		{Kind: KindAttr, Value: `data-e2e=upload-icon`},
	},
	"tiktok/file-input": {
		{Kind: KindCSS, Value: `input[type="file"]`},
		{Kind: KindXPath, Value: `//input[@accept and @type="file"]`},
	},
	"tiktok/caption-field": {
		{Kind: KindCSS, Value: `div[contenteditable="true"]`},
		{Kind: KindCSS, Value: `.public-DraftEditor-content`},
		{Kind: KindAttr, Value: `data-e2e=caption-input`},
	},
	"tiktok/post-button": {
		{Kind: KindCSS, Value: `[data-e2e="post-button"]`},
		{Kind: KindText, Value: `Post`},
	},
	"tiktok/success-marker": {
		{Kind: KindCSS, Value: `[data-e2e="upload-success"]`},
		{Kind: KindText, Value: `Manage your posts`},
	},
}
