// Package theme holds the site-wide light/dark preference.
package theme

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tusharganotra/portfolio/internal/logging"
)

// Theme is the colour scheme applied to the root element.
type Theme string

const (
	Dark  Theme = "dark"
	Light Theme = "light"

	// Default applies when nothing valid is stored.
	Default = Dark

	// Key is the preference key the theme is persisted under.
	Key = "theme"
)

// Parse returns the theme named by s and whether s was valid.
func Parse(s string) (Theme, bool) {
	switch Theme(s) {
	case Dark, Light:
		return Theme(s), true
	}
	return "", false
}

// Opposite returns the other theme.
func (t Theme) Opposite() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Store is the durable key-value store the preference lives in.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Preference is the process-wide theme. It is read once at startup and only
// changes through Toggle.
type Preference struct {
	store Store

	mu      sync.RWMutex
	current Theme
}

// Load reads the stored theme, falling back to Default when absent or invalid.
func Load(ctx context.Context, store Store) (*Preference, error) {
	l := logging.WithComponent("theme")
	raw, ok, err := store.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("load theme: %w", err)
	}
	current := Default
	if ok {
		if t, valid := Parse(raw); valid {
			current = t
		} else {
			l.Warn("ignoring stored theme", slog.String("value", raw))
		}
	}
	l.Debug("theme loaded", slog.String("theme", string(current)))
	return &Preference{store: store, current: current}, nil
}

// Current returns the active theme.
func (p *Preference) Current() Theme {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Toggle flips the theme and persists it. On a write error the theme is left
// unchanged.
func (p *Preference) Toggle(ctx context.Context) (Theme, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.current.Opposite()
	if err := p.store.Set(ctx, Key, string(next)); err != nil {
		return p.current, fmt.Errorf("save theme: %w", err)
	}
	p.current = next
	return next, nil
}
