package frameworks

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Persister keeps catalog edits across restarts.
type Persister interface {
	Save(ctx context.Context, f Framework) error
	List(ctx context.Context) ([]Framework, error)
}

// Catalog holds the configured frameworks. Reads return copies, so callers
// can keep what they got without seeing later edits.
type Catalog struct {
	mu    sync.RWMutex
	items map[string]Framework
	order []string
	store Persister
}

func NewCatalog(frameworks ...Framework) (*Catalog, error) {
	c := &Catalog{items: map[string]Framework{}}
	for _, f := range frameworks {
		if _, err := c.Upsert(context.Background(), f); err != nil {
			return nil, err
		}
	}
	return c, nil
}

type catalogFile struct {
	Frameworks []Framework `yaml:"frameworks"`
}

// LoadFile reads frameworks from a YAML document with a top-level `frameworks:` list.
func LoadFile(path string) ([]Framework, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frameworks file: %w", err)
	}
	var parsed catalogFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("frameworks file %s: %w", path, err)
	}
	for i, f := range parsed.Frameworks {
		if err := Validate(f); err != nil {
			return nil, fmt.Errorf("frameworks file %s: entry %d: %w", path, i, err)
		}
	}
	return parsed.Frameworks, nil
}

// Load returns a catalog from path, or the built-in frameworks when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return NewCatalog(Defaults()...)
	}
	frameworks, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if len(frameworks) == 0 {
		return NewCatalog(Defaults()...)
	}
	return NewCatalog(frameworks...)
}

func Validate(f Framework) error {
	if strings.TrimSpace(f.ID) == "" || strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidFramework)
	}
	seen := map[string]struct{}{}
	for _, category := range f.Categories {
		if strings.TrimSpace(category.ID) == "" {
			return fmt.Errorf("%w: category id required", ErrInvalidFramework)
		}
		if _, ok := seen[category.ID]; ok {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidFramework, category.ID)
		}
		seen[category.ID] = struct{}{}
	}
	if len(f.RatingScale) == 0 {
		return fmt.Errorf("%w: rating scale is empty", ErrInvalidFramework)
	}
	values := map[float64]struct{}{}
	for _, entry := range f.RatingScale {
		if _, ok := values[entry.Value]; ok {
			return fmt.Errorf("%w: duplicate scale value %v", ErrInvalidFramework, entry.Value)
		}
		values[entry.Value] = struct{}{}
	}
	return nil
}

func (c *Catalog) Get(id string) (Framework, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.items[id]
	if !ok {
		return Framework{}, ErrFrameworkNotFound
	}
	return f.clone(), nil
}

func (c *Catalog) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[id]
	return ok
}

// Snapshot is Get under the name evaluations use when they freeze a framework.
func (c *Catalog) Snapshot(id string) (Framework, error) {
	return c.Get(id)
}

func (c *Catalog) List() []Framework {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Framework, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id].clone())
	}
	return out
}

// Attach overlays the frameworks saved in store onto the configured ones and
// writes later edits through to it.
func (c *Catalog) Attach(ctx context.Context, store Persister) error {
	saved, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("load saved frameworks: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range saved {
		if err := Validate(f); err != nil {
			return fmt.Errorf("saved framework %s: %w", f.ID, err)
		}
		if _, ok := c.items[f.ID]; !ok {
			c.order = append(c.order, f.ID)
		}
		c.items[f.ID] = f.clone()
	}
	c.store = store
	return nil
}

// Upsert stores f and bumps its version. With a store attached the edit is
// saved first and the catalog is left unchanged when saving fails.
func (c *Catalog) Upsert(ctx context.Context, f Framework) (Framework, error) {
	if err := Validate(f); err != nil {
		return Framework{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := f.clone()
	prev, exists := c.items[f.ID]
	stored.Version = 1
	if exists {
		stored.Version = prev.Version + 1
	}
	if c.store != nil {
		if err := c.store.Save(ctx, stored); err != nil {
			return Framework{}, fmt.Errorf("save framework %s: %w", f.ID, err)
		}
	}
	if !exists {
		c.order = append(c.order, f.ID)
	}
	c.items[f.ID] = stored
	return stored.clone(), nil
}
