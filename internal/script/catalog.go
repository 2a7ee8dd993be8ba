package script

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrDuplicateID is returned when two scripts share an id.
var ErrDuplicateID = errors.New("duplicate script id")

// Catalog holds the scripts a host can start sessions from.
type Catalog struct {
	mu      sync.RWMutex
	scripts map[string]*Script
}

// NewCatalog indexes scripts by id.
func NewCatalog(scripts ...*Script) (*Catalog, error) {
	c := &Catalog{scripts: make(map[string]*Script, len(scripts))}
	for _, s := range scripts {
		if s == nil {
			continue
		}
		if _, exists := c.scripts[s.ID()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, s.ID())
		}
		c.scripts[s.ID()] = s
	}
	return c, nil
}

// DefaultCatalog contains the canonical scripts.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(Canonical()...)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the script with the given id.
func (c *Catalog) Get(id string) (*Script, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.scripts[id]
	return s, ok
}

// All returns every script sorted by id.
func (c *Catalog) All() []*Script {
	c.mu.RLock()
	out := make([]*Script, 0, len(c.scripts))
	for _, s := range c.scripts {
		out = append(out, s)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len returns the number of scripts.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.scripts)
}

// LoadDir loads every *.json file under dir. A file whose id matches an
// existing entry replaces it. Invalid files are skipped; their errors are
// joined into the returned error alongside the count of scripts loaded.
func (c *Catalog) LoadDir(dir string) (int, error) {
	var (
		loaded   []*Script
		loadErrs []error
	)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			loadErrs = append(loadErrs, err)
			return nil
		}
		if d.IsDir() || strings.ToLower(filepath.Ext(d.Name())) != ".json" {
			return nil
		}

		s, err := loadFile(path)
		if err != nil {
			log.Printf("level=warn msg=\"script skipped\" path=%s err=%v", path, err)
			loadErrs = append(loadErrs, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		loaded = append(loaded, s)
		return nil
	})
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	c.mu.Lock()
	for _, s := range loaded {
		c.scripts[s.ID()] = s
	}
	c.mu.Unlock()

	return len(loaded), errors.Join(loadErrs...)
}

func loadFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadJSON(f)
}
