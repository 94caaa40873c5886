// Package catalog holds the registry of valid competitors together with the
// GeoJSON they are displayed with.
package catalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"strings"
)

// Competitor is one catalog row. Center is a GeoJSON Point and Shape any
// GeoJSON geometry; both are kept verbatim.
type Competitor struct {
	Name   string          `json:"name"`
	Center json.RawMessage `json:"center"`
	Shape  json.RawMessage `json:"-"`
}

// Catalog is an immutable, read-only registry safe for concurrent use.
type Catalog struct {
	byName map[string]Competitor
	names  []string // sorted
}

var header = []string{"name", "center", "shape"}

// Load reads a catalog from a CSV file with a name,center,shape header.
func Load(ctx context.Context, path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return FromReader(ctx, f)
}

// FromReader parses catalog CSV from r. Rows with a duplicate name are
// ignored after the first one.
func FromReader(_ context.Context, r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w: %w", ErrInvalidCatalog, err)
	}
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(head[i])) != h {
			return nil, fmt.Errorf("column %d is %q, want %q: %w", i, head[i], h, ErrInvalidCatalog)
		}
	}

	c := &Catalog{byName: make(map[string]Competitor)}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %w", line, ErrInvalidCatalog, err)
		}
		name := strings.TrimSpace(rec[0])
		if name == "" {
			return nil, fmt.Errorf("line %d: empty name: %w", line, ErrInvalidCatalog)
		}
		if _, dup := c.byName[name]; dup {
			continue
		}
		center, shape := json.RawMessage(rec[1]), json.RawMessage(rec[2])
		if !json.Valid(center) || !json.Valid(shape) {
			return nil, fmt.Errorf("line %d (%s): malformed GeoJSON: %w", line, name, ErrInvalidCatalog)
		}
		c.byName[name] = Competitor{Name: name, Center: center, Shape: shape}
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Len returns the number of competitors.
func (c *Catalog) Len() int { return len(c.names) }

// Names returns every competitor name, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Contains reports whether name is a known competitor.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Get returns the competitor called name.
func (c *Catalog) Get(name string) (Competitor, error) {
	comp, ok := c.byName[name]
	if !ok {
		return Competitor{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return comp, nil
}

// Shape returns the stored GeoJSON geometry for name.
func (c *Catalog) Shape(name string) (json.RawMessage, error) {
	comp, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	return comp.Shape, nil
}

// RandomPair draws two distinct competitors uniformly.
func (c *Catalog) RandomPair(rng *rand.Rand) ([2]Competitor, error) {
	n := len(c.names)
	if n < 2 {
		return [2]Competitor{}, ErrTooFewCompetitors
	}
	i := rng.IntN(n)
	j := rng.IntN(n - 1)
	if j >= i {
		j++
	}
	return [2]Competitor{c.byName[c.names[i]], c.byName[c.names[j]]}, nil
}
