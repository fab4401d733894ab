// Package catalog manages the operator's pool of candidate puzzles: a JSON
// file mapping each year to its six hints.
//
// File format:
//
//	{
//	  "puzzles": {"-44": [...], "1969": [...]},
//	  "meta": {"total_puzzles": 2, "date_range": "-44-1969"}
//	}
//
// Years are written in integer order, not string order, and meta is
// recomputed on every write. Hints are trimmed and NFC-normalised before
// validation so visually identical hints compare equal.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/yeardle/internal/puzzle"
)

var (
	// ErrExists is returned by Add when the year already has hints.
	ErrExists = errors.New("year already in catalog")

	// ErrMissing is returned by Update and Get-style lookups for an unknown year.
	ErrMissing = errors.New("year not in catalog")
)

// Meta summarises the catalog. It is derived, never edited by hand.
type Meta struct {
	TotalPuzzles int    `json:"total_puzzles"`
	DateRange    string `json:"date_range"`
}

// Catalog is an in-memory copy of the catalog file.
//
// Thread-safety: not safe for concurrent use.
type Catalog struct {
	puzzles map[int][]string
	schema  *schema
}

// New returns an empty catalog.
func New() (*Catalog, error) {
	s, err := newSchema()
	if err != nil {
		return nil, err
	}
	return &Catalog{puzzles: make(map[int][]string), schema: s}, nil
}

type fileDoc struct {
	Puzzles map[string][]string `json:"puzzles"`
	Meta    Meta                `json:"meta"`
}

// Load reads the catalog at path. A missing file is an empty catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New()
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a catalog document. Every entry must pass
// the schema; the stored meta is ignored and recomputed.
func Parse(data []byte) (*Catalog, error) {
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c, err := New()
	if err != nil {
		return nil, err
	}
	for key, hints := range doc.Puzzles {
		year, err := strconv.Atoi(key)
		if err != nil {
			return nil, puzzle.NewValidationError(puzzle.CodeInvalidPuzzle, "year",
				fmt.Sprintf("catalog key %q is not a year", key))
		}
		if err := c.set(year, hints); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add inserts hints for a new year.
func (c *Catalog) Add(year int, hints []string) error {
	if _, ok := c.puzzles[year]; ok {
		return fmt.Errorf("add %d: %w", year, ErrExists)
	}
	return c.set(year, hints)
}

// Update replaces the hints of an existing year.
func (c *Catalog) Update(year int, hints []string) error {
	if _, ok := c.puzzles[year]; !ok {
		return fmt.Errorf("update %d: %w", year, ErrMissing)
	}
	return c.set(year, hints)
}

func (c *Catalog) set(year int, hints []string) error {
	clean := normalize(hints)
	if err := c.schema.check(year, clean); err != nil {
		return err
	}
	c.puzzles[year] = clean
	return nil
}

// Get returns a copy of the hints for year.
func (c *Catalog) Get(year int) ([]string, bool) {
	h, ok := c.puzzles[year]
	if !ok {
		return nil, false
	}
	return slices.Clone(h), true
}

// Years returns every year in ascending order.
func (c *Catalog) Years() []int {
	return slices.Sorted(maps.Keys(c.puzzles))
}

// Meta computes the summary written alongside the puzzles.
func (c *Catalog) Meta() Meta {
	years := c.Years()
	m := Meta{TotalPuzzles: len(years)}
	if len(years) > 0 {
		m.DateRange = fmt.Sprintf("%d-%d", years[0], years[len(years)-1])
	}
	return m
}

// MarshalJSON writes puzzles keyed by year in integer order.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"puzzles":{`)
	for i, year := range c.Years() {
		if i > 0 {
			buf.WriteByte(',')
		}
		hints, err := marshalNoEscape(c.puzzles[year])
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "%q:", strconv.Itoa(year))
		buf.Write(hints)
	}
	buf.WriteString(`},"meta":`)
	meta, err := marshalNoEscape(c.Meta())
	if err != nil {
		return nil, err
	}
	buf.Write(meta)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Save writes the catalog to path with two-space indentation, replacing
// the file atomically.
func (c *Catalog) Save(path string) error {
	compact, err := c.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return fmt.Errorf("indent catalog: %w", err)
	}
	out.WriteByte('\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(out.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}

func normalize(hints []string) []string {
	out := make([]string, len(hints))
	for i, h := range hints {
		out[i] = norm.NFC.String(strings.TrimSpace(h))
	}
	return out
}

// marshalNoEscape encodes v without HTML escaping so hints like "AT&T"
// stay readable in the file.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
