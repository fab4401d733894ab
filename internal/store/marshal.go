package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/yeardle/internal/day"
)

// marshalEvents converts puzzle hints to JSON TEXT for storage.
// HTML escaping is disabled so hints are stored as written.
func marshalEvents(events []string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(events); err != nil {
		return "", fmt.Errorf("marshal events: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalEvents parses the JSON TEXT hint list.
func unmarshalEvents(data string) ([]string, error) {
	var events []string
	if err := json.Unmarshal([]byte(data), &events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	return events, nil
}

// formatTime stores instants as RFC 3339 UTC text so the first ten
// characters are the completion day.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil, fmt.Errorf("parse time %q: %w", ns.String, err)
	}
	return &t, nil
}

func nullDay(d *day.Day) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDay(ns sql.NullString) (*day.Day, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := day.Parse(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
