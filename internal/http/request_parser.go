// Package http provides the JSON API server and its handlers.
//
// This file implements the helpers that read path values, query parameters
// and JSON bodies, turning malformed input into 400 responses.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks input the server could not parse at all.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errBadRequest)
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case errors.As(err, &maxErr):
			return badRequest("request body exceeds %d bytes", maxErr.Limit)
		default:
			return badRequest("malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}

// QueryParser collects query parameter errors so a handler can report
// them all at once.
type QueryParser struct {
	values map[string][]string
	errs   []string
}

func newQueryParser(r *http.Request) *QueryParser {
	return &QueryParser{values: r.URL.Query()}
}

func (p *QueryParser) get(key string) string {
	if v := p.values[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func (p *QueryParser) fail(key, raw string, err error) {
	p.errs = append(p.errs, fmt.Sprintf("%s=%q: %v", key, raw, err))
}

// ID returns nil when key is absent.
func (p *QueryParser) ID(key string) *int64 {
	raw := p.get(key)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		p.fail(key, raw, errors.New("must be a positive integer"))
		return nil
	}
	return &id
}

func (p *QueryParser) Int(key string, def int) int {
	raw := p.get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		p.fail(key, raw, errors.New("must be a non-negative integer"))
		return def
	}
	return n
}

// Date returns the zero date when key is absent.
func (p *QueryParser) Date(key string) core.Date {
	raw := p.get(key)
	if raw == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		p.fail(key, raw, errors.New("must be YYYY-MM-DD"))
	}
	return d
}

func (p *QueryParser) Bool(key string) bool {
	raw := p.get(key)
	if raw == "" {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, errors.New("must be a boolean"))
	}
	return b
}

func (p *QueryParser) Kind(key string) core.Kind {
	return core.Kind(strings.ToLower(p.get(key)))
}

// Err reports every malformed parameter seen so far.
func (p *QueryParser) Err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return badRequest("invalid query: %s", strings.Join(p.errs, "; "))
}

// optional distinguishes an absent JSON field from an explicit null.
type optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}
