package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ScrapeResult maps category names to ordered values. Iteration order is
// insertion order; every formatter relies on it.
type ScrapeResult struct {
	m *orderedmap.OrderedMap[string, []string]
}

// NewScrapeResult returns an empty result.
func NewScrapeResult() *ScrapeResult {
	return &ScrapeResult{m: orderedmap.New[string, []string]()}
}

// Set stores a copy of values under category. An existing category keeps
// its position.
func (r *ScrapeResult) Set(category string, values ...string) {
	if values == nil {
		values = []string{}
	}
	r.m.Set(category, slices.Clone(values))
}

// Get returns a copy of the values stored under category.
func (r *ScrapeResult) Get(category string) ([]string, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.m.Get(category)
	return slices.Clone(v), ok
}

func (r *ScrapeResult) Len() int {
	if r == nil {
		return 0
	}
	return r.m.Len()
}

// Categories returns the category names in order.
func (r *ScrapeResult) Categories() []string {
	out := make([]string, 0, r.Len())
	r.Each(func(category string, _ []string) {
		out = append(out, category)
	})
	return out
}

// Each calls fn for every category in order. fn must not retain values.
func (r *ScrapeResult) Each(fn func(category string, values []string)) {
	if r == nil {
		return
	}
	for pair := r.m.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// MaxLen is the length of the longest category.
func (r *ScrapeResult) MaxLen() int {
	longest := 0
	r.Each(func(_ string, values []string) {
		longest = max(longest, len(values))
	})
	return longest
}

func (r *ScrapeResult) Clone() *ScrapeResult {
	if r == nil {
		return nil
	}
	out := NewScrapeResult()
	r.Each(func(category string, values []string) {
		out.Set(category, values...)
	})
	return out
}

// Filter returns the categories named in types, in this result's order.
// An empty types keeps everything.
func (r *ScrapeResult) Filter(types []ElementType) *ScrapeResult {
	if len(types) == 0 {
		return r.Clone()
	}
	out := NewScrapeResult()
	r.Each(func(category string, values []string) {
		if slices.Contains(types, ElementType(category)) {
			out.Set(category, values...)
		}
	})
	return out
}

// Equal compares categories, their order and their values.
func (r *ScrapeResult) Equal(o *ScrapeResult) bool {
	if r.Len() != o.Len() {
		return false
	}
	if !slices.Equal(r.Categories(), o.Categories()) {
		return false
	}
	equal := true
	r.Each(func(category string, values []string) {
		other, _ := o.Get(category)
		if !slices.Equal(values, other) {
			equal = false
		}
	})
	return equal
}

// MarshalJSON writes a compact object in category order. Strings are not
// HTML-escaped.
func (r *ScrapeResult) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var err error
	r.Each(func(category string, values []string) {
		if err != nil {
			return
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err = writeJSONValue(&buf, category); err != nil {
			return
		}
		buf.WriteByte(':')
		err = writeJSONValue(&buf, values)
	})
	if err != nil {
		return nil, fmt.Errorf("encoding scrape result: %w", err)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of string arrays, keeping key order.
func (r *ScrapeResult) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, []string]()
	if err := m.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decoding scrape result: %w", err)
	}
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			pair.Value = []string{}
		}
	}
	r.m = m
	return nil
}

func writeJSONValue(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
