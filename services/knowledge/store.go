// Package knowledge holds the curated title/text entries behind the chatbot.
//
// A Store is loaded once at startup and never mutated afterwards: it has no
// exported mutators and every accessor returns a copy. It serves both the
// keyword fallback search and the offline index build.
package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry is a single knowledge base item. Title is unique within a Store.
type Entry struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Store is an ordered, read-only mapping from title to text.
type Store struct {
	entries []Entry
}

// Load reads a JSON object file of title -> text pairs.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base %s: %w", path, err)
	}
	store, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base %s: %w", path, err)
	}
	return store, nil
}

// Parse decodes a JSON object of title -> text pairs, keeping file order.
// A repeated title keeps its first position and takes the last value,
// matching how a JSON object decoder treats duplicate keys.
func Parse(r io.Reader) (*Store, error) {
	entries, err := decodeOrdered(json.NewDecoder(r))
	if err != nil {
		return nil, err
	}
	return NewStore(entries), nil
}

// NewStore builds a Store from entries. The slice is copied.
func NewStore(entries []Entry) *Store {
	s := &Store{entries: make([]Entry, 0, len(entries))}
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		if i, ok := seen[e.Title]; ok {
			s.entries[i].Text = e.Text
			continue
		}
		seen[e.Title] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return s
}

// All returns every entry in store order.
func (s *Store) All() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Search returns entries whose title or text contains query, ignoring case,
// in store order and truncated to topK. A topK below 1 yields no results.
func (s *Store) Search(query string, topK int) []Entry {
	if topK < 1 {
		return []Entry{}
	}
	needle := strings.ToLower(query)
	out := make([]Entry, 0, min(topK, len(s.entries)))
	for _, e := range s.entries {
		if strings.Contains(strings.ToLower(e.Title), needle) || strings.Contains(strings.ToLower(e.Text), needle) {
			out = append(out, e)
			if len(out) == topK {
				break
			}
		}
	}
	return out
}

// MarshalJSON writes the store back as a JSON object in store order.
func (s *Store) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Title)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeOrdered reads a top-level JSON object of string values token by
// token so that key order survives decoding.
func decodeOrdered(dec *json.Decoder) ([]Entry, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object at top level")
	}

	var entries []Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		title, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", tok)
		}
		var text string
		if err := dec.Decode(&text); err != nil {
			return nil, fmt.Errorf("entry %q: value must be a string: %w", title, err)
		}
		entries = append(entries, Entry{Title: title, Text: text})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level object")
	}
	return entries, nil
}
