package tfidf

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Vector is a sparse term -> weight mapping. Absent terms weigh 0.
type Vector map[string]float64

// Corpus maps habit IDs to vectors and remembers insertion order, so ranking
// over it is reproducible.
type Corpus struct {
	ids     []string
	vectors map[string]Vector
}

// NewCorpus returns an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{vectors: make(map[string]Vector)}
}

// Set stores v under id. A new id is appended to the order; an existing id keeps its position.
func (c *Corpus) Set(id string, v Vector) {
	if c.vectors == nil {
		c.vectors = make(map[string]Vector)
	}
	if _, ok := c.vectors[id]; !ok {
		c.ids = append(c.ids, id)
	}
	c.vectors[id] = v
}

// Get returns the vector for id.
func (c *Corpus) Get(id string) (Vector, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.vectors[id]
	return v, ok
}

// Len returns the number of vectors.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

// IDs returns a copy of the ids in insertion order.
func (c *Corpus) IDs() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.ids...)
}

// MarshalJSON writes the corpus as a JSON object whose keys follow insertion order.
func (c *Corpus) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range c.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		vec := c.vectors[id]
		if vec == nil {
			vec = Vector{}
		}
		val, err := json.Marshal(vec)
		if err != nil {
			return nil, fmt.Errorf("marshal vector %q: %w", id, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a JSON object of id -> {term: weight}. Unlike ParseCorpus it
// rejects malformed entries.
func (c *Corpus) UnmarshalJSON(data []byte) error {
	parsed, dropped, err := ParseCorpus(data)
	if err != nil {
		return err
	}
	if dropped > 0 {
		return fmt.Errorf("corpus has %d malformed entries", dropped)
	}
	*c = *parsed
	return nil
}

// ParseCorpus parses a JSON object of id -> {term: weight}, keeping key order.
// Entries whose value is not an object of string -> number are skipped and counted
// in dropped. An error is returned only when data is not a JSON object.
func ParseCorpus(data []byte) (corpus *Corpus, dropped int, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, 0, fmt.Errorf("read corpus: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, 0, fmt.Errorf("corpus is not a JSON object")
	}
	corpus = NewCorpus()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, 0, fmt.Errorf("read corpus key: %w", err)
		}
		id, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, 0, fmt.Errorf("read corpus entry %q: %w", id, err)
		}
		vec, ok := parseVector(raw)
		if !ok {
			dropped++
			continue
		}
		corpus.Set(id, vec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, 0, fmt.Errorf("read corpus end: %w", err)
	}
	return corpus, dropped, nil
}

func parseVector(raw json.RawMessage) (Vector, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var vec Vector
	if err := json.Unmarshal(trimmed, &vec); err != nil {
		return nil, false
	}
	if vec == nil {
		vec = Vector{}
	}
	return vec, true
}
