package patient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Collection is the full id -> record mapping. Iteration follows insertion
// order; replacing a record keeps its position.
type Collection struct {
	order []string
	items map[string]*Patient
}

func NewCollection() *Collection {
	return &Collection{items: make(map[string]*Patient)}
}

func (c *Collection) Len() int { return len(c.order) }

func (c *Collection) Has(id string) bool {
	_, ok := c.items[id]
	return ok
}

func (c *Collection) Get(id string) (*Patient, bool) {
	p, ok := c.items[id]
	return p, ok
}

// Put inserts p at the end, or replaces the record with the same id in place.
func (c *Collection) Put(p *Patient) {
	if _, ok := c.items[p.ID]; !ok {
		c.order = append(c.order, p.ID)
	}
	c.items[p.ID] = p
}

// IDs returns the keys in iteration order.
func (c *Collection) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// All returns the records in iteration order.
func (c *Collection) All() []*Patient {
	out := make([]*Patient, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// Clone returns a deep copy.
func (c *Collection) Clone() *Collection {
	out := &Collection{
		order: make([]string, len(c.order)),
		items: make(map[string]*Patient, len(c.items)),
	}
	copy(out.order, c.order)
	for id, p := range c.items {
		cp := *p
		out.items[id] = &cp
	}
	return out
}

// MarshalJSON writes the persisted layout: an object keyed by id whose values
// carry the stored fields only.
func (c *Collection) MarshalJSON() ([]byte, error) {
	return marshalOrdered(c, func(p *Patient) any { return toStored(p) })
}

// UnmarshalJSON reads the persisted layout, keeping the key order of the
// document. A JSON null yields an empty collection.
func (c *Collection) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode patient collection: %w", err)
	}
	out := NewCollection()
	if tok == nil {
		*c = *out
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("decode patient collection: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode patient collection: %w", err)
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decode patient collection: unexpected key %v", tok)
		}
		var rec storedRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("decode patient %q: %w", id, err)
		}
		out.Put(rec.patient(id))
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode patient collection: %w", err)
	}
	*c = *out
	return nil
}

// WithDerived wraps the collection for API output: the same ordered object,
// with bmi and verdict computed per record.
func (c *Collection) WithDerived() json.Marshaler {
	return derivedCollection{c}
}

type derivedCollection struct{ c *Collection }

func (d derivedCollection) MarshalJSON() ([]byte, error) {
	return marshalOrdered(d.c, func(p *Patient) any { return p.View() })
}

func marshalOrdered(c *Collection, value func(*Patient) any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range c.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(value(c.items[id]))
		if err != nil {
			return nil, fmt.Errorf("encode patient %q: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
