package model

import (
	"bytes"
	"encoding/json"
)

// Field is one key/value pair of a Record.
type Field struct {
	Key   string
	Value string
}

// Record is an ordered string-to-string mapping extracted from one log line.
// Field order is insertion order and is preserved through merging and
// serialization, so output columns always line up with the source grammar.
type Record struct {
	fields []Field
	index  map[string]int
}

func NewRecord() *Record {
	return &Record{index: make(map[string]int)}
}

// Set inserts a field, or overwrites the value in place when the key already
// exists. Overwriting keeps the original position.
func (r *Record) Set(key, value string) *Record {
	if i, ok := r.index[key]; ok {
		r.fields[i].Value = value
		return r
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: value})
	return r
}

func (r *Record) Get(key string) (string, bool) {
	i, ok := r.index[key]
	if !ok {
		return "", false
	}
	return r.fields[i].Value, true
}

func (r *Record) Len() int {
	return len(r.fields)
}

// Fields returns the fields in insertion order. The slice is shared; callers
// must not mutate it.
func (r *Record) Fields() []Field {
	return r.fields
}

// Clone returns an independent copy with the same field order.
func (r *Record) Clone() *Record {
	c := &Record{
		fields: make([]Field, len(r.fields)),
		index:  make(map[string]int, len(r.index)),
	}
	copy(c.fields, r.fields)
	for k, v := range r.index {
		c.index[k] = v
	}
	return c
}

// MarshalJSON renders the record as a single-line JSON object whose member
// order matches field insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
