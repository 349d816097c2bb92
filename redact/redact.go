// Package redact provides masking proxies for handling sensitive values, letting diagnostics
// and logs show the shape of a data set without revealing selected contents.
package redact

import "sort"

// Redacted marks a value whose content must not be revealed. It renders as its replacement
// text wherever it is printed.
type Redacted struct {
	Text string
}

// String returns the replacement text.
func (r Redacted) String() string {
	return r.Text
}

// Value is the default replacement marker.
var Value = Redacted{Text: "<redacted>"}

// KeySet decides which keys of a proxied map are masked.
type KeySet interface {
	// Contains reports whether the given key is masked.
	Contains(key string) bool
}

type keySet map[string]struct{}

func (k keySet) Contains(key string) bool {
	_, ok := k[key]
	return ok
}

// Keys builds a literal KeySet from the given keys.
func Keys(keys ...string) KeySet {
	set := make(keySet, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}

type inverseSet struct {
	base KeySet
}

func (i inverseSet) Contains(key string) bool {
	return !i.base.Contains(key)
}

// Inverse returns the complement of a KeySet. This turns a mask list into an allow list:
// everything the base does not name is masked.
func Inverse(base KeySet) KeySet {
	return inverseSet{base}
}

// Map is a masking proxy over a string-keyed map. Reads of masked keys return the marker;
// writes and deletes go through to the underlying map unchanged. The underlying map is shared,
// not copied, so changes made directly to it show through the proxy.
type Map struct {
	// Marker replaces masked values on reads. Defaults to Value.
	Marker Redacted

	data   map[string]any
	masked KeySet
}

// NewMap creates a masking proxy over data. A nil masked set masks nothing.
func NewMap(data map[string]any, masked KeySet) *Map {
	return &Map{
		Marker: Value,
		data:   data,
		masked: masked,
	}
}

// Get returns the value of a key, replaced by the marker when the key is masked.
func (m *Map) Get(key string) (any, bool) {
	value, ok := m.data[key]
	if !ok {
		return nil, false
	}
	if m.masked != nil && m.masked.Contains(key) {
		return m.Marker, true
	}
	return value, true
}

// Raw returns the value of a key bypassing masking.
func (m *Map) Raw(key string) (any, bool) {
	value, ok := m.data[key]
	return value, ok
}

// Set writes a value through to the underlying map.
func (m *Map) Set(key string, value any) {
	m.data[key] = value
}

// Delete removes a key from the underlying map.
func (m *Map) Delete(key string) {
	delete(m.data, key)
}

// Keys returns the keys of the underlying map, sorted.
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries in the underlying map.
func (m *Map) Len() int {
	return len(m.data)
}

// Snapshot returns a masked copy of the underlying map, safe to hand to loggers.
func (m *Map) Snapshot() map[string]any {
	snapshot := make(map[string]any, len(m.data))
	for key := range m.data {
		value, _ := m.Get(key)
		snapshot[key] = value
	}
	return snapshot
}
