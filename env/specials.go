package env

import (
	"os"
	"sort"
	"strings"
)

// Special is a typed view over a single environment variable. Views interpret structured
// string values, such as the separator-joined directory list in PATH, and keep the raw
// variable synchronized with every typed mutation. Environment.Set and Environment.Delete
// defer to a registered view so the stored form stays normalized.
type Special interface {
	// Set assigns a raw value through the view, letting it reparse its typed state.
	Set(value string)
	// Delete clears the view's typed state along with the underlying variable.
	Delete()
	// Raw returns the current raw value of the underlying variable.
	Raw() (string, bool)
}

// SpecialFactory creates the view bound to one variable of one environment.
type SpecialFactory func(environ *Environment, name string) Special

// ListView presents a separator-joined environment variable, such as PATH, as an ordered list
// of items.
type ListView struct {
	env   *Environment
	name  string
	sep   string
	items []string
}

// NewListView is a SpecialFactory producing a ListView split on the system path list
// separator.
func NewListView(environ *Environment, name string) Special {
	return ListViewSeparated(string(os.PathListSeparator))(environ, name)
}

// ListViewSeparated returns a ListView factory splitting on the given separator.
func ListViewSeparated(sep string) SpecialFactory {
	return func(environ *Environment, name string) Special {
		view := &ListView{
			env:  environ,
			name: name,
			sep:  sep,
		}
		if raw, ok := environ.Get(name); ok {
			view.items = strings.Split(raw, sep)
		}
		return view
	}
}

// Set reparses the view from a raw value.
func (v *ListView) Set(value string) {
	v.items = strings.Split(value, v.sep)
	v.update()
}

// Delete clears the list along with the underlying variable.
func (v *ListView) Delete() {
	v.items = nil
	v.env.deleteRaw(v.name)
}

// Raw returns the current raw value of the underlying variable.
func (v *ListView) Raw() (string, bool) {
	return v.env.Get(v.name)
}

// Items returns a copy of the list items.
func (v *ListView) Items() []string {
	return append([]string(nil), v.items...)
}

// SetItems replaces the list items.
func (v *ListView) SetItems(items []string) {
	v.items = append([]string(nil), items...)
	v.update()
}

// Append adds items to the end of the list.
func (v *ListView) Append(items ...string) {
	v.items = append(v.items, items...)
	v.update()
}

// Insert adds an item at the given position.
func (v *ListView) Insert(index int, item string) {
	v.items = append(v.items, "")
	copy(v.items[index+1:], v.items[index:])
	v.items[index] = item
	v.update()
}

// Len returns the number of list items.
func (v *ListView) Len() int {
	return len(v.items)
}

func (v *ListView) update() {
	v.env.setRaw(v.name, strings.Join(v.items, v.sep))
}

// SetView presents a separator-joined environment variable as an unordered set of unique
// items. The stored form is sorted for determinism.
type SetView struct {
	env   *Environment
	name  string
	sep   string
	items map[string]struct{}
}

// NewSetView is a SpecialFactory producing a SetView split on the system path list separator.
func NewSetView(environ *Environment, name string) Special {
	return SetViewSeparated(string(os.PathListSeparator))(environ, name)
}

// SetViewSeparated returns a SetView factory splitting on the given separator.
func SetViewSeparated(sep string) SpecialFactory {
	return func(environ *Environment, name string) Special {
		view := &SetView{
			env:   environ,
			name:  name,
			sep:   sep,
			items: map[string]struct{}{},
		}
		if raw, ok := environ.Get(name); ok {
			view.parse(raw)
		}
		return view
	}
}

// Set reparses the view from a raw value.
func (v *SetView) Set(value string) {
	v.parse(value)
	v.update()
}

// Delete clears the set along with the underlying variable.
func (v *SetView) Delete() {
	v.items = map[string]struct{}{}
	v.env.deleteRaw(v.name)
}

// Raw returns the current raw value of the underlying variable.
func (v *SetView) Raw() (string, bool) {
	return v.env.Get(v.name)
}

// Contains reports whether an item is in the set.
func (v *SetView) Contains(item string) bool {
	_, ok := v.items[item]
	return ok
}

// Add inserts items into the set.
func (v *SetView) Add(items ...string) {
	for _, item := range items {
		v.items[item] = struct{}{}
	}
	v.update()
}

// Discard removes items from the set. Absent items are ignored.
func (v *SetView) Discard(items ...string) {
	for _, item := range items {
		delete(v.items, item)
	}
	v.update()
}

// Items returns the set items, sorted.
func (v *SetView) Items() []string {
	items := make([]string, 0, len(v.items))
	for item := range v.items {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

// Len returns the number of set items.
func (v *SetView) Len() int {
	return len(v.items)
}

func (v *SetView) parse(value string) {
	v.items = map[string]struct{}{}
	for _, item := range strings.Split(value, v.sep) {
		v.items[item] = struct{}{}
	}
}

func (v *SetView) update() {
	v.env.setRaw(v.name, strings.Join(v.Items(), v.sep))
}

// MapView presents an environment variable holding separator-joined "key=value" items as a
// mapping. Items without the key separator parse as keys with an empty value and render back
// without the separator. The stored form is sorted by key for determinism.
type MapView struct {
	env     *Environment
	name    string
	itemSep string
	keySep  string
	items   map[string]string
	bare    map[string]struct{}
}

// NewMapView is a SpecialFactory producing a MapView with the system path list separator
// between items and "=" between key and value.
func NewMapView(environ *Environment, name string) Special {
	return MapViewSeparated(string(os.PathListSeparator), "=")(environ, name)
}

// MapViewSeparated returns a MapView factory using the given item and key separators.
func MapViewSeparated(itemSep string, keySep string) SpecialFactory {
	return func(environ *Environment, name string) Special {
		view := &MapView{
			env:     environ,
			name:    name,
			itemSep: itemSep,
			keySep:  keySep,
			items:   map[string]string{},
			bare:    map[string]struct{}{},
		}
		if raw, ok := environ.Get(name); ok {
			view.parse(raw)
		}
		return view
	}
}

// Set reparses the view from a raw value.
func (v *MapView) Set(value string) {
	v.parse(value)
	v.update()
}

// Delete clears the mapping along with the underlying variable.
func (v *MapView) Delete() {
	v.items = map[string]string{}
	v.bare = map[string]struct{}{}
	v.env.deleteRaw(v.name)
}

// Raw returns the current raw value of the underlying variable.
func (v *MapView) Raw() (string, bool) {
	return v.env.Get(v.name)
}

// Get returns the value of a key.
func (v *MapView) Get(key string) (string, bool) {
	value, ok := v.items[key]
	return value, ok
}

// Put assigns a key.
func (v *MapView) Put(key string, value string) {
	v.items[key] = value
	delete(v.bare, key)
	v.update()
}

// Remove deletes a key. Removing an absent key is a no-op.
func (v *MapView) Remove(key string) {
	delete(v.items, key)
	delete(v.bare, key)
	v.update()
}

// Keys returns the mapping's keys, sorted.
func (v *MapView) Keys() []string {
	keys := make([]string, 0, len(v.items))
	for key := range v.items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of mapping entries.
func (v *MapView) Len() int {
	return len(v.items)
}

func (v *MapView) parse(value string) {
	v.items = map[string]string{}
	v.bare = map[string]struct{}{}
	for _, item := range strings.Split(value, v.itemSep) {
		key, itemValue, found := strings.Cut(item, v.keySep)
		v.items[key] = itemValue
		if !found {
			v.bare[key] = struct{}{}
		}
	}
}

func (v *MapView) update() {
	rendered := make([]string, 0, len(v.items))
	for _, key := range v.Keys() {
		if _, ok := v.bare[key]; ok {
			rendered = append(rendered, key)
			continue
		}
		rendered = append(rendered, key+v.keySep+v.items[key])
	}
	v.env.setRaw(v.name, strings.Join(rendered, v.itemSep))
}
