package step

import (
	"strconv"
)

// Address locates a configuration element within a step document. Addresses are immutable, the
// derivation methods return new values. They serve diagnostics only and never drive execution
// decisions.
type Address struct {
	source string
	path   string
}

// NewAddress creates a root address for the named configuration source. The source may be empty
// for programmatically assembled configurations.
func NewAddress(source string) Address {
	return Address{source: source}
}

// Key derives the address of a mapping entry below this address.
func (a Address) Key(key string) Address {
	if a.path == "" {
		return Address{a.source, key}
	}
	return Address{a.source, a.path + "." + key}
}

// Index derives the address of a sequence item below this address.
func (a Address) Index(i int) Address {
	return Address{a.source, a.path + "[" + strconv.Itoa(i) + "]"}
}

// Source returns the name of the configuration source, if any.
func (a Address) Source() string {
	return a.source
}

// Path returns the rendered path without the source prefix.
func (a Address) Path() string {
	return a.path
}

// String renders the address, for example "steps.yaml:steps[2].modifiers.when".
func (a Address) String() string {
	switch {
	case a.source == "":
		return a.path
	case a.path == "":
		return a.source
	default:
		return a.source + ":" + a.path
	}
}
