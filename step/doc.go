// Package step provides the data model and execution machinery for declarative steps. A step
// configuration is a mapping whose keys select metadata, modifiers, and exactly one action; this
// package parses such configurations against a registry of providers, resolves the modifier
// execution order from the declared constraints, and runs the resulting chain with well-defined
// abort and skip semantics.
package step
