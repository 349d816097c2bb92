// Package expr compiles and evaluates data selection expressions against in-memory step data.
package expr

import (
	"fmt"
	"reflect"
	"strconv"

	"go.flow.arcalot.io/expressions"
)

// Compile parses an expression string into its AST. The source name appears in parse error
// messages only.
func Compile(expression string, source string) (expressions.ASTNode, error) {
	parser, err := expressions.InitParser(expression, source)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize parser for expression %q (%w)", expression, err)
	}
	node, err := parser.ParseExpression()
	if err != nil {
		return nil, fmt.Errorf("failed to parse expression %q (%w)", expression, err)
	}
	return node, nil
}

// Evaluate resolves a compiled expression against the given data. The $ identifier refers to
// the root of the data.
func Evaluate(node expressions.ASTNode, data map[string]any) (any, error) {
	return walk(node, data, data)
}

func walk(node expressions.ASTNode, current any, root any) (any, error) {
	switch n := node.(type) {
	case *expressions.DotNotation:
		left, err := walk(n.LeftAccessableNode, current, root)
		if err != nil {
			return nil, err
		}
		return walk(n.RightAccessIdentifier, left, root)
	case *expressions.MapAccessor:
		left, err := walk(n.LeftNode, current, root)
		if err != nil {
			return nil, err
		}
		key, err := walk(n.RightKey, left, root)
		if err != nil {
			return nil, err
		}
		return lookup(left, key)
	case *expressions.Key:
		switch {
		case n.Literal != nil:
			return n.Literal.Value(), nil
		case n.SubExpression != nil:
			return walk(n.SubExpression, current, root)
		default:
			return nil, fmt.Errorf("bug: neither literal, nor subexpression are set on key")
		}
	case *expressions.Identifier:
		if n.IdentifierName == "$" {
			return root, nil
		}
		return lookup(current, n.IdentifierName)
	default:
		return nil, fmt.Errorf("unsupported AST node type: %T", n)
	}
}

func lookup(data any, key any) (any, error) {
	dataVal := reflect.ValueOf(data)
	switch dataVal.Kind() {
	case reflect.Map:
		indexValue := dataVal.MapIndex(reflect.ValueOf(key))
		if !indexValue.IsValid() {
			return nil, fmt.Errorf("map key %v not found", key)
		}
		return indexValue.Interface(), nil
	case reflect.Slice:
		var index int
		switch typed := key.(type) {
		case string:
			parsed, err := strconv.ParseInt(typed, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot parse %v as an integer index for a list", key)
			}
			index = int(parsed)
		case int:
			index = typed
		default:
			return nil, fmt.Errorf("unsupported list index type: %T", key)
		}
		if index < 0 || index >= dataVal.Len() {
			return nil, fmt.Errorf("index %d is out of range for the list (%d items)", index, dataVal.Len())
		}
		return dataVal.Index(index).Interface(), nil
	default:
		return nil, fmt.Errorf("cannot evaluate identifier %v on a %s", key, dataVal.Kind().String())
	}
}

// Truthy reports whether an evaluated value counts as true in a condition: false, nil, empty
// strings, zero numbers and empty collections are false, everything else is true.
func Truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case uint64:
		return typed != 0
	case float32:
		return typed != 0
	case float64:
		return typed != 0
	}
	reflected := reflect.ValueOf(value)
	switch reflected.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return reflected.Len() > 0
	default:
		return true
	}
}
