package step

import (
	"errors"
	"reflect"
)

// TranslateValidation converts a schema validation failure into an addressed ValidationError.
// An error qualifies if it structurally exposes the failing sub-path (an exported slice field
// named Path holding string or integer elements) and a message (an exported string field named
// Message); the sub-path extends addr, string elements as keys and integer elements as
// indices. The match is by shape, not by type, so any validation library with a compatible
// error works, including the pluginsdk schema package's ConstraintError. Errors without that
// shape, and nil, are returned unchanged.
func TranslateValidation(addr Address, err error) error {
	for candidate := err; candidate != nil; candidate = errors.Unwrap(candidate) {
		message, path, ok := validationShape(candidate)
		if !ok {
			continue
		}
		for _, elem := range path {
			switch typed := elem.(type) {
			case string:
				addr = addr.Key(typed)
			case int:
				addr = addr.Index(typed)
			}
		}
		return &ValidationError{
			Address: addr,
			Message: message,
			Cause:   err,
		}
	}
	return err
}

func validationShape(err error) (string, []any, bool) {
	value := reflect.ValueOf(err)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return "", nil, false
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return "", nil, false
	}
	messageField := value.FieldByName("Message")
	if !messageField.IsValid() || messageField.Kind() != reflect.String {
		return "", nil, false
	}
	pathField := value.FieldByName("Path")
	if !pathField.IsValid() || pathField.Kind() != reflect.Slice {
		return "", nil, false
	}
	path := make([]any, pathField.Len())
	for i := 0; i < pathField.Len(); i++ {
		elem := pathField.Index(i)
		for elem.Kind() == reflect.Interface {
			if elem.IsNil() {
				return "", nil, false
			}
			elem = elem.Elem()
		}
		switch elem.Kind() {
		case reflect.String:
			path[i] = elem.String()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			path[i] = int(elem.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			path[i] = int(elem.Uint())
		default:
			return "", nil, false
		}
	}
	message := messageField.String()
	if message == "" {
		message = err.Error()
	}
	return message, path, true
}
