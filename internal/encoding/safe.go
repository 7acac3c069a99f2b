package encoding

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// CircularMarker replaces a reference that points back into its own ancestry.
const CircularMarker = "[Circular]"

var (
	errorType         = reflect.TypeOf((*error)(nil)).Elem()
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	numberType        = reflect.TypeOf(json.Number(""))

	// jsonNumberPattern is the JSON number grammar; strconv also accepts
	// forms such as "Inf" and hex floats that JSON does not.
	jsonNumberPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)
)

// visitKey identifies a reference. The type is part of the key because a
// struct and its first field share an address.
type visitKey struct {
	typ reflect.Type
	ptr uintptr
	len int
}

// sanitizer tracks the references on the active walk path.
type sanitizer struct {
	visiting map[visitKey]struct{}
}

// Sanitize returns a copy of v made only of map[string]any, []any, []byte,
// strings, bools, numbers and nil. v itself is never modified. A valid
// json.Number is kept as is so the JSON codec writes its digits unchanged.
//
// Maps, slices and pointers are tracked while their contents are walked; a
// value that reaches one of them again becomes CircularMarker. A reference
// shared by siblings is not a cycle and is rendered in full each time.
func Sanitize(v any) any {
	s := sanitizer{visiting: make(map[visitKey]struct{})}
	return s.value(reflect.ValueOf(v))
}

func (s *sanitizer) enter(key visitKey) bool {
	if _, ok := s.visiting[key]; ok {
		return false
	}
	s.visiting[key] = struct{}{}
	return true
}

func (s *sanitizer) leave(key visitKey) {
	delete(s.visiting, key)
}

func (s *sanitizer) value(v reflect.Value) any {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	if leaf, ok := s.marshaled(v); ok {
		return leaf
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case reflect.String:
		return v.String()
	case reflect.Map:
		return s.mapValue(v)
	case reflect.Slice:
		return s.sliceValue(v)
	case reflect.Array:
		return s.elements(v)
	case reflect.Pointer:
		return s.pointerValue(v)
	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		s.fields(v, out)
		return out
	default:
		// funcs, chans, complex numbers and unsafe pointers have no JSON form
		return nil
	}
}

// marshaled renders values that know how to describe themselves.
func (s *sanitizer) marshaled(v reflect.Value) (any, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	t := v.Type()

	if t == numberType {
		n := json.Number(v.String())
		if !jsonNumberPattern.MatchString(string(n)) {
			return string(n), true
		}
		return n, true
	}

	if t.Implements(jsonMarshalerType) {
		raw, err := v.Interface().(json.Marshaler).MarshalJSON()
		if err != nil {
			return nil, true
		}
		out, err := DecodeJSON(raw)
		if err != nil {
			return nil, true
		}
		return Sanitize(out), true
	}

	if t.Implements(errorType) {
		return v.Interface().(error).Error(), true
	}

	if t.Implements(textMarshalerType) {
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return nil, true
		}
		return string(text), true
	}

	return nil, false
}

func (s *sanitizer) mapValue(v reflect.Value) any {
	if v.IsNil() {
		return nil
	}
	key := visitKey{typ: v.Type(), ptr: v.Pointer()}
	if !s.enter(key) {
		return CircularMarker
	}
	defer s.leave(key)

	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		out[mapKey(iter.Key())] = s.value(iter.Value())
	}
	return out
}

func (s *sanitizer) sliceValue(v reflect.Value) any {
	if v.IsNil() {
		return nil
	}
	if v.Type().Elem().Kind() == reflect.Uint8 {
		b := make([]byte, v.Len())
		reflect.Copy(reflect.ValueOf(b), v)
		return b
	}
	if v.Len() == 0 {
		return []any{}
	}

	key := visitKey{typ: v.Type(), ptr: v.Pointer(), len: v.Len()}
	if !s.enter(key) {
		return CircularMarker
	}
	defer s.leave(key)

	return s.elements(v)
}

func (s *sanitizer) elements(v reflect.Value) []any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = s.value(v.Index(i))
	}
	return out
}

func (s *sanitizer) pointerValue(v reflect.Value) any {
	key := visitKey{typ: v.Type(), ptr: v.Pointer()}
	if !s.enter(key) {
		return CircularMarker
	}
	defer s.leave(key)

	return s.value(v.Elem())
}

// fields copies the exported fields of struct v into out following the
// encoding/json tag conventions. Embedded structs without a tag name are
// flattened into the parent.
func (s *sanitizer) fields(v reflect.Value, out map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, omitEmpty, skip := parseTag(f)
		if skip {
			continue
		}
		fv := v.Field(i)

		if f.Anonymous && name == "" {
			if s.embedded(fv, out) {
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if omitEmpty && isEmptyValue(fv) {
			continue
		}
		out[name] = s.value(fv)
	}
}

// embedded flattens an embedded struct (or pointer to struct) into out.
// It reports false when fv is not a struct and must be handled as a field.
func (s *sanitizer) embedded(fv reflect.Value, out map[string]any) bool {
	if fv.Kind() == reflect.Pointer {
		if fv.Type().Elem().Kind() != reflect.Struct {
			return false
		}
		if fv.IsNil() {
			return true
		}
		key := visitKey{typ: fv.Type(), ptr: fv.Pointer()}
		if !s.enter(key) {
			return true
		}
		defer s.leave(key)
		fv = fv.Elem()
	}
	if fv.Kind() != reflect.Struct {
		return false
	}
	s.fields(fv, out)
	return true
}

func parseTag(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if k.CanInterface() && k.Type().Implements(textMarshalerType) {
		if text, err := k.Interface().(encoding.TextMarshaler).MarshalText(); err == nil {
			return string(text)
		}
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	}
	if k.CanInterface() {
		return fmt.Sprint(k.Interface())
	}
	return k.String()
}
