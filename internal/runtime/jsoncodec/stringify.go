package jsoncodec

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// CircularMarker replaces a reference that points back to one of its own
// ancestors.
const CircularMarker = "[Circular]"

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	protoMessageType  = reflect.TypeOf((*proto.Message)(nil)).Elem()
)

// Stringify renders v as JSON for audit records. It never fails: cyclic
// object graphs are cut at the back reference, protobuf messages go through
// protojson and anything sonic still rejects is rendered through fmt as a
// JSON string, so the result is always valid JSON.
func Stringify(v any) string {
	if v == nil {
		return "null"
	}
	tree := acyclic(reflect.ValueOf(v), map[uintptr]struct{}{})
	data, err := Marshal(tree)
	if err != nil {
		data, _ = json.Marshal(fmt.Sprintf("%+v", tree))
	}
	return string(data)
}

// marshaler returns the value sonic should encode through its own
// MarshalJSON or MarshalText method, including pointer receivers reachable
// from an addressable value.
func marshaler(v reflect.Value) (any, bool) {
	implements := func(t reflect.Type) bool {
		return t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType)
	}
	if v.CanInterface() && implements(v.Type()) {
		return v.Interface(), true
	}
	if v.CanAddr() && v.Addr().CanInterface() && implements(reflect.PointerTo(v.Type())) {
		return v.Addr().Interface(), true
	}
	return nil, false
}

// acyclic copies v into plain maps, slices and scalars. ancestors holds the
// addresses on the current path only, so shared but acyclic references are
// rendered in full each time.
func acyclic(v reflect.Value, ancestors map[uintptr]struct{}) any {
	if !v.IsValid() {
		return nil
	}

	if v.Kind() == reflect.Ptr && !v.IsNil() && v.CanInterface() && v.Type().Implements(protoMessageType) {
		if data, err := protojson.Marshal(v.Interface().(proto.Message)); err == nil {
			return json.RawMessage(data)
		}
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return acyclic(v.Elem(), ancestors)

	case reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		if out, ok := marshaler(v); ok {
			return out
		}
		addr := v.Pointer()
		if _, seen := ancestors[addr]; seen {
			return CircularMarker
		}
		ancestors[addr] = struct{}{}
		defer delete(ancestors, addr)
		return acyclic(v.Elem(), ancestors)

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		addr := v.Pointer()
		if _, seen := ancestors[addr]; seen {
			return CircularMarker
		}
		ancestors[addr] = struct{}{}
		defer delete(ancestors, addr)

		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = acyclic(iter.Value(), ancestors)
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Bytes()
		}
		if v.Len() > 0 {
			addr := v.Pointer()
			if _, seen := ancestors[addr]; seen {
				return CircularMarker
			}
			ancestors[addr] = struct{}{}
			defer delete(ancestors, addr)
		}
		return sequence(v, ancestors)

	case reflect.Array:
		return sequence(v, ancestors)

	case reflect.Struct:
		if out, ok := marshaler(v); ok {
			return out
		}
		return fields(v, ancestors)

	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return fmt.Sprintf("[%s]", v.Type())

	default:
		if v.CanInterface() {
			return v.Interface()
		}
		return fmt.Sprint(v)
	}
}

func sequence(v reflect.Value, ancestors map[uintptr]struct{}) []any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = acyclic(v.Index(i), ancestors)
	}
	return out
}

func fields(v reflect.Value, ancestors map[uintptr]struct{}) map[string]any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		out[name] = acyclic(v.Field(i), ancestors)
	}
	return out
}
