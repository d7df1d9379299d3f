package runtime

import (
	"reflect"

	"google.golang.org/protobuf/proto"
)

// copyState returns a shallow copy of a module state so callers can mutate
// the top level of what they receive without touching the container. Maps
// and slices get a new backing store, pointers to structs point at a copied
// struct and protobuf messages are cloned. Other values are already copies.
func copyState(state any) any {
	if state == nil {
		return nil
	}
	if msg, ok := state.(proto.Message); ok {
		v := reflect.ValueOf(state)
		if v.Kind() == reflect.Ptr && v.IsNil() {
			return state
		}
		return proto.Clone(msg)
	}

	v := reflect.ValueOf(state)
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return state
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		return out.Interface()

	case reflect.Slice:
		if v.IsNil() {
			return state
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(out, v)
		return out.Interface()

	case reflect.Ptr:
		if v.IsNil() || v.Elem().Kind() != reflect.Struct {
			return state
		}
		out := reflect.New(v.Elem().Type())
		out.Elem().Set(v.Elem())
		return out.Interface()
	}
	return state
}
