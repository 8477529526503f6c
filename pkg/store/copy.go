package store

import (
	"reflect"
)

// copyValue returns a structural deep copy of v. Maps, slices, arrays,
// pointers and interfaces are duplicated recursively; pointer cycles and
// shared pointers are preserved. Unexported struct fields are copied as
// they are, without descending into them. Channels and functions are shared.
func copyValue[T any](v T) T {
	var out T
	src := reflect.ValueOf(&v).Elem()
	c := copier{seen: make(map[visit]reflect.Value)}
	reflect.ValueOf(&out).Elem().Set(c.copy(src))
	return out
}

type visit struct {
	ptr uintptr
	typ reflect.Type
}

type copier struct {
	seen map[visit]reflect.Value
}

func (c copier) copy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := visit{v.Pointer(), v.Type()}
		if p, ok := c.seen[key]; ok {
			return p
		}
		p := reflect.New(v.Type().Elem())
		c.seen[key] = p
		p.Elem().Set(c.copy(v.Elem()))
		return p

	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(c.copy(v.Elem()))
		return out

	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := visit{v.Pointer(), v.Type()}
		if m, ok := c.seen[key]; ok {
			return m
		}
		m := reflect.MakeMapWithSize(v.Type(), v.Len())
		c.seen[key] = m
		iter := v.MapRange()
		for iter.Next() {
			m.SetMapIndex(c.copy(iter.Key()), c.copy(iter.Value()))
		}
		return m

	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		s := reflect.MakeSlice(v.Type(), v.Len(), v.Cap())
		for i := 0; i < v.Len(); i++ {
			s.Index(i).Set(c.copy(v.Index(i)))
		}
		return s

	case reflect.Array:
		a := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			a.Index(i).Set(c.copy(v.Index(i)))
		}
		return a

	case reflect.Struct:
		s := reflect.New(v.Type()).Elem()
		s.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if !v.Type().Field(i).IsExported() {
				continue
			}
			s.Field(i).Set(c.copy(v.Field(i)))
		}
		return s

	default:
		return v
	}
}
