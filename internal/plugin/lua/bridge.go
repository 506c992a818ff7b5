package lua

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// ToGo converts a Lua value to its closest Go equivalent. Numbers become
// int64 when they carry no fractional part, tables become []any or
// map[string]any, functions convert to nil. Cycles are broken by
// substituting nil for the repeated table.
func ToGo(lv lua.LValue) any {
	return toGo(lv, make(map[*lua.LTable]bool))
}

func toGo(lv lua.LValue, seen map[*lua.LTable]bool) any {
	if lv == nil {
		return nil
	}

	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if seen[v] {
			return nil
		}
		seen[v] = true
		return tableToGo(v, seen)
	case *lua.LNilType:
		return nil
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

// tableToGo converts a table to a slice when its keys are the contiguous
// integers 1..n, and to a string-keyed map otherwise.
func tableToGo(t *lua.LTable, seen map[*lua.LTable]bool) any {
	maxN := 0
	count := 0
	sequence := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		kn, ok := k.(lua.LNumber)
		if !ok || float64(kn) != float64(int(kn)) || int(kn) < 1 {
			sequence = false
			return
		}
		if int(kn) > maxN {
			maxN = int(kn)
		}
	})

	if sequence && maxN > 0 && count == maxN {
		out := make([]any, maxN)
		for i := 1; i <= maxN; i++ {
			out[i-1] = toGo(t.RawGetInt(i), seen)
		}
		return out
	}

	out := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		out[key] = toGo(v, seen)
	})
	return out
}

// ToGoMap converts a Lua table to a map[string]any. A nil table yields an
// empty map; a sequence table is keyed by its stringified indexes.
func ToGoMap(t *lua.LTable) map[string]any {
	if t == nil {
		return map[string]any{}
	}
	v := tableToGo(t, map[*lua.LTable]bool{t: true})
	if m, ok := v.(map[string]any); ok {
		return m
	}
	// Sequence table: re-key by index.
	seq := v.([]any)
	m := make(map[string]any, len(seq))
	for i, item := range seq {
		m[fmt.Sprintf("%d", i+1)] = item
	}
	return m
}

// ToLua converts a Go value to a Lua value allocated on L. Unhandled
// types fall back to reflection; anything still unconvertible is wrapped
// in userdata.
func ToLua(L *lua.LState, v any) lua.LValue {
	if v == nil {
		return lua.LNil
	}

	switch val := v.(type) {
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int8:
		return lua.LNumber(val)
	case int16:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case []any:
		t := L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, ToLua(L, item))
		}
		return t
	case []string:
		t := L.NewTable()
		for i, s := range val {
			t.RawSetInt(i+1, lua.LString(s))
		}
		return t
	case []int:
		t := L.NewTable()
		for i, n := range val {
			t.RawSetInt(i+1, lua.LNumber(n))
		}
		return t
	case map[string]any:
		return MapToTable(L, val)
	case map[string]string:
		t := L.NewTable()
		for k, s := range val {
			t.RawSetString(k, lua.LString(s))
		}
		return t
	case lua.LValue:
		return val
	default:
		return reflectToLua(L, v)
	}
}

// MapToTable converts a Go map to a Lua table on L.
func MapToTable(L *lua.LState, m map[string]any) *lua.LTable {
	t := L.NewTable()
	for k, v := range m {
		t.RawSetString(k, ToLua(L, v))
	}
	return t
}

func reflectToLua(L *lua.LState, v any) lua.LValue {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return lua.LNil
	}

	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return lua.LNil
		}
		return reflectToLua(L, rv.Elem().Interface())

	case reflect.Slice, reflect.Array:
		t := L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, ToLua(L, rv.Index(i).Interface()))
		}
		return t

	case reflect.Map:
		t := L.NewTable()
		for _, key := range rv.MapKeys() {
			t.RawSet(ToLua(L, key.Interface()), ToLua(L, rv.MapIndex(key).Interface()))
		}
		return t

	case reflect.Struct:
		return structToTable(L, rv)

	default:
		ud := L.NewUserData()
		ud.Value = v
		return ud
	}
}

// structToTable converts exported struct fields to table entries, honoring
// json tags for naming.
func structToTable(L *lua.LState, rv reflect.Value) *lua.LTable {
	t := L.NewTable()
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if field.PkgPath != "" {
			continue
		}

		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" && tag != "-" {
			for j := 0; j < len(tag); j++ {
				if tag[j] == ',' {
					tag = tag[:j]
					break
				}
			}
			if tag != "" {
				name = tag
			}
		}

		t.RawSetString(name, ToLua(L, rv.Field(i).Interface()))
	}

	return t
}
