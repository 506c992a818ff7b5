package api

import (
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func newUtilModule(t *testing.T) *lua.LState {
	t.Helper()
	L := lua.NewState()
	t.Cleanup(L.Close)

	m := NewUtilModule(&Context{}, "demo")
	if err := m.Register(L); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return L
}

func TestUtilJSONRoundTrip(t *testing.T) {
	L := newUtilModule(t)

	script := `
		local text = _pg_util.json_encode({ name = "glossary", terms = { "word", "palabra" } })
		assert(type(text) == "string", "encode returns a string")
		local back = _pg_util.json_decode(text)
		assert(back.name == "glossary", "name survives")
		assert(#back.terms == 2, "array survives")
		assert(back.terms[2] == "palabra", "element survives")
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}
}

func TestUtilJSONDecodeError(t *testing.T) {
	L := newUtilModule(t)

	script := `
		local value, err = _pg_util.json_decode("{not json")
		assert(value == nil, "invalid json decodes to nil")
		assert(type(err) == "string" and #err > 0, "error string")
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}
}

func TestUtilLogLevels(t *testing.T) {
	L := newUtilModule(t)

	script := `
		_pg_util.log("plain")
		_pg_util.log("detail", "debug")
		_pg_util.log("careful", "warn")
		_pg_util.log("broken", "error")
		_pg_util.log("odd", "whisper")
	`
	if err := L.DoString(script); err != nil {
		t.Errorf("log calls should never raise: %v", err)
	}
}
