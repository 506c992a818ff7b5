package lua

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	glua "github.com/yuin/gopher-lua"
)

func TestNewState(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if state.IsClosed() {
		t.Error("NewState() returned closed state")
	}

	if state.LuaState() == nil {
		t.Error("NewState() LuaState() is nil")
	}

	if state.Sandbox() == nil {
		t.Error("NewState() Sandbox() is nil")
	}
}

func TestStateDoString(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	err = state.DoString(`x = 1 + 1`)
	if err != nil {
		t.Errorf("DoString() error = %v", err)
	}

	v := state.GetGlobal("x")
	if num, ok := v.(glua.LNumber); ok {
		if float64(num) != 2 {
			t.Errorf("x = %v, want 2", num)
		}
	} else {
		t.Errorf("x is not a number, got %T", v)
	}
}

func TestStateDoStringSyntaxError(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	err = state.DoString(`invalid lua code !!!`)
	if err == nil {
		t.Error("DoString() with invalid code should return error")
	}
}

func TestStateDoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.lua")
	if err := os.WriteFile(path, []byte(`answer = 42`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if err := state.DoFile(path); err != nil {
		t.Fatalf("DoFile() error = %v", err)
	}

	if num, ok := state.GetGlobal("answer").(glua.LNumber); !ok || float64(num) != 42 {
		t.Errorf("answer = %v, want 42", state.GetGlobal("answer"))
	}
}

func TestStateCall(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	err = state.DoString(`
		function add(a, b)
			return a + b
		end
	`)
	if err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	results, err := state.Call("add", glua.LNumber(2), glua.LNumber(3))
	if err != nil {
		t.Errorf("Call() error = %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Call() returned %d results, want 1", len(results))
	}

	if num, ok := results[0].(glua.LNumber); ok {
		if float64(num) != 5 {
			t.Errorf("add(2, 3) = %v, want 5", num)
		}
	} else {
		t.Errorf("result is not a number, got %T", results[0])
	}
}

func TestStateCallNoResults(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if err := state.DoString(`function noop() end`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	results, err := state.Call("noop")
	if err != nil {
		t.Errorf("Call() error = %v", err)
	}
	// Empty slice, not nil.
	if results == nil {
		t.Error("Call() results = nil, want empty slice")
	}
	if len(results) != 0 {
		t.Errorf("Call() returned %d results, want 0", len(results))
	}
}

func TestStateCallMultipleResults(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if err := state.DoString(`function pair() return 1, "two" end`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	results, err := state.Call("pair")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Call() returned %d results, want 2", len(results))
	}
	if num, ok := results[0].(glua.LNumber); !ok || float64(num) != 1 {
		t.Errorf("first result = %v, want 1", results[0])
	}
	if str, ok := results[1].(glua.LString); !ok || string(str) != "two" {
		t.Errorf("second result = %v, want \"two\"", results[1])
	}
}

func TestStateCallMissingFunction(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	_, err = state.Call("does_not_exist")
	if err == nil {
		t.Error("Call() on missing function should return error")
	}
}

func TestStateCallNonFunction(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if err := state.DoString(`thing = 42`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	_, err = state.Call("thing")
	if err == nil {
		t.Error("Call() on a non-function should return error")
	}
	if err != nil && !strings.Contains(err.Error(), "not a function") {
		t.Errorf("Call() error = %v, want mention of non-function", err)
	}
}

func TestStateCallLuaError(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if err := state.DoString(`function boom() error("kaput") end`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	_, err = state.Call("boom")
	if err == nil {
		t.Error("Call() should propagate the Lua error")
	}
	if err != nil && !strings.Contains(err.Error(), "kaput") {
		t.Errorf("Call() error = %v, want it to contain the Lua message", err)
	}
}

func TestStateHasFunction(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if err := state.DoString(`function f() end; v = 1`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	if !state.HasFunction("f") {
		t.Error("HasFunction(f) = false, want true")
	}
	if state.HasFunction("v") {
		t.Error("HasFunction(v) = true for a number global")
	}
	if state.HasFunction("missing") {
		t.Error("HasFunction(missing) = true, want false")
	}
}

func TestStateRegisterFunc(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	called := false
	state.RegisterFunc("mark", func(L *glua.LState) int {
		called = true
		return 0
	})

	if err := state.DoString(`mark()`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if !called {
		t.Error("registered function was not called")
	}
}

func TestStateRegisterModule(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	state.RegisterModule("mymod", map[string]glua.LGFunction{
		"double": func(L *glua.LState) int {
			n := L.CheckNumber(1)
			L.Push(glua.LNumber(n * 2))
			return 1
		},
	})

	if err := state.DoString(`result = mymod.double(21)`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if num, ok := state.GetGlobal("result").(glua.LNumber); !ok || float64(num) != 42 {
		t.Errorf("result = %v, want 42", state.GetGlobal("result"))
	}
}

func TestStateSetGlobal(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	state.SetGlobal("greeting", glua.LString("hello"))

	if str, ok := state.GetGlobal("greeting").(glua.LString); !ok || string(str) != "hello" {
		t.Errorf("greeting = %v, want \"hello\"", state.GetGlobal("greeting"))
	}
}

func TestStateSafeLibrariesOpen(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	err = state.DoString(`
		s = string.upper("abc")
		t = {3, 1, 2}
		table.sort(t)
		m = math.floor(3.9)
	`)
	if err != nil {
		t.Fatalf("safe libraries not usable: %v", err)
	}

	if str, ok := state.GetGlobal("s").(glua.LString); !ok || string(str) != "ABC" {
		t.Errorf("string.upper result = %v, want ABC", state.GetGlobal("s"))
	}
	if num, ok := state.GetGlobal("m").(glua.LNumber); !ok || float64(num) != 3 {
		t.Errorf("math.floor result = %v, want 3", state.GetGlobal("m"))
	}
}

func TestStateClose(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}

	if err := state.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !state.IsClosed() {
		t.Error("IsClosed() = false after Close()")
	}

	// Double close is a no-op.
	if err := state.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := state.DoString(`x = 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoString() after Close() error = %v, want ErrStateClosed", err)
	}
	if _, err := state.Call("f"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("Call() after Close() error = %v, want ErrStateClosed", err)
	}
	if got := state.GetGlobal("x"); got != glua.LNil {
		t.Errorf("GetGlobal() after Close() = %v, want LNil", got)
	}
	if state.HasFunction("f") {
		t.Error("HasFunction() after Close() = true, want false")
	}
}
