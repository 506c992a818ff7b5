package lua

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/polyglot/internal/plugin/security"
)

// Sandbox restricts Lua execution to safe operations. Dangerous stdlib
// entry points are removed, require is replaced with a whitelist, and the
// io, os, and debug libraries are gated behind granted capabilities.
type Sandbox struct {
	L *lua.LState

	capabilities map[security.Capability]bool

	fileMT      *lua.LTable
	writeFileMT *lua.LTable
}

// NewSandbox creates a new sandbox for the Lua state.
func NewSandbox(L *lua.LState) *Sandbox {
	return &Sandbox{
		L:            L,
		capabilities: make(map[security.Capability]bool),
	}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	// Remove functions that load arbitrary code and would bypass the
	// require whitelist.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installSafeRequire()
}

// safeModules are built-in modules any plugin may require.
var safeModules = map[string]bool{
	"string": true,
	"table":  true,
	"math":   true,
}

// installSafeRequire replaces require with a whitelist-based version.
//
// package.path and package.cpath are cleared so nothing can be loaded from
// disk, and package.loaded is pruned to the safe built-ins. Only the safe
// built-ins, the host's preloaded pg modules, and capability-gated
// libraries resolve; everything else raises.
func (s *Sandbox) installSafeRequire() {
	pkg := s.L.GetGlobal("package")
	pkgTable, ok := pkg.(*lua.LTable)
	if !ok {
		return
	}

	s.L.SetField(pkgTable, "path", lua.LString(""))
	s.L.SetField(pkgTable, "cpath", lua.LString(""))

	safeLoaded := map[string]bool{
		"_G": true, "string": true, "table": true, "math": true, "package": true,
	}
	if loaded, ok := s.L.GetField(pkgTable, "loaded").(*lua.LTable); ok {
		var remove []string
		loaded.ForEach(func(k, _ lua.LValue) {
			if ks, ok := k.(lua.LString); ok && !safeLoaded[string(ks)] {
				remove = append(remove, string(ks))
			}
		})
		for _, key := range remove {
			loaded.RawSetString(key, lua.LNil)
		}
	}

	originalRequire := s.L.GetGlobal("require")

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		modName := L.CheckString(1)

		// Safe built-ins and the host's pg modules go through the
		// original require, which resolves package.loaded and preload.
		if safeModules[modName] || modName == "pg" || strings.HasPrefix(modName, "pg.") {
			L.Push(originalRequire)
			L.Push(lua.LString(modName))
			L.Call(1, 1)
			return 1
		}

		// Capability-gated libraries. Grant installs the library as a
		// global before plugin code runs, so the global is returned here.
		switch modName {
		case "io":
			if !s.capabilities[security.CapabilityFileRead] && !s.capabilities[security.CapabilityFileWrite] {
				L.RaiseError("module 'io' requires the filesystem.read or filesystem.write capability")
			}
			L.Push(L.GetGlobal("io"))
			return 1
		case "os", "debug":
			if !s.capabilities[security.CapabilityUnsafe] {
				L.RaiseError("module %q requires the unsafe capability", modName)
			}
			L.Push(L.GetGlobal(modName))
			return 1
		}

		L.RaiseError("module %q is not available", modName)
		return 0 // unreachable, RaiseError does not return
	}))
}

// Grant enables a capability and installs any library it gates.
func (s *Sandbox) Grant(cap security.Capability) {
	s.capabilities[cap] = true

	switch cap {
	case security.CapabilityFileRead:
		if !s.capabilities[security.CapabilityFileWrite] {
			s.injectReadOnlyIO()
		}
	case security.CapabilityFileWrite:
		s.injectWritableIO()
	case security.CapabilityUnsafe:
		s.injectUnsafeLibraries()
	}
}

// Revoke disables a capability. Libraries already installed by Grant are
// not removed; a fresh state is needed for that.
func (s *Sandbox) Revoke(cap security.Capability) {
	delete(s.capabilities, cap)
}

// HasCapability returns true if the capability is granted.
func (s *Sandbox) HasCapability(cap security.Capability) bool {
	return s.capabilities[cap]
}

// Capabilities returns all granted capabilities, sorted by name.
func (s *Sandbox) Capabilities() []security.Capability {
	caps := make([]security.Capability, 0, len(s.capabilities))
	for cap := range s.capabilities {
		caps = append(caps, cap)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

// CheckCapability returns an error if the capability is not granted.
func (s *Sandbox) CheckCapability(cap security.Capability) error {
	if !s.capabilities[cap] {
		return security.NewCapabilityError(cap, "", "not granted")
	}
	return nil
}

// luaFile wraps an open file handle exposed to Lua.
type luaFile struct {
	f *os.File
	r *bufio.Reader
}

// checkFile extracts the luaFile from the first argument.
func checkFile(L *lua.LState) *luaFile {
	ud := L.CheckUserData(1)
	lf, ok := ud.Value.(*luaFile)
	if !ok {
		L.ArgError(1, "expected file")
		return nil
	}
	return lf
}

// readLine reads one line without the trailing newline.
// ok is false when the reader is exhausted.
func readLine(r *bufio.Reader) (string, bool) {
	line, err := r.ReadString('\n')
	if len(line) == 0 && err != nil {
		return "", false
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true
}

// injectReadOnlyIO installs an io global limited to reading.
func (s *Sandbox) injectReadOnlyIO() {
	ioMod := s.L.NewTable()

	s.L.SetField(ioMod, "open", s.L.NewFunction(func(L *lua.LState) int {
		filename := L.CheckString(1)
		mode := L.OptString(2, "r")

		if mode != "r" && mode != "rb" {
			L.ArgError(2, "only read modes (r, rb) are allowed")
			return 0
		}

		f, err := os.Open(filename)
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}

		ud := L.NewUserData()
		ud.Value = &luaFile{f: f, r: bufio.NewReader(f)}
		L.SetMetatable(ud, s.fileMetatable())
		L.Push(ud)
		return 1
	}))

	s.L.SetField(ioMod, "lines", s.L.NewFunction(func(L *lua.LState) int {
		filename := L.CheckString(1)
		f, err := os.Open(filename)
		if err != nil {
			L.RaiseError("cannot open file: %s", err.Error())
			return 0
		}
		r := bufio.NewReader(f)

		L.Push(L.NewFunction(func(L *lua.LState) int {
			line, ok := readLine(r)
			if !ok {
				f.Close()
				return 0
			}
			L.Push(lua.LString(line))
			return 1
		}))
		return 1
	}))

	s.L.SetGlobal("io", ioMod)
}

// injectWritableIO installs an io global whose open accepts all standard
// modes. If a read-only io is already installed it is replaced.
func (s *Sandbox) injectWritableIO() {
	s.injectReadOnlyIO()
	ioMod := s.L.GetGlobal("io").(*lua.LTable)

	s.L.SetField(ioMod, "open", s.L.NewFunction(func(L *lua.LState) int {
		filename := L.CheckString(1)
		mode := L.OptString(2, "r")

		var flag int
		switch mode {
		case "r", "rb":
			flag = os.O_RDONLY
		case "w", "wb":
			flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		case "a", "ab":
			flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		case "r+", "r+b":
			flag = os.O_RDWR
		case "w+", "w+b":
			flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
		case "a+", "a+b":
			flag = os.O_RDWR | os.O_CREATE | os.O_APPEND
		default:
			L.ArgError(2, "invalid mode")
			return 0
		}

		f, err := os.OpenFile(filename, flag, 0o644)
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}

		ud := L.NewUserData()
		ud.Value = &luaFile{f: f, r: bufio.NewReader(f)}
		L.SetMetatable(ud, s.writeFileMetatable())
		L.Push(ud)
		return 1
	}))
}

// fileMetatable returns the cached metatable for read-only file handles.
func (s *Sandbox) fileMetatable() *lua.LTable {
	if s.fileMT != nil {
		return s.fileMT
	}
	mt := s.L.NewTable()
	s.L.SetField(mt, "__index", s.newFileIndex())
	s.fileMT = mt
	return mt
}

// writeFileMetatable returns the cached metatable for writable file handles.
func (s *Sandbox) writeFileMetatable() *lua.LTable {
	if s.writeFileMT != nil {
		return s.writeFileMT
	}
	index := s.newFileIndex()

	s.L.SetField(index, "write", s.L.NewFunction(func(L *lua.LState) int {
		lf := checkFile(L)
		for i := 2; i <= L.GetTop(); i++ {
			if _, err := lf.f.WriteString(L.CheckString(i)); err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
		}
		L.Push(L.Get(1)) // return the file for chaining
		return 1
	}))

	s.L.SetField(index, "flush", s.L.NewFunction(func(L *lua.LState) int {
		lf := checkFile(L)
		if err := lf.f.Sync(); err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LTrue)
		return 1
	}))

	mt := s.L.NewTable()
	s.L.SetField(mt, "__index", index)
	s.writeFileMT = mt
	return mt
}

// newFileIndex builds the shared file methods: read, lines, close.
func (s *Sandbox) newFileIndex() *lua.LTable {
	index := s.L.NewTable()

	s.L.SetField(index, "read", s.L.NewFunction(func(L *lua.LState) int {
		lf := checkFile(L)
		format := L.OptString(2, "*l")

		switch format {
		case "*a", "a", "*all":
			data, err := io.ReadAll(lf.r)
			if err != nil {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LString(data))
			return 1
		case "*l", "l", "*line":
			line, ok := readLine(lf.r)
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LString(line))
			return 1
		default:
			L.Push(lua.LNil)
			return 1
		}
	}))

	s.L.SetField(index, "lines", s.L.NewFunction(func(L *lua.LState) int {
		lf := checkFile(L)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			line, ok := readLine(lf.r)
			if !ok {
				return 0
			}
			L.Push(lua.LString(line))
			return 1
		}))
		return 1
	}))

	s.L.SetField(index, "close", s.L.NewFunction(func(L *lua.LState) int {
		lf := checkFile(L)
		if err := lf.f.Close(); err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LTrue)
		return 1
	}))

	return index
}

// injectUnsafeLibraries opens the full io, os, and debug libraries.
// Only for trusted plugins.
func (s *Sandbox) injectUnsafeLibraries() {
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.IoLibName, lua.OpenIo},
		{lua.OsLibName, lua.OpenOs},
		{lua.DebugLibName, lua.OpenDebug},
	} {
		s.L.Push(s.L.NewFunction(lib.open))
		s.L.Push(lua.LString(lib.name))
		s.L.Call(1, 0)
	}
}
