package config

import (
	lua "github.com/yuin/gopher-lua"
)

// sandboxLuaVM configures a Lua VM to run in a restricted sandbox.
// Configuration scripts are declarative; they get no access to the
// process, the filesystem, or module loading:
// - os.execute, os.exit, os.getenv and friends
// - io.open, io.popen, io.read
// - require, dofile, loadfile, load, loadstring
// - the debug library, which could bypass the sandbox
//
// Safe libraries (string, table, math) and basic utilities (type,
// tostring, pairs, ...) are preserved.
func sandboxLuaVM(L *lua.LState) {
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)

	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)

	L.SetGlobal("debug", lua.LNil)
}

// newSandboxedVM creates a new Lua VM with sandboxing applied.
// This is the primary way to create a Lua state for config parsing.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	sandboxLuaVM(L)
	return L
}
