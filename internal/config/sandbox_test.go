package config

import (
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestSandboxLuaVM(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		errMsg string // empty when the code must run
	}{
		{name: "string library", code: `x = string.upper("full")`},
		{name: "table library", code: `t = {1, 2}; table.insert(t, 3); x = table.concat(t, ",")`},
		{name: "math library", code: `x = math.max(2, 3, 4)`},
		{name: "basic functions", code: `x = type("s") .. tostring(3) .. tonumber("4")`},
		{name: "pairs", code: `for k, v in pairs({a = 1}) do end`},
		{name: "pcall", code: `ok = pcall(function() error("x") end)`},

		{name: "os.execute", code: `os.execute("gpg --import evil.asc")`, errMsg: "attempt to index"},
		{name: "os.getenv", code: `x = os.getenv("GNUPGHOME")`, errMsg: "attempt to index"},
		{name: "io.open", code: `f = io.open("/etc/passwd")`, errMsg: "attempt to index"},
		{name: "io.popen", code: `f = io.popen("ls")`, errMsg: "attempt to index"},
		{name: "debug", code: `debug.getinfo(1)`, errMsg: "attempt to index"},
		{name: "package", code: `x = package.path`, errMsg: "attempt to index"},
		{name: "require", code: `socket = require("socket")`, errMsg: "attempt to call"},
		{name: "dofile", code: `dofile("/tmp/evil.lua")`, errMsg: "attempt to call"},
		{name: "loadfile", code: `f = loadfile("/tmp/evil.lua")`, errMsg: "attempt to call"},
		{name: "load", code: `f = load("return 1")`, errMsg: "attempt to call"},
		{name: "loadstring", code: `f = loadstring("return 1")`, errMsg: "attempt to call"},
		{name: "setmetatable", code: `setmetatable({}, {})`, errMsg: "attempt to call"},
		{name: "getmetatable", code: `getmetatable("")`, errMsg: "attempt to call"},
		{name: "rawset", code: `rawset(_G, "x", 1)`, errMsg: "attempt to call"},
		{name: "setfenv", code: `setfenv(1, {})`, errMsg: "attempt to call"},
		{name: "collectgarbage", code: `collectgarbage()`, errMsg: "attempt to call"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			L := newSandboxedVM()
			defer L.Close()

			err := L.DoString(tt.code)
			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("DoString(%q) error = %v", tt.code, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("DoString(%q) succeeded, want error", tt.code)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("DoString(%q) error = %v, want substring %q", tt.code, err, tt.errMsg)
			}
		})
	}
}

func TestSandboxLuaVM_Results(t *testing.T) {
	L := newSandboxedVM()
	defer L.Close()

	code := `
		result = {}
		result.upper = string.upper("marginal")
		result.joined = table.concat({"a", "b"}, "/")
		result.floor = math.floor(3.7)
	`
	if err := L.DoString(code); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	result := L.GetGlobal("result").(*lua.LTable)
	if got := result.RawGetString("upper").String(); got != "MARGINAL" {
		t.Errorf("upper = %s", got)
	}
	if got := result.RawGetString("joined").String(); got != "a/b" {
		t.Errorf("joined = %s", got)
	}
	if got := lua.LVAsNumber(result.RawGetString("floor")); got != 3 {
		t.Errorf("floor = %v", got)
	}
}

func TestSandboxLuaVM_CallDepth(t *testing.T) {
	L := newSandboxedVM()
	defer L.Close()

	err := L.DoString(`local function f(n) return f(n + 1) + 1 end f(0)`)
	if err == nil {
		t.Fatal("unbounded recursion succeeded")
	}
}
