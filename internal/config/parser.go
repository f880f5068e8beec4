package config

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/errors"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/logging"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/pgp"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/platform"
)

// Parser evaluates Lua config files. It is safe for concurrent use.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a parser. When detector is nil no platform table is
// injected.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// Parse reads and evaluates a config from r. Errors are of kind Usage.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*Config, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxConfigSize+1))
	if err != nil {
		return nil, errors.E(errors.Usage, errors.Op("read config"), err)
	}
	if len(data) > MaxConfigSize {
		return nil, errors.E(errors.Usage, errors.Op("read config"),
			fmt.Sprintf("config exceeds %d bytes", MaxConfigSize))
	}
	return p.ParseString(ctx, string(data))
}

// ParseString evaluates a config held in memory. Errors are of kind Usage.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultParseTimeout)
		defer cancel()
	}

	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, errors.E(errors.Usage, errors.Op("parse config"), fmt.Errorf("platform detection failed: %w", err))
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, errors.E(errors.Usage, errors.Op("parse config"), fmt.Errorf("inject platform table: %w", err))
		}
	}

	if err := L.DoString(luaCode); err != nil {
		msg := "Lua error"
		if ctx.Err() != nil {
			msg = "config evaluation timed out"
		}
		return nil, errors.E(errors.Usage, errors.Op("parse config"), &ParseError{Message: msg, Detail: err.Error()})
	}

	cfg, err := extractConfig(L)
	if err != nil {
		return nil, errors.E(errors.Usage, errors.Op("parse config"), err)
	}
	return cfg, nil
}

// Loader returns a kong.ConfigurationLoader evaluating files with p.
func (p *Parser) Loader(ctx context.Context) kong.ConfigurationLoader {
	return func(r io.Reader) (kong.Resolver, error) {
		cfg, err := p.Parse(ctx, r)
		if err != nil {
			return nil, err
		}
		return cfg.Resolver(), nil
	}
}

// extractConfig reads the pgp_cp global table from a Lua state.
func extractConfig(L *lua.LState) (*Config, error) {
	v := L.GetGlobal(luaGlobal)
	table, ok := v.(*lua.LTable)
	if !ok {
		return nil, &ParseError{
			Message: fmt.Sprintf("missing or invalid '%s' table", luaGlobal),
			Detail:  fmt.Sprintf("expected table, got %s", v.Type()),
		}
	}

	cfg := &Config{}
	var problems []string
	table.ForEach(func(key, value lua.LValue) {
		name, ok := key.(lua.LString)
		if !ok {
			problems = append(problems, fmt.Sprintf("unexpected key %s", key.String()))
			return
		}
		if err := setField(cfg, string(name), value); err != nil {
			problems = append(problems, err.Error())
		}
	})
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &ParseError{
			Message: "invalid config",
			Detail:  strings.Join(problems, "; "),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}
	return cfg, nil
}

// setField stores one pgp_cp entry in cfg.
func setField(cfg *Config, name string, value lua.LValue) error {
	switch name {
	case luaFieldTrustLevel:
		var s string
		switch value.Type() {
		case lua.LTNumber, lua.LTString:
			s = value.String()
		default:
			return typeError(name, "number or string", value)
		}
		l, err := pgp.ParseTrustLevel(s)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		cfg.TrustLevel = &l

	case luaFieldQuar, luaFieldGPGHome:
		s, ok := value.(lua.LString)
		if !ok {
			return typeError(name, "string", value)
		}
		str := string(s)
		if name == luaFieldQuar {
			cfg.Quar = &str
		} else {
			cfg.GPGHome = &str
		}

	case luaFieldEngine:
		s, ok := value.(lua.LString)
		if !ok {
			return typeError(name, "string", value)
		}
		kind := pgp.EngineKind(strings.ToLower(string(s)))
		cfg.Engine = &kind

	case luaFieldLogDest:
		s, ok := value.(lua.LString)
		if !ok {
			return typeError(name, "string", value)
		}
		dest := logging.Destination(strings.ToLower(string(s)))
		cfg.LogDest = &dest

	case luaFieldVerbose, luaFieldNoClobber:
		b, ok := value.(lua.LBool)
		if !ok {
			return typeError(name, "boolean", value)
		}
		val := bool(b)
		if name == luaFieldVerbose {
			cfg.Verbose = &val
		} else {
			cfg.NoClobber = &val
		}

	default:
		return fmt.Errorf("unknown key %q", name)
	}
	return nil
}

func typeError(name, want string, got lua.LValue) error {
	return fmt.Errorf("%s: expected %s, got %s", name, want, got.Type())
}

// FormatError formats a config error for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		return err.Error()
	}
	if verbose {
		return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
	}
	detail := parseErr.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", parseErr.Message, detail)
}
