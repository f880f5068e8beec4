package config

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/logging"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/pgp"
)

// Config holds the settings read from a config file.
// A nil field was not set by the file.
type Config struct {
	TrustLevel *pgp.TrustLevel
	Quar       *string
	GPGHome    *string
	Engine     *pgp.EngineKind
	LogDest    *logging.Destination
	Verbose    *bool
	NoClobber  *bool
}

// Validate applies the same rules the command line enforces.
func (c *Config) Validate() error {
	if c.TrustLevel != nil && !c.TrustLevel.Requirable() {
		return fmt.Errorf("%s: %s cannot be required, use marginal, full or ultimate", luaFieldTrustLevel, *c.TrustLevel)
	}
	if c.Engine != nil {
		switch *c.Engine {
		case pgp.EngineGPG, pgp.EngineNative:
		default:
			return fmt.Errorf("%s: unknown engine %q", luaFieldEngine, string(*c.Engine))
		}
	}
	if c.LogDest != nil {
		if _, err := logging.ParseDestination(string(*c.LogDest)); err != nil {
			return fmt.Errorf("%s: %w", luaFieldLogDest, err)
		}
	}
	for field, s := range map[string]*string{luaFieldQuar: c.Quar, luaFieldGPGHome: c.GPGHome} {
		if s != nil && *s == "" {
			return fmt.Errorf("%s: must not be empty", field)
		}
	}
	return nil
}

// Values returns the set settings keyed by long flag name, in the string
// form the command line would accept.
func (c *Config) Values() map[string]string {
	v := map[string]string{}
	if c.TrustLevel != nil {
		v[flagNames[luaFieldTrustLevel]] = strconv.Itoa(int(*c.TrustLevel))
	}
	if c.Quar != nil {
		v[flagNames[luaFieldQuar]] = *c.Quar
	}
	if c.GPGHome != nil {
		v[flagNames[luaFieldGPGHome]] = *c.GPGHome
	}
	if c.Engine != nil {
		v[flagNames[luaFieldEngine]] = string(*c.Engine)
	}
	if c.LogDest != nil {
		v[flagNames[luaFieldLogDest]] = string(*c.LogDest)
	}
	if c.Verbose != nil {
		v[flagNames[luaFieldVerbose]] = strconv.FormatBool(*c.Verbose)
	}
	if c.NoClobber != nil {
		v[flagNames[luaFieldNoClobber]] = strconv.FormatBool(*c.NoClobber)
	}
	return v
}

// Resolver exposes the settings to kong. Flags set on the command line are
// never resolved, so they win over the file.
func (c *Config) Resolver() kong.Resolver {
	values := c.Values()
	return kong.ResolverFunc(func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (interface{}, error) {
		if s, ok := values[flag.Name]; ok {
			return s, nil
		}
		return nil, nil
	})
}
