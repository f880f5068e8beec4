package config

import "time"

// Lua schema field names and globals
const (
	luaGlobal          = "pgp_cp"
	luaFieldTrustLevel = "trust_level"
	luaFieldQuar       = "quar"
	luaFieldGPGHome    = "gpg_home"
	luaFieldEngine     = "engine"
	luaFieldLogDest    = "log_dest"
	luaFieldVerbose    = "verbose"
	luaFieldNoClobber  = "no_clobber"
)

// Resource limits for config evaluation
const (
	// MaxConfigSize is the largest config file accepted.
	MaxConfigSize = 1 << 20

	// DefaultParseTimeout bounds evaluation when the context has no deadline.
	DefaultParseTimeout = 5 * time.Second

	luaCallStackSize = 256
	luaRegistrySize  = 1024 * 8
)

// flagNames maps Lua fields to the long command line flags they default.
var flagNames = map[string]string{
	luaFieldTrustLevel: "trust-level",
	luaFieldQuar:       "quar",
	luaFieldGPGHome:    "gpg-home",
	luaFieldEngine:     "engine",
	luaFieldLogDest:    "log-dest",
	luaFieldVerbose:    "verbose",
	luaFieldNoClobber:  "no-clobber",
}
