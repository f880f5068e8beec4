// Package config loads optional pgp-cp settings from a Lua file.
//
// The file is evaluated in a sandboxed gopher-lua VM with a read-only
// "platform" global describing the host, and must assign a global table
// named pgp_cp:
//
//	pgp_cp = {
//	  trust_level = "full",                 -- or 2, 3, 4
//	  quar        = "~/pgp-cp_quar",
//	  gpg_home    = platform.when(platform.is_linux, "/etc/pgp-cp/keys"),
//	  engine      = "native",
//	  log_dest    = "syslog",
//	  verbose     = false,
//	  no_clobber  = true,
//	}
//
// Every key is optional; unknown keys are rejected. The parsed settings are
// exposed to the command line parser as a kong.Resolver, so values given as
// flags take precedence over the file and the file over built-in defaults.
//
// Evaluation is bounded by MaxConfigSize and DefaultParseTimeout.
package config
