package pgp

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/errors"
)

// Engine verifies a detached signature against a file.
type Engine interface {
	// Verify checks the detached signature at sigPath against the data at
	// filePath. An error means the signature could not be processed.
	Verify(ctx context.Context, filePath, sigPath string) (*Result, error)

	// Name identifies the engine in logs.
	Name() string
}

// EngineKind selects an Engine implementation.
type EngineKind string

const (
	EngineGPG    EngineKind = "gpg"
	EngineNative EngineKind = "native"
)

// Options configures engine construction.
type Options struct {
	Logger zerolog.Logger

	// Runner executes gpg. Defaults to running the real binary.
	Runner Runner

	// LookPath resolves executable names. Defaults to safeexec.LookPath.
	LookPath func(file string) (string, error)
}

// Open initializes the engine of the given kind against the keyring home
// directory. Failures are of kind DependencyMissing or EngineInit.
func Open(ctx context.Context, kind EngineKind, home string, opts Options) (Engine, error) {
	switch kind {
	case EngineGPG:
		return OpenGPG(ctx, home, opts)
	case EngineNative:
		return OpenNative(home, opts)
	default:
		return nil, errors.E(errors.Usage, fmt.Sprintf("unknown engine %q", string(kind)))
	}
}

// checkHome ensures the keyring home is an existing directory.
func checkHome(home string) error {
	if home == "" {
		return errors.E(errors.EngineInit, "keyring home directory not set")
	}
	info, err := os.Stat(home)
	if err != nil {
		return errors.E(errors.EngineInit, errors.Op("stat keyring home"), errors.Path(home), err)
	}
	if !info.IsDir() {
		return errors.E(errors.EngineInit, errors.Path(home), "keyring home is not a directory")
	}
	return nil
}
