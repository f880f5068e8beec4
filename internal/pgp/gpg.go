package pgp

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cli/safeexec"
	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/errors"
)

// gpgBinaries are tried in order when locating GnuPG.
var gpgBinaries = []string{"gpg", "gpg2"}

// Runner executes an external command.
// err is only set when the command could not be run at all; a non-zero exit
// status is reported through exitCode.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, exitCode int, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), nil
		}
		return stdout.Bytes(), stderr.Bytes(), -1, err
	}
	return stdout.Bytes(), stderr.Bytes(), 0, nil
}

// GPG verifies signatures with the gpg binary.
type GPG struct {
	path   string
	home   string
	runner Runner
	logger zerolog.Logger
}

// OpenGPG locates gpg and checks that it runs against the home directory.
func OpenGPG(ctx context.Context, home string, opts Options) (*GPG, error) {
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = safeexec.LookPath
	}
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	var path string
	for _, name := range gpgBinaries {
		p, err := lookPath(name)
		if err == nil {
			path = p
			break
		}
	}
	if path == "" {
		return nil, errors.E(errors.DependencyMissing, errors.Op("locate gpg"),
			fmt.Sprintf("none of %s found in PATH", strings.Join(gpgBinaries, ", ")))
	}

	if err := checkHome(home); err != nil {
		return nil, err
	}

	g := &GPG{
		path:   path,
		home:   home,
		runner: runner,
		logger: opts.Logger.With().Str("engine", "gpg").Logger(),
	}

	stdout, stderr, code, err := runner.Run(ctx, path, g.baseArgs("--version")...)
	if err != nil {
		return nil, errors.E(errors.EngineInit, errors.Op("run gpg --version"), errors.Path(path), err)
	}
	if code != 0 {
		return nil, errors.E(errors.EngineInit, errors.Op("run gpg --version"), errors.Path(path),
			fmt.Sprintf("exit status %d: %s", code, strings.TrimSpace(string(stderr))))
	}

	version, _, _ := strings.Cut(string(stdout), "\n")
	g.logger.Debug().
		Str("path", path).
		Str("home", home).
		Str("version", strings.TrimSpace(version)).
		Msg("GnuPG engine ready")

	return g, nil
}

// Name implements Engine.
func (g *GPG) Name() string { return string(EngineGPG) }

// Verify implements Engine.
func (g *GPG) Verify(ctx context.Context, filePath, sigPath string) (*Result, error) {
	args := g.baseArgs("--status-fd", "1", "--verify", sigPath, filePath)

	g.logger.Debug().
		Strs("args", args).
		Msg("running gpg")

	stdout, stderr, code, err := g.runner.Run(ctx, g.path, args...)
	if err != nil {
		return nil, errors.E(errors.Verification, errors.Op("run gpg --verify"), errors.Path(sigPath), err)
	}

	g.logger.Debug().
		Int("exit_code", code).
		Str("stderr", strings.TrimSpace(string(stderr))).
		Msg("gpg finished")

	res, err := parseStatus(stdout)
	if err != nil {
		return nil, errors.E(errors.Verification, errors.Op("parse gpg status"), errors.Path(sigPath), err)
	}
	return res, nil
}

func (g *GPG) baseArgs(args ...string) []string {
	base := []string{"--batch", "--no-tty", "--homedir", g.home}
	return append(base, args...)
}
