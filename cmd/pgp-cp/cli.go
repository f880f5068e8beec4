package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/config"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/errors"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/logging"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/pgp"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/platform"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/quarantine"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/service"
)

type cliSpec struct {
	Input  string `short:"i" required:"" type:"path" help:"File to verify and copy."`
	Sig    string `short:"s" required:"" type:"path" help:"Detached signature of the input file."`
	Output string `short:"o" required:"" type:"path" help:"Destination path (file or existing directory)."`

	TrustLevel int    `short:"t" default:"3" enum:"2,3,4" help:"Minimum trust: 2=marginal, 3=full, 4=ultimate."`
	Quar       string `short:"q" default:"${default_quar}" type:"path" help:"Quarantine directory."`
	GPGHome    string `name:"gpg-home" short:"g" default:"${default_gpg_home}" type:"path" help:"Keyring home directory."`
	Engine     string `short:"e" default:"gpg" enum:"gpg,native" help:"OpenPGP engine (gpg, native)."`
	NoClobber  bool   `short:"n" help:"Fail instead of replacing an existing output."`

	LogDest string `short:"l" default:"stream" enum:"stream,syslog,none" help:"Log destination (stream, syslog, none)."`
	Verbose bool   `short:"v" help:"Enable debug logging."`

	Config  kong.ConfigFlag  `short:"c" help:"Lua config file supplying defaults."`
	Version kong.VersionFlag `short:"V" help:"Print version and exit."`
}

// defaultVars returns the kong variables for home relative defaults.
func defaultVars() kong.Vars {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}
	gpgHome := os.Getenv("GNUPGHOME")
	if gpgHome == "" {
		gpgHome = filepath.Join(home, ".gnupg")
	}
	return kong.Vars{
		"version":          logging.AppName + " " + Version,
		"default_quar":     filepath.Join(home, "pgp-cp_quar"),
		"default_gpg_home": gpgHome,
	}
}

// parseArgs parses the command line. exit is true when kong handled the
// invocation itself (help, version).
func parseArgs(ctx context.Context, detector platform.Detector, args []string, stdout, stderr io.Writer) (parsed *cliSpec, exit bool, err error) {
	parsed = &cliSpec{}
	kongExit := false
	kongExitStatus := 0

	parser, err := kong.New(parsed,
		kong.Name(logging.AppName),
		kong.Description("Copy a file only if its detached OpenPGP signature is valid and trusted."),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Exit(func(status int) {
			// Avoid kong aborting entire process since run is tested as a function
			kongExit = true
			kongExitStatus = status
		}),
		kong.Writers(stdout, stderr),
		defaultVars(),
		kong.Configuration(config.NewParser(detector).Loader(ctx)),
	)
	if err != nil {
		return nil, false, errors.E(errors.Usage, fmt.Errorf("failed to create cli parser: %w", err))
	}

	_, err = parser.Parse(args)
	if kongExit && kongExitStatus == 0 {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, errors.E(errors.Usage, err)
	}
	return parsed, false, nil
}

func (s *cliSpec) request() service.CopyRequest {
	return service.CopyRequest{
		Input:     s.Input,
		Sig:       s.Sig,
		Output:    s.Output,
		Required:  pgp.TrustLevel(s.TrustLevel),
		NoClobber: s.NoClobber,
	}
}

// run executes one pgp-cp invocation and returns the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	detector := platform.NewDetector()

	parsed, exit, err := parseArgs(ctx, detector, args, stdout, stderr)
	if exit {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: error: %s\n", logging.AppName, config.FormatError(err, false))
		return exitCode(err)
	}

	req := parsed.request()
	if err := req.Validate(); err != nil {
		fmt.Fprintf(stderr, "%s: error: %v\n", logging.AppName, err)
		return exitCode(err)
	}

	dest, err := logging.ParseDestination(parsed.LogDest)
	if err != nil {
		fmt.Fprintf(stderr, "%s: error: %v\n", logging.AppName, err)
		return exitUsage
	}
	logger, closer, err := logging.Open(logging.Config{
		Destination: dest,
		Verbose:     parsed.Verbose,
		Stream:      stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "%s: error: %v\n", logging.AppName, err)
		return exitFailure
	}
	defer closer.Close()

	logStartup(ctx, logger, detector, args, string(parsed.Config))

	engine, err := pgp.Open(ctx, pgp.EngineKind(parsed.Engine), parsed.GPGHome, pgp.Options{Logger: logger})
	if err != nil {
		logFailure(logger, err, "failed to initialize OpenPGP engine")
		return exitCode(err)
	}

	svc := service.NewCopyService(engine, quarantine.NewStager(parsed.Quar, logger), service.RealClock{}, logger)
	if _, err := svc.Execute(ctx, req); err != nil {
		logFailure(logger, err, "file not copied")
		return exitCode(err)
	}
	return exitOK
}

// logStartup writes the debug record describing the invocation.
func logStartup(ctx context.Context, logger zerolog.Logger, detector platform.Detector, args []string, configFile string) {
	if logger.GetLevel() > zerolog.DebugLevel {
		return
	}

	ev := logger.Debug().
		Int("uid", os.Getuid()).
		Str("args", strings.Join(args, " ")).
		Str("version", Version)
	if configFile != "" {
		ev = ev.Str("config", configFile)
	}
	if info, err := detector.Detect(ctx); err == nil {
		ev = ev.Object("host", info)
	} else {
		ev = ev.AnErr("host_error", err)
	}
	ev.Msg("starting")
}

// logFailure records err with its kind.
func logFailure(logger zerolog.Logger, err error, msg string) {
	logger.Error().
		Err(err).
		Str("kind", errors.KindOf(err).String()).
		Msg(msg)
}
