package main

import (
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/errors"
)

// Process exit statuses.
const (
	exitOK                = 0
	exitFailure           = 1
	exitInsufficientTrust = 2
	exitMissingDependency = 3
	exitUsage             = 64
)

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch errors.KindOf(err) {
	case errors.InsufficientTrust:
		return exitInsufficientTrust
	case errors.DependencyMissing:
		return exitMissingDependency
	case errors.Usage:
		return exitUsage
	default:
		return exitFailure
	}
}
