// Package service runs the verified copy: stage, verify, gate and release.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/errors"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/pgp"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/quarantine"
)

// CopyService orchestrates one verified copy.
type CopyService struct {
	engine pgp.Engine
	stager *quarantine.Stager
	clock  Clock
	logger zerolog.Logger
}

// NewCopyService creates a copy service with dependency injection.
func NewCopyService(
	engine pgp.Engine,
	stager *quarantine.Stager,
	clock Clock,
	logger zerolog.Logger,
) *CopyService {
	return &CopyService{
		engine: engine,
		stager: stager,
		clock:  clock,
		logger: logger,
	}
}

// CopyRequest contains the parameters of a run.
type CopyRequest struct {
	Input     string
	Sig       string
	Output    string
	Required  pgp.TrustLevel
	NoClobber bool
}

// CopyResult describes a completed copy.
type CopyResult struct {
	RunID        string
	Output       string
	Replaced     bool
	Verification *pgp.Result
	Duration     time.Duration
}

// Validate checks the request before any file is touched.
func (r CopyRequest) Validate() error {
	for name, v := range map[string]string{"input": r.Input, "signature": r.Sig, "output": r.Output} {
		if v == "" {
			return errors.E(errors.Usage, fmt.Sprintf("%s path is required", name))
		}
	}
	if !r.Required.Requirable() {
		return errors.E(errors.Usage, fmt.Sprintf("trust level %d cannot be required, use 2, 3 or 4", int(r.Required)))
	}
	return nil
}

// Execute performs the copy. The output is written only if the signature is
// valid and trusted enough; the run directory is removed in every case.
func (s *CopyService) Execute(ctx context.Context, req CopyRequest) (*CopyResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := s.clock.Now()

	// 1. Quarantine directory
	if err := s.stager.Ensure(); err != nil {
		return nil, err
	}

	// 2. Claim the output
	lock, err := quarantine.AcquireLock(ctx, s.stager.Dir(), req.Output)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release output lock")
		}
	}()

	// 3. Stage
	staged, err := s.stager.Stage(ctx, req.Input, req.Sig)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With().Str("run_id", staged.ID).Logger()
	defer func() {
		if err := staged.Cleanup(); err != nil {
			logger.Warn().Err(err).Msg("failed to remove run directory")
		}
	}()

	// 4. Verify the staged copy only
	logger.Debug().
		Str("engine", s.engine.Name()).
		Str("file", staged.Input).
		Str("signature", staged.Sig).
		Msg("verifying signature")
	res, err := s.engine.Verify(ctx, staged.Input, staged.Sig)
	if err != nil {
		return nil, errors.E(errors.Verification, errors.Op("verify"), errors.Path(req.Sig), err)
	}

	// 5. Audit record, then gate
	logger.Info().
		Object("signature", res).
		Str("required_trust", req.Required.String()).
		Msg("signature checked")

	if err := Gate(res, req.Required); err != nil {
		return nil, err
	}

	// 6. Release
	p, err := staged.Promote(req.Output, quarantine.PromoteOptions{NoClobber: req.NoClobber})
	if err != nil {
		return nil, err
	}
	if p.Replaced {
		logger.Warn().Str("output", p.Path).Msg("replaced existing output file")
	}

	result := &CopyResult{
		RunID:        staged.ID,
		Output:       p.Path,
		Replaced:     p.Replaced,
		Verification: res,
		Duration:     s.clock.Now().Sub(start),
	}
	logger.Info().
		Str("output", p.Path).
		Dur("duration", result.Duration).
		Msg("file verified and copied")

	return result, nil
}
