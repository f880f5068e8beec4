package quarantine

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/errors"
)

// Stager copies untrusted input into a quarantine directory.
type Stager struct {
	dir    string
	logger zerolog.Logger
	newID  func() string
}

// Staged is the quarantined copy of one input file and its signature.
type Staged struct {
	ID    string
	Dir   string
	Input string
	Sig   string

	// Mode holds the permission bits of the original input.
	Mode fs.FileMode
}

// NewStager returns a stager rooted at dir.
func NewStager(dir string, logger zerolog.Logger) *Stager {
	return &Stager{
		dir:    dir,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
	}
}

// Dir returns the quarantine directory.
func (s *Stager) Dir() string { return s.dir }

// Ensure creates the quarantine directory if it does not exist.
// An existing directory is reused as is.
func (s *Stager) Ensure() error {
	info, err := os.Stat(s.dir)
	if err == nil {
		if !info.IsDir() {
			return errors.E(errors.IO, errors.Op("create quarantine"), errors.Path(s.dir), "exists and is not a directory")
		}
		s.logger.Debug().Str("dir", s.dir).Msg("reusing quarantine directory")
		return nil
	}
	if !os.IsNotExist(err) {
		return errors.E(errors.IO, errors.Op("stat quarantine"), errors.Path(s.dir), err)
	}

	s.logger.Info().Str("dir", s.dir).Msg("creating quarantine directory")
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return errors.E(errors.IO, errors.Op("create quarantine"), errors.Path(s.dir), err)
	}
	return nil
}

// Stage copies input and sig into a new run directory below the quarantine
// directory. On failure the run directory is removed.
func (s *Stager) Stage(ctx context.Context, input, sig string) (*Staged, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.E(errors.IO, errors.Op("stage"), err)
	}

	id := s.newID()
	runDir := filepath.Join(s.dir, id)
	if err := os.Mkdir(runDir, 0700); err != nil {
		return nil, errors.E(errors.IO, errors.Op("create run directory"), errors.Path(runDir), err)
	}

	staged := &Staged{
		ID:    id,
		Dir:   runDir,
		Input: filepath.Join(runDir, filepath.Base(input)),
		Sig:   filepath.Join(runDir, filepath.Base(sig)),
	}
	if staged.Sig == staged.Input {
		staged.Sig += ".sig"
	}

	s.logger.Info().
		Str("input", input).
		Str("signature", sig).
		Str("run_dir", runDir).
		Msg("copying input file and signature to quarantine")

	mode, err := copyFile(input, staged.Input)
	if err != nil {
		os.RemoveAll(runDir)
		return nil, errors.E(errors.IO, errors.Op("quarantine input"), errors.Path(input), err)
	}
	staged.Mode = mode

	if _, err := copyFile(sig, staged.Sig); err != nil {
		os.RemoveAll(runDir)
		return nil, errors.E(errors.IO, errors.Op("quarantine signature"), errors.Path(sig), err)
	}

	return staged, nil
}

// Cleanup removes the run directory and anything left in it.
func (st *Staged) Cleanup() error {
	if st == nil || st.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(st.Dir); err != nil {
		return errors.E(errors.IO, errors.Op("remove run directory"), errors.Path(st.Dir), err)
	}
	return nil
}

// copyFile copies the regular file src to dst through a synced temporary
// file and returns the permission bits of src. dst is created mode 0600.
func copyFile(src, dst string) (fs.FileMode, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", src)
	}

	if err := writeAtomic(dst, in, 0600); err != nil {
		return 0, err
	}
	return info.Mode().Perm(), nil
}

// writeAtomic writes r to path using write-then-rename.
func writeAtomic(path string, r io.Reader, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("copy data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temporary file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temporary file: %w", err)
	}
	return nil
}
