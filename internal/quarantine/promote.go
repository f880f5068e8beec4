package quarantine

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/errors"
)

// ErrOutputExists is returned when no-clobber is set and the output exists.
var ErrOutputExists = errors.New("output already exists")

// PromoteOptions controls how an existing output is treated.
type PromoteOptions struct {
	// NoClobber refuses to replace an existing output file.
	NoClobber bool
}

// Promotion describes a completed promotion.
type Promotion struct {
	Path     string // final output path
	Replaced bool   // an existing file was replaced
}

// Promote moves the staged input to output and deletes the staged signature.
// If output is an existing directory the file keeps its base name inside it.
func (st *Staged) Promote(output string, opts PromoteOptions) (*Promotion, error) {
	target := output
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		target = filepath.Join(output, filepath.Base(st.Input))
	}

	p := &Promotion{Path: target}
	if info, err := os.Lstat(target); err == nil {
		if info.IsDir() {
			return nil, errors.E(errors.IO, errors.Op("promote"), errors.Path(target), "output is a directory")
		}
		if opts.NoClobber {
			return nil, errors.E(errors.IO, errors.Op("promote"), errors.Path(target), ErrOutputExists)
		}
		p.Replaced = true
	}

	if err := os.Chmod(st.Input, st.Mode); err != nil {
		return nil, errors.E(errors.IO, errors.Op("chmod staged input"), errors.Path(st.Input), err)
	}

	if err := move(st.Input, target, st.Mode, opts.NoClobber); err != nil {
		if os.IsExist(err) {
			err = ErrOutputExists
		}
		return nil, errors.E(errors.IO, errors.Op("promote"), errors.Path(target), err)
	}

	if err := os.Remove(st.Sig); err != nil {
		return p, errors.E(errors.IO, errors.Op("remove staged signature"), errors.Path(st.Sig), err)
	}

	return p, nil
}

// move renames src to dst. With noClobber it hard links instead, which fails
// atomically when dst exists. Across filesystems it falls back to a copy.
func move(src, dst string, mode fs.FileMode, noClobber bool) error {
	var err error
	if noClobber {
		err = os.Link(src, dst)
		if err == nil {
			return os.Remove(src)
		}
	} else {
		err = os.Rename(src, dst)
		if err == nil {
			return nil
		}
	}

	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	return moveAcross(src, dst, mode, noClobber)
}

// moveAcross copies src next to dst, renames (or links) it into place and
// removes src.
func moveAcross(src, dst string, mode fs.FileMode, noClobber bool) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if !noClobber {
		if err := writeAtomic(dst, in, mode); err != nil {
			return err
		}
		return os.Remove(src)
	}

	tmp := filepath.Join(filepath.Dir(dst), fmt.Sprintf(".%s.pgp-cp-%d", filepath.Base(dst), os.Getpid()))
	if err := writeAtomic(tmp, in, mode); err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
