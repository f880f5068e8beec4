package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// GnuPG ownertrust values as written by --export-ownertrust.
const (
	OwnertrustUndefined = 2
	OwnertrustNever     = 3
	OwnertrustMarginal  = 4
	OwnertrustFull      = 5
	OwnertrustUltimate  = 6
)

// Signer is a freshly generated OpenPGP key pair.
type Signer struct {
	Entity *openpgp.Entity
	Name   string
}

// NewSigner generates a key pair for name. The user ID is
// "name (test) <name@example.org>".
func NewSigner(t *testing.T, name string) *Signer {
	t.Helper()

	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.org"
	entity, err := openpgp.NewEntity(name, "test", email, nil)
	if err != nil {
		t.Fatalf("failed to generate key for %s: %v", name, err)
	}
	return &Signer{Entity: entity, Name: name}
}

// UserID returns the full user ID string.
func (s *Signer) UserID() string {
	for id := range s.Entity.Identities {
		return id
	}
	return ""
}

// Fingerprint returns the upper-case hex fingerprint of the primary key.
func (s *Signer) Fingerprint() string {
	return fmt.Sprintf("%X", s.Entity.PrimaryKey.Fingerprint)
}

// KeyID returns the 16 digit long key ID of the primary key.
func (s *Signer) KeyID() string {
	return fmt.Sprintf("%016X", s.Entity.PrimaryKey.KeyId)
}

// Sign returns a detached signature over data.
func (s *Signer) Sign(t *testing.T, data []byte, armored bool) []byte {
	t.Helper()

	var buf bytes.Buffer
	var err error
	if armored {
		err = openpgp.ArmoredDetachSign(&buf, s.Entity, bytes.NewReader(data), nil)
	} else {
		err = openpgp.DetachSign(&buf, s.Entity, bytes.NewReader(data), nil)
	}
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	return buf.Bytes()
}

// SignFile writes a detached signature for the file at path to sigPath.
func (s *Signer) SignFile(t *testing.T, path, sigPath string, armored bool) {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	if err := os.WriteFile(sigPath, s.Sign(t, data, armored), 0o644); err != nil {
		t.Fatalf("failed to write signature %s: %v", sigPath, err)
	}
}

// WriteKeyring writes the public keys of signers to home/name.
// Names ending in ".asc" are armored.
func WriteKeyring(t *testing.T, home, name string, signers ...*Signer) string {
	t.Helper()

	var buf bytes.Buffer
	var err error
	if strings.HasSuffix(name, ".asc") {
		err = writeArmoredKeys(&buf, signers)
	} else {
		err = writeKeys(&buf, signers)
	}
	if err != nil {
		t.Fatalf("failed to serialize keyring: %v", err)
	}

	path := filepath.Join(home, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("failed to write keyring %s: %v", path, err)
	}
	return path
}

// WriteOwnertrust writes an ownertrust.txt assigning values to signers.
func WriteOwnertrust(t *testing.T, home string, values map[*Signer]int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("# List of assigned trustvalues, created by testutil\n")
	for s, v := range values {
		fmt.Fprintf(&b, "%s:%d:\n", s.Fingerprint(), v)
	}

	path := filepath.Join(home, "ownertrust.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("failed to write ownertrust %s: %v", path, err)
	}
	return path
}

func writeKeys(buf *bytes.Buffer, signers []*Signer) error {
	for _, s := range signers {
		if err := s.Entity.Serialize(buf); err != nil {
			return err
		}
	}
	return nil
}

func writeArmoredKeys(buf *bytes.Buffer, signers []*Signer) error {
	w, err := armor.Encode(buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return err
	}
	for _, s := range signers {
		if err := s.Entity.Serialize(w); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
