package pgp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	pgperrors "github.com/ProtonMail/go-crypto/openpgp/errors"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/errors"
)

// KeyringFiles are the public keyring names the native engine looks for in
// the home directory, in order.
var KeyringFiles = []string{"pubring.asc", "pubring.gpg", "trustedkeys.gpg"}

// maxSignatureSize bounds how much of a signature file is read.
const maxSignatureSize = 1 << 20

// armorHeader starts every ASCII armored block.
var armorHeader = []byte("-----BEGIN ")

// Native verifies signatures in-process with go-crypto.
type Native struct {
	keyring openpgp.EntityList
	trust   ownertrust
	logger  zerolog.Logger
}

// OpenNative loads the public keyring and ownertrust file from home.
func OpenNative(home string, opts Options) (*Native, error) {
	if err := checkHome(home); err != nil {
		return nil, err
	}

	logger := opts.Logger.With().Str("engine", "native").Logger()

	keyringPath, err := findKeyring(home)
	if err != nil {
		return nil, err
	}

	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return nil, errors.E(errors.EngineInit, errors.Op("load keyring"), errors.Path(keyringPath), err)
	}

	trustPath := filepath.Join(home, OwnertrustFile)
	trust, err := loadOwnertrust(trustPath)
	if err != nil {
		return nil, errors.E(errors.EngineInit, errors.Op("load ownertrust"), errors.Path(trustPath), err)
	}

	logger.Debug().
		Str("keyring", keyringPath).
		Int("keys", len(keyring)).
		Int("trusted", len(trust)).
		Msg("native engine ready")

	return &Native{keyring: keyring, trust: trust, logger: logger}, nil
}

// Name implements Engine.
func (n *Native) Name() string { return string(EngineNative) }

// Verify implements Engine.
func (n *Native) Verify(ctx context.Context, filePath, sigPath string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.E(errors.Verification, err)
	}

	sigData, err := readSignature(sigPath)
	if err != nil {
		return nil, errors.E(errors.Verification, errors.Op("read signature"), errors.Path(sigPath), err)
	}

	sigPkt, err := firstSignature(sigData)
	if err != nil {
		return nil, errors.E(errors.Verification, errors.Op("parse signature"), errors.Path(sigPath), err)
	}

	res := &Result{
		Status:  StatusError,
		Created: sigPkt.CreationTime.UTC(),
		Trust:   TrustUndefined,
	}
	if sigPkt.IssuerKeyId != nil {
		res.KeyID = fmt.Sprintf("%016X", *sigPkt.IssuerKeyId)
	}

	data, err := os.Open(filePath)
	if err != nil {
		return nil, errors.E(errors.Verification, errors.Op("open input"), errors.Path(filePath), err)
	}
	defer data.Close()

	sig, signer, err := openpgp.VerifyDetachedSignature(n.keyring, data, bytes.NewReader(sigData), nil)
	if signer != nil {
		res.Signer = entityName(signer)
		res.Fingerprint = fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint)
		res.Trust = n.trust.level(res.Fingerprint)
	}
	if sig != nil && sig.IssuerKeyId != nil {
		res.KeyID = fmt.Sprintf("%016X", *sig.IssuerKeyId)
	}

	var structural pgperrors.StructuralError
	var unsupported pgperrors.UnsupportedError
	switch {
	case err == nil:
		res.Status = StatusGood
		res.Valid = true
	case errors.Is(err, pgperrors.ErrUnknownIssuer):
		res.Status = StatusNoKey
	case errors.Is(err, pgperrors.ErrSignatureExpired):
		res.Status = StatusExpiredSig
	case errors.As(err, &structural), errors.As(err, &unsupported):
		return nil, errors.E(errors.Verification, errors.Op("verify signature"), errors.Path(sigPath), err)
	default:
		res.Status = StatusBad
	}

	if err != nil {
		n.logger.Debug().
			Err(err).
			Str("signature", sigPath).
			Msg("signature rejected by go-crypto")
	}

	return res, nil
}

// findKeyring returns the first keyring file present in home.
func findKeyring(home string) (string, error) {
	for _, name := range KeyringFiles {
		path := filepath.Join(home, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", errors.E(errors.EngineInit, errors.Path(home),
		fmt.Sprintf("no keyring found (looked for %s)", strings.Join(KeyringFiles, ", ")))
}

// loadKeyring reads an armored or binary public keyring.
func loadKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var keyring openpgp.EntityList
	if isArmored(br) {
		keyring, err = openpgp.ReadArmoredKeyRing(br)
	} else {
		keyring, err = openpgp.ReadKeyRing(br)
	}
	if err != nil {
		return nil, fmt.Errorf("read keyring: %w", err)
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}
	return keyring, nil
}

// loadOwnertrust reads the trust file; a missing file means no key is trusted.
func loadOwnertrust(path string) (ownertrust, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ownertrust{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return parseOwnertrust(f)
}

// readSignature returns the binary signature packets, removing armor if present.
func readSignature(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(io.LimitReader(f, maxSignatureSize))
	if !isArmored(br) {
		return io.ReadAll(br)
	}

	block, err := armor.Decode(br)
	if err != nil {
		return nil, fmt.Errorf("decode armor: %w", err)
	}
	if block.Type != openpgp.SignatureType {
		return nil, fmt.Errorf("armored block is %q, not a signature", block.Type)
	}
	return io.ReadAll(block.Body)
}

// firstSignature parses the leading signature packet.
func firstSignature(data []byte) (*packet.Signature, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("signature is empty")
	}
	p, err := packet.NewReader(bytes.NewReader(data)).Next()
	if err != nil {
		return nil, err
	}
	sig, ok := p.(*packet.Signature)
	if !ok {
		return nil, fmt.Errorf("not a detached signature (found %T)", p)
	}
	return sig, nil
}

func isArmored(br *bufio.Reader) bool {
	head, _ := br.Peek(len(armorHeader))
	return bytes.Equal(head, armorHeader)
}

// entityName returns the primary user ID of an entity.
func entityName(entity *openpgp.Entity) string {
	if id := entity.PrimaryIdentity(); id != nil {
		return id.Name
	}
	for name := range entity.Identities {
		return name
	}
	return ""
}
