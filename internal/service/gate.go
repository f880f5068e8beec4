package service

import (
	"fmt"

	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/errors"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/pgp"
)

// Gate decides whether a verification result may be released.
// An invalid signature is an InvalidSignature error; a valid signature
// whose trust is below required is an InsufficientTrust error.
func Gate(res *pgp.Result, required pgp.TrustLevel) error {
	if res == nil {
		return errors.E(errors.Verification, errors.Op("trust gate"), "no verification result")
	}

	if !res.Valid {
		desc := fmt.Sprintf("signature is not valid (%s)", res.Status)
		if res.KeyID != "" {
			desc = fmt.Sprintf("signature by key %s is not valid (%s)", res.KeyID, res.Status)
		}
		return errors.E(errors.InvalidSignature, errors.Op("trust gate"), desc)
	}

	if res.Trust < required {
		return errors.E(errors.InsufficientTrust, errors.Op("trust gate"),
			fmt.Sprintf("key %s has trust %s (%d), at least %s (%d) is required",
				res.KeyID, res.Trust, int(res.Trust), required, int(required)))
	}

	return nil
}
