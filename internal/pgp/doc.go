// Package pgp verifies OpenPGP detached signatures and reports the trust the
// local keyring places in the signer.
//
// # Engines
//
// Two engines implement the Engine interface:
//   - GPG: drives the gpg binary with --status-fd and parses the
//     machine-readable status lines. Trust comes from GnuPG's own trust
//     database, so web-of-trust computations are whatever gpg decides.
//   - Native: pure Go verification using ProtonMail's go-crypto. Keys come
//     from pubring.asc, pubring.gpg or trustedkeys.gpg in the home directory
//     and trust from an ownertrust.txt file in `gpg --export-ownertrust`
//     format, read with the direct trust model (validity = owner trust).
//
// # Results and errors
//
// Verify returns an error only when the engine could not process the
// signature at all (malformed data, missing file, engine crash). A signature
// that was processed but does not validate is reported as a Result with
// Valid set to false, so callers can tell "broken input" from "bad
// signature".
package pgp
