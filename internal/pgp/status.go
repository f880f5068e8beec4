package pgp

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// statusPrefix starts every machine-readable line gpg writes to --status-fd.
// See https://github.com/gpg/gnupg/blob/master/doc/DETAILS#general-status-codes
const statusPrefix = "[GNUPG:] "

// errsigNoPubkey is the ERRSIG return code for a missing public key.
const errsigNoPubkey = "9"

// parseStatus builds a Result from gpg status output.
// It fails when gpg found nothing it could treat as a signature.
func parseStatus(out []byte) (*Result, error) {
	res := &Result{Trust: TrustUndefined}
	sawSig := false
	sawValid := false

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, statusPrefix) {
			continue
		}
		keyword, rest, _ := strings.Cut(strings.TrimPrefix(line, statusPrefix), " ")
		args := strings.Fields(rest)

		switch keyword {
		case "GOODSIG", "BADSIG", "EXPSIG", "EXPKEYSIG", "REVKEYSIG":
			sawSig = true
			res.Status = sigStatus(keyword)
			keyID, user, _ := strings.Cut(rest, " ")
			res.KeyID = normalizeKeyID(keyID)
			res.Signer = strings.TrimSpace(user)

		case "ERRSIG":
			// ERRSIG <keyid> <pkalgo> <hashalgo> <sig_class> <time> <rc> [<fpr>]
			sawSig = true
			res.Status = StatusError
			if len(args) > 0 {
				res.KeyID = normalizeKeyID(args[0])
			}
			if len(args) > 4 {
				res.Created = parseStatusTime(args[4])
			}
			if len(args) > 5 && args[5] == errsigNoPubkey {
				res.Status = StatusNoKey
			}
			if len(args) > 6 && args[6] != "-" {
				res.Fingerprint = strings.ToUpper(args[6])
			}

		case "NO_PUBKEY":
			res.Status = StatusNoKey
			if len(args) > 0 {
				res.KeyID = normalizeKeyID(args[0])
			}

		case "VALIDSIG":
			// VALIDSIG <fpr> <sig_creation_date> <sig-timestamp> <expire-timestamp> ...
			sawValid = true
			if len(args) > 0 {
				res.Fingerprint = strings.ToUpper(args[0])
			}
			if len(args) > 2 {
				res.Created = parseStatusTime(args[2])
			}

		case "TRUST_UNDEFINED", "TRUST_NEVER", "TRUST_MARGINAL", "TRUST_FULLY", "TRUST_ULTIMATE":
			level, err := ParseTrustLevel(strings.TrimPrefix(keyword, "TRUST_"))
			if err != nil {
				return nil, err
			}
			res.Trust = level

		case "NODATA":
			return nil, fmt.Errorf("gpg found no signature data (NODATA %s)", strings.TrimSpace(rest))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gpg status: %w", err)
	}

	if !sawSig {
		return nil, fmt.Errorf("gpg reported no signature status")
	}

	res.Valid = res.Status == StatusGood && sawValid
	return res, nil
}

func sigStatus(keyword string) Status {
	switch keyword {
	case "GOODSIG":
		return StatusGood
	case "EXPSIG":
		return StatusExpiredSig
	case "EXPKEYSIG":
		return StatusExpiredKey
	case "REVKEYSIG":
		return StatusRevokedKey
	default:
		return StatusBad
	}
}

// normalizeKeyID reduces a key ID or fingerprint to its 16 digit long ID.
func normalizeKeyID(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	if len(id) > 16 {
		return id[len(id)-16:]
	}
	return id
}

// parseStatusTime handles both epoch seconds and the ISO 8601 basic form
// gpg uses for some timestamps.
func parseStatusTime(s string) time.Time {
	if strings.Contains(s, "T") {
		t, err := time.Parse("20060102T150405", s)
		if err != nil {
			return time.Time{}
		}
		return t.UTC()
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
