package pgp

import (
	"fmt"
	"strconv"
	"strings"
)

// TrustLevel is the validity the keyring assigns to a signer's key.
// Levels are ordered: a higher value is more trusted.
type TrustLevel int

const (
	TrustUndefined TrustLevel = iota
	TrustNever
	TrustMarginal
	TrustFull
	TrustUltimate
)

// String returns the GnuPG name of the trust level.
func (l TrustLevel) String() string {
	switch l {
	case TrustUndefined:
		return "undefined"
	case TrustNever:
		return "never"
	case TrustMarginal:
		return "marginal"
	case TrustFull:
		return "full"
	case TrustUltimate:
		return "ultimate"
	default:
		return fmt.Sprintf("unknown(%d)", int(l))
	}
}

// Requirable tells if the level may be used as a minimum requirement.
// Only marginal, full and ultimate are meaningful thresholds.
func (l TrustLevel) Requirable() bool {
	return l >= TrustMarginal && l <= TrustUltimate
}

// ParseTrustLevel accepts either the numeric form ("3") or the name ("full").
func ParseTrustLevel(s string) (TrustLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		l := TrustLevel(n)
		if l < TrustUndefined || l > TrustUltimate {
			return TrustUndefined, fmt.Errorf("trust level %d out of range 0-4", n)
		}
		return l, nil
	}
	for l := TrustUndefined; l <= TrustUltimate; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	// gpg status lines use "fully" for full trust
	if s == "fully" {
		return TrustFull, nil
	}
	return TrustUndefined, fmt.Errorf("unknown trust level %q", s)
}

// trustFromOwnertrust maps a GnuPG ownertrust value (as written by
// --export-ownertrust) to a trust level. The low nibble carries the trust;
// higher bits are flags.
func trustFromOwnertrust(v int) TrustLevel {
	switch v & 0x0f {
	case 3:
		return TrustNever
	case 4:
		return TrustMarginal
	case 5:
		return TrustFull
	case 6:
		return TrustUltimate
	default:
		return TrustUndefined
	}
}
