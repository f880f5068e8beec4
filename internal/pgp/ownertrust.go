package pgp

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// OwnertrustFile is the trust database file the native engine reads from the
// keyring home. It uses the format of `gpg --export-ownertrust`.
const OwnertrustFile = "ownertrust.txt"

// ownertrust maps upper-case primary key fingerprints to trust levels.
type ownertrust map[string]TrustLevel

// parseOwnertrust reads lines of the form "FINGERPRINT:VALUE:".
// Blank lines and lines starting with '#' are ignored.
func parseOwnertrust(r io.Reader) (ownertrust, error) {
	trust := ownertrust{}
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ":")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected FINGERPRINT:VALUE:", lineno)
		}

		fpr := strings.ToUpper(strings.TrimSpace(fields[0]))
		if _, err := hex.DecodeString(fpr); err != nil || (len(fpr) != 40 && len(fpr) != 64) {
			return nil, fmt.Errorf("line %d: invalid fingerprint %q", lineno, fields[0])
		}

		value, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid trust value %q", lineno, fields[1])
		}

		trust[fpr] = trustFromOwnertrust(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return trust, nil
}

// level returns the trust of a fingerprint, undefined when unknown.
func (o ownertrust) level(fingerprint string) TrustLevel {
	if l, ok := o[strings.ToUpper(fingerprint)]; ok {
		return l
	}
	return TrustUndefined
}
