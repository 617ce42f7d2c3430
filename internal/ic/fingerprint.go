package ic

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the pretty-printed program. Equal trees have equal
// fingerprints; passes compare fingerprints to detect a fixed point.
func Fingerprint(p *Program) uint64 {
	return xxhash.Sum64String(p.String())
}

// FunctionFingerprint hashes one pretty-printed function.
func FunctionFingerprint(f *Function) uint64 {
	return xxhash.Sum64String(f.String())
}

// FormatFingerprint renders a fingerprint as 16 hex digits.
func FormatFingerprint(fp uint64) string {
	s := strconv.FormatUint(fp, 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}
