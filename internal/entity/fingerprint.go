package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Fingerprint computes a stable digest over a record's identity-bearing
// fields. Two records with the same fingerprint are the same business entity
// as far as the pipeline is concerned.
//
// Field values are NFC-normalized before hashing so that visually identical
// Unicode spellings (composed vs decomposed) produce the same fingerprint.
// Fields are hashed in sorted name order; absent fields hash as empty.
func Fingerprint(rec Record, identityFields []string) string {
	names := make([]string, len(identityFields))
	copy(names, identityFields)
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(norm.NFC.String(strings.TrimSpace(rec.Fields[name]))))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// IdentityChanged reports whether applying corrected on top of rec would
// change the record's identity fingerprint.
func IdentityChanged(rec Record, corrected map[string]string, identityFields []string) bool {
	before := Fingerprint(rec, identityFields)

	after := rec.Clone()
	for k, v := range corrected {
		after.Fields[k] = v
	}
	return Fingerprint(after, identityFields) != before
}
