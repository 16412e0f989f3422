package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows algorithm migration.
const (
	DomainViolation = "refguard/violation/v1"
	DomainManifest  = "refguard/manifest/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ViolationHash identifies a violation by its content. Two ingestions that
// detect the same chain produce the same hash.
func ViolationHash(v Violation) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ViolationHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainViolation, canonical), nil
}

// ManifestHash identifies an ordered set of module specs.
func ManifestHash(specs []ModuleSpec) (string, error) {
	canonical, err := MarshalCanonical(specs)
	if err != nil {
		return "", fmt.Errorf("ManifestHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainManifest, canonical), nil
}

// MustViolationHash is like ViolationHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustViolationHash(v Violation) string {
	h, err := ViolationHash(v)
	if err != nil {
		panic(err)
	}
	return h
}
