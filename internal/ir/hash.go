package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainNode is the domain prefix for node fingerprints.
// The version suffix allows a future change of encoding.
const DomainNode = "causalrt/ir/node/v1"

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data). The null byte separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the structural identity of a node tree. Two trees
// with identical fields have the same fingerprint.
func Fingerprint(n Node) (string, error) {
	canonical, err := MarshalNode(n)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainNode, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the tree is known to be well formed.
func MustFingerprint(n Node) string {
	fp, err := Fingerprint(n)
	if err != nil {
		panic(err)
	}
	return fp
}

// Equal reports whether a and b are structurally identical.
// Trees that cannot be encoded are never equal.
func Equal(a, b Node) bool {
	ca, err := MarshalNode(a)
	if err != nil {
		return false
	}
	cb, err := MarshalNode(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}
