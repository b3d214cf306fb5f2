package table

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ExtractorIdentity names the external feature extractor a multimedia
// table's descriptors were produced by: name, version, and parameters.
// Fingerprint collapses the three into a single comparable value, and a
// multimedia table's identity is saved in meta.json at creation. No query
// path calls Matches, so a query's descriptors are not checked against it.
type ExtractorIdentity struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Params     string `json:"params"`
	Fingerprint string `json:"fingerprint"`
}

// NewExtractorIdentity computes the BLAKE2b-256 fingerprint of
// (name, version, params), grounded on the same library the wider
// corpus's content-addressed storage pieces use for fingerprinting.
func NewExtractorIdentity(name, version, params string) ExtractorIdentity {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%s", name, version, params)))
	return ExtractorIdentity{Name: name, Version: version, Params: params, Fingerprint: hex.EncodeToString(sum[:])}
}

// Matches reports whether other was produced by the same extractor
// identity as e.
func (e ExtractorIdentity) Matches(other ExtractorIdentity) bool {
	return e.Fingerprint == other.Fingerprint
}
