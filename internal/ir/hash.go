package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainFragment = "weave/fragment/v1"
	DomainArtifact = "weave/artifact/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed identity of a fragment.
//
// The input is the raw Dump. Literal and Plain text reach the emitted
// code byte for byte, so they are hashed byte for byte; identifier
// spellings are normalized by the loader before a fragment is built.
// Block identity does not leak in: blocks are named by creation index and
// label only.
func Fingerprint(f *Fragment) string {
	return hashWithDomain(DomainFragment, []byte(Dump(f)))
}

// ArtifactKey identifies the emitted output for a fragment at a lane
// count under the current generator version.
func ArtifactKey(fingerprint string, lanes int) string {
	data := fingerprint + "\x00" + strconv.Itoa(lanes) + "\x00" + GeneratorVersion
	return hashWithDomain(DomainArtifact, []byte(data))
}
