package clockid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Generator produces job identifiers and request fingerprints.
type Generator struct{}

// NewGenerator constructs an ID Generator.
func NewGenerator() Generator { return Generator{} }

// NewJobID returns a fresh, unique job identifier.
func (Generator) NewJobID() string {
	return "job-" + uuid.NewString()
}

// Fingerprint computes the stable request fingerprint for a model call:
// hash of (segment checksum, language, mode, prompt template version,
// model identifier), per spec.md §4.5.
func Fingerprint(segmentChecksum, language, mode, templateVersion, modelIdentifier string) string {
	h := sha256.New()
	parts := []string{segmentChecksum, language, mode, templateVersion, modelIdentifier}
	h.Write([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h.Sum(nil))
}

// ChecksumBytes returns the hex-encoded SHA-256 digest of data, used for
// segment content checksums (spec.md §3 Segment.checksum).
func ChecksumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
