package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Payload is the canonical content covered by a custody signature. Field order
// is fixed by the struct, and Timestamp is normalised to UTC microseconds so
// the bytes rebuilt from a stored record match the bytes that were signed.
// EvidenceID and Sequence pin a signature to one slot in one ledger.
type Payload struct {
	EvidenceID    string `json:"evidence_id"`
	Sequence      int64  `json:"sequence"`
	ActorID       string `json:"actor_id"`
	Action        string `json:"action"`
	Reason        string `json:"reason"`
	Location      string `json:"location"`
	Timestamp     string `json:"timestamp"`
	ChangesDigest string `json:"changes_digest,omitempty"`
}

// Canonicalize returns the deterministic serialisation of p.
func (p Payload) Canonicalize() ([]byte, error) {
	return json.Marshal(p)
}

// Timestamp formats t the way payloads expect.
func Timestamp(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano)
}

// Digest is the SHA-256 (hex) of v's JSON encoding, used to bind update-style
// signatures to the set of fields that changed.
func Digest(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal digest input: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
