// Package fingerprint derives the content fingerprint recorded with every
// issued credential.
//
// The fingerprint is a cryptographic digest over the UTF-8 bytes of a compact
// JSON object holding, in this exact key order:
//
//	{"title":…,"institution":…,"recipient":…,"timestamp":<unix millis>}
//
// Identical fields and timestamp always produce the identical digest. The
// timestamp is part of the input, so issuing the same content twice yields
// two different fingerprints.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"hash"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/sha3"

	dErrors "verichain/pkg/domain-errors"
)

// Algorithm names a supported digest primitive.
type Algorithm string

const (
	// Keccak256 matches the digest the registry contract and browser wallets use.
	Keccak256 Algorithm = "keccak256"
	SHA3_256  Algorithm = "sha3-256"
	SHA256    Algorithm = "sha256"
)

// DigestSize is the fixed length of every fingerprint in bytes.
const DigestSize = 32

var primitives = map[Algorithm]func() hash.Hash{
	Keccak256: sha3.NewLegacyKeccak256,
	SHA3_256:  sha3.New256,
	SHA256:    sha256.New,
}

// Digest is a fixed-length content fingerprint.
type Digest [DigestSize]byte

// Hex returns the 0x-prefixed lower-case hex encoding.
func (d Digest) Hex() string {
	return "0x" + hex.EncodeToString(d[:])
}

func (d Digest) String() string { return d.Hex() }

// IsZero reports whether the digest is all zero bytes.
func (d Digest) IsZero() bool { return d == Digest{} }

// MarshalText encodes the digest as 0x-prefixed hex.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.Hex()), nil
}

// UnmarshalText decodes a 0x-prefixed hex digest.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest decodes a 32-byte hex digest with or without 0x prefix.
func ParseDigest(s string) (Digest, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil || len(raw) != DigestSize {
		return Digest{}, dErrors.New(dErrors.CodeInvalidInput, "fingerprint must be 32 hex-encoded bytes")
	}
	var d Digest
	copy(d[:], raw)
	return d, nil
}

// Fields are the identifying fields of a credential, hashed in declaration order.
type Fields struct {
	Title       string
	Institution string
	Recipient   string
	Timestamp   time.Time
}

// canonicalFields fixes the serialized key order and names.
type canonicalFields struct {
	Title       string `json:"title"`
	Institution string `json:"institution"`
	Recipient   string `json:"recipient"`
	Timestamp   int64  `json:"timestamp"`
}

// Canonicalizer hashes credential fields with one configured primitive.
// It is stateless and safe for concurrent use.
type Canonicalizer struct {
	algorithm Algorithm
	newHash   func() hash.Hash
}

// New returns a Canonicalizer for the named algorithm. An unknown name is a
// configuration error reported as CodeHashingUnavailable; there is no
// fallback to another primitive.
func New(algorithm Algorithm) (*Canonicalizer, error) {
	name := Algorithm(strings.ToLower(strings.TrimSpace(string(algorithm))))
	if name == "" {
		name = Keccak256
	}
	newHash, ok := primitives[name]
	if !ok {
		return nil, dErrors.New(dErrors.CodeHashingUnavailable, "hashing primitive not available: "+string(algorithm))
	}
	return &Canonicalizer{algorithm: name, newHash: newHash}, nil
}

// Algorithm reports the configured primitive.
func (c *Canonicalizer) Algorithm() Algorithm {
	return c.algorithm
}

// Canonical returns the exact bytes that Hash digests. Text fields must be
// valid UTF-8: the JSON encoding would otherwise fold distinct invalid
// bytes into U+FFFD and give different inputs the same fingerprint.
func (c *Canonicalizer) Canonical(f Fields) ([]byte, error) {
	for _, field := range []struct{ name, value string }{
		{"title", f.Title},
		{"institution", f.Institution},
		{"recipient", f.Recipient},
	} {
		if !utf8.ValidString(field.value) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, field.name+" is not valid UTF-8")
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(canonicalFields{
		Title:       f.Title,
		Institution: f.Institution,
		Recipient:   f.Recipient,
		Timestamp:   f.Timestamp.UnixMilli(),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to serialize fingerprint fields")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Hash computes the fingerprint of f.
func (c *Canonicalizer) Hash(f Fields) (Digest, error) {
	if c == nil || c.newHash == nil {
		return Digest{}, dErrors.New(dErrors.CodeHashingUnavailable, "fingerprint canonicalizer is not configured")
	}
	payload, err := c.Canonical(f)
	if err != nil {
		return Digest{}, err
	}
	h := c.newHash()
	_, _ = h.Write(payload)
	sum := h.Sum(nil)
	if len(sum) != DigestSize {
		return Digest{}, dErrors.New(dErrors.CodeHashingUnavailable, "hashing primitive produced unexpected digest size")
	}
	var d Digest
	copy(d[:], sum)
	return d, nil
}
