package retrieve

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/zeebo/blake3"

	"github.com/kamusis/pyckles/errdefs"
)

const algBlake3 = "blake3"

// Checksum is an expected content hash. The zero value verifies nothing.
type Checksum struct {
	alg string
	hex string
}

// ParseChecksum accepts "<algorithm>:<hex>" with algorithm sha256, sha384,
// sha512 or blake3, or a bare hex string: 64 digits are read as sha256 and
// 128 digits as sha512. The empty string yields the zero Checksum.
func ParseChecksum(s string) (Checksum, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Checksum{}, nil
	}
	if !strings.Contains(s, ":") {
		switch len(s) {
		case 64:
			s = string(digest.SHA256) + ":" + s
		case 128:
			s = string(digest.SHA512) + ":" + s
		default:
			return Checksum{}, fmt.Errorf("invalid content hash %q: bare hex must have 64 or 128 digits: %w", s, errdefs.ErrInvalidValue)
		}
	}

	alg, encoded, _ := strings.Cut(s, ":")
	if alg == algBlake3 {
		if b, err := hex.DecodeString(encoded); err != nil || len(b) != 32 {
			return Checksum{}, fmt.Errorf("invalid content hash %q: %w", s, errdefs.ErrInvalidValue)
		}
		return Checksum{alg: alg, hex: encoded}, nil
	}

	d, err := digest.Parse(s)
	if err != nil {
		return Checksum{}, fmt.Errorf("invalid content hash %q: %v: %w", s, err, errdefs.ErrInvalidValue)
	}
	return Checksum{alg: string(d.Algorithm()), hex: d.Encoded()}, nil
}

// IsZero reports whether c carries no expectation.
func (c Checksum) IsZero() bool { return c.alg == "" }

// Algorithm returns the hash algorithm name.
func (c Checksum) Algorithm() string { return c.alg }

func (c Checksum) String() string {
	if c.IsZero() {
		return ""
	}
	return c.alg + ":" + c.hex
}

func (c Checksum) newHash() hash.Hash {
	if c.alg == algBlake3 {
		return blake3.New()
	}
	return digest.Algorithm(c.alg).Hash()
}

// verify compares a finished hash against c and returns the IntegrityError
// describing a mismatch, or nil.
func (c Checksum) verify(filename string, h hash.Hash) error {
	got := hex.EncodeToString(h.Sum(nil))
	if got == c.hex {
		return nil
	}
	return &IntegrityError{Filename: filename, Expected: c.String(), Got: c.alg + ":" + got}
}

// verifyFile hashes the file at path and compares it against c.
func (c Checksum) verifyFile(filename, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	h := c.newHash()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("cannot hash %s: %w", path, err)
	}
	return c.verify(filename, h)
}

// Sum returns the checksum of r under alg, formatted as ParseChecksum
// accepts it.
func Sum(alg string, r io.Reader) (string, error) {
	var h hash.Hash
	switch alg {
	case algBlake3:
		h = blake3.New()
	default:
		a := digest.Algorithm(alg)
		if !a.Available() {
			return "", fmt.Errorf("unsupported hash algorithm %q: %w", alg, errdefs.ErrInvalidValue)
		}
		h = a.Hash()
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return alg + ":" + hex.EncodeToString(h.Sum(nil)), nil
}
