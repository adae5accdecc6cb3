package report

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/netsweep/netsweep/internal/config"
	"github.com/netsweep/netsweep/internal/errors"
)

// Signature algorithms supported by the pipeline.
const (
	AlgorithmEd25519    = "ed25519"
	AlgorithmHMACSHA256 = "hmac-sha256"
)

// Key derivation parameters for passphrase-based signing.
const (
	pbkdf2Iterations = 4096
	pbkdf2KeyLength  = 32
)

// Signature authenticates the report payload of an envelope.
type Signature struct {
	Algorithm string `json:"algorithm"`
	KeyID     string `json:"key_id,omitempty"`
	Value     string `json:"value"`
}

// Signer signs report payloads with either an ed25519 key loaded from
// disk or an HMAC key derived from a configured passphrase.
type Signer struct {
	algorithm string
	keyID     string
	priv      ed25519.PrivateKey
	hmacKey   []byte
}

// NewSigner builds a signer from the signing section of the
// configuration. A key file takes precedence over a passphrase.
func NewSigner(cfg config.SigningConfig) (*Signer, error) {
	switch {
	case cfg.KeyFile != "":
		priv, err := loadSeedKey(cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		return &Signer{
			algorithm: AlgorithmEd25519,
			keyID:     cfg.KeyID,
			priv:      priv,
		}, nil
	case cfg.Passphrase != "":
		key := pbkdf2.Key([]byte(cfg.Passphrase), []byte(cfg.Salt),
			pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
		return &Signer{
			algorithm: AlgorithmHMACSHA256,
			keyID:     cfg.KeyID,
			hmacKey:   key,
		}, nil
	default:
		return nil, errors.WrapReportError(errors.CodeSigning,
			"no signing key file or passphrase configured", nil)
	}
}

// loadSeedKey reads a base64-encoded ed25519 seed from disk.
func loadSeedKey(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapReportError(errors.CodeSigning,
			"failed to read signing key file", err)
	}

	seed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, errors.WrapReportError(errors.CodeSigning,
			"signing key file is not valid base64", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, errors.WrapReportError(errors.CodeSigning,
			"signing key seed has wrong length", nil)
	}

	return ed25519.NewKeyFromSeed(seed), nil
}

// Algorithm returns the signature algorithm this signer produces.
func (s *Signer) Algorithm() string {
	return s.algorithm
}

// PublicKey returns the verification key for ed25519 signers, nil
// otherwise.
func (s *Signer) PublicKey() ed25519.PublicKey {
	if s.priv == nil {
		return nil
	}
	return s.priv.Public().(ed25519.PublicKey)
}

// Sign produces a signature over the given payload.
func (s *Signer) Sign(payload []byte) Signature {
	var value []byte
	if s.priv != nil {
		value = ed25519.Sign(s.priv, payload)
	} else {
		mac := hmac.New(sha256.New, s.hmacKey)
		mac.Write(payload)
		value = mac.Sum(nil)
	}

	return Signature{
		Algorithm: s.algorithm,
		KeyID:     s.keyID,
		Value:     base64.StdEncoding.EncodeToString(value),
	}
}

// Verify reports whether the signature matches the payload.
func (s *Signer) Verify(payload []byte, sig Signature) bool {
	if sig.Algorithm != s.algorithm {
		return false
	}

	value, err := base64.StdEncoding.DecodeString(sig.Value)
	if err != nil {
		return false
	}

	if s.priv != nil {
		return ed25519.Verify(s.PublicKey(), payload, value)
	}

	mac := hmac.New(sha256.New, s.hmacKey)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), value)
}
