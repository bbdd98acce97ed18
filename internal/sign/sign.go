package sign

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Algorithm selects the digest used for RSA signing. Providers call
// SHA1withRSA "RSA" and SHA256withRSA "RSA2".
type Algorithm string

const (
	RSA  Algorithm = "RSA"
	RSA2 Algorithm = "RSA2"
)

// ErrSignatureMismatch means the signature decoded fine but does not match
// the content. Anything else returned by Verify is a hard error (bad key,
// bad base64, unknown algorithm).
var ErrSignatureMismatch = errors.New("signature mismatch")

func (a Algorithm) hash() (crypto.Hash, error) {
	switch a {
	case RSA:
		return crypto.SHA1, nil
	case RSA2:
		return crypto.SHA256, nil
	default:
		return 0, fmt.Errorf("unsupported sign algorithm: %q", a)
	}
}

// Sign produces a base64 RSA signature over content. Callers are expected to
// pass the canonical query string with the sign field already excluded.
func Sign(content string, priv *rsa.PrivateKey, algo Algorithm) (string, error) {
	if priv == nil {
		return "", errors.New("nil private key")
	}
	h, err := algo.hash()
	if err != nil {
		return "", err
	}

	digest := digestOf(content, algo)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, h, digest)
	if err != nil {
		return "", fmt.Errorf("rsa sign failed: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 signature against content.
//
// Some providers escape forward slashes in the payload they signed but
// deliver it unescaped (or the other way around). When the first attempt
// mismatches, the content is retried once with "/" replaced by "\/" before
// the mismatch is reported. This is a documented provider compatibility
// behavior, not an error path.
func Verify(content, signature string, pub *rsa.PublicKey, algo Algorithm) error {
	if pub == nil {
		return errors.New("nil public key")
	}
	h, err := algo.hash()
	if err != nil {
		return err
	}

	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("signature is not valid base64: %w", err)
	}

	if rsa.VerifyPKCS1v15(pub, h, digestOf(content, algo), raw) == nil {
		return nil
	}

	escaped := strings.ReplaceAll(content, "/", `\/`)
	if escaped != content {
		if rsa.VerifyPKCS1v15(pub, h, digestOf(escaped, algo), raw) == nil {
			return nil
		}
	}
	return ErrSignatureMismatch
}

func digestOf(content string, algo Algorithm) []byte {
	if algo == RSA {
		sum := sha1.Sum([]byte(content))
		return sum[:]
	}
	sum := sha256.Sum256([]byte(content))
	return sum[:]
}
