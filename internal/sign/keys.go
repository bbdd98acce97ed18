package sign

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// Providers hand out keys either as PEM blocks or as the bare base64 DER
// body with no header lines. Both shapes are accepted here.

// ParsePrivateKey reads a PKCS#1 or PKCS#8 RSA private key.
func ParsePrivateKey(key string) (*rsa.PrivateKey, error) {
	der, err := decodeKeyMaterial(key)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}

	if priv, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return priv, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("private key is neither PKCS#1 nor PKCS#8: %w", err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return priv, nil
}

// ParsePublicKey reads a PKIX or PKCS#1 RSA public key.
func ParsePublicKey(key string) (*rsa.PublicKey, error) {
	der, err := decodeKeyMaterial(key)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}

	if parsed, err := x509.ParsePKIXPublicKey(der); err == nil {
		pub, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("public key is not RSA")
		}
		return pub, nil
	}

	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("public key is neither PKIX nor PKCS#1: %w", err)
	}
	return pub, nil
}

func decodeKeyMaterial(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("empty key material")
	}

	if strings.HasPrefix(key, "-----") {
		block, _ := pem.Decode([]byte(key))
		if block == nil {
			return nil, errors.New("invalid PEM block")
		}
		return block.Bytes, nil
	}

	// Bare base64, possibly wrapped across lines.
	compact := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, key)

	der, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("not PEM and not base64 DER: %w", err)
	}
	return der, nil
}
