package gateway

import (
	"crypto/rsa"
	"fmt"

	"paygate/internal/sign"
)

// Merchant is the provider-issued identity. It is immutable after
// construction and safe to share across concurrent requests; key material
// is parsed once here so every call gets a hard failure up front instead
// of at signing time.
type Merchant struct {
	AppID    string
	SellerID string
	SignType string

	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	algo       sign.Algorithm
}

// NewMerchant parses the merchant's private signing key and the provider's
// public verification key. signType selects the algorithm ("RSA" or "RSA2").
func NewMerchant(appID, privateKey, providerPublicKey, signType string) (*Merchant, error) {
	if appID == "" {
		return nil, fmt.Errorf("merchant app id is required")
	}

	algo := sign.Algorithm(signType)
	if algo != sign.RSA && algo != sign.RSA2 {
		return nil, fmt.Errorf("unsupported sign type: %q", signType)
	}

	priv, err := sign.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("merchant private key: %w", err)
	}
	pub, err := sign.ParsePublicKey(providerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("provider public key: %w", err)
	}

	return &Merchant{
		AppID:      appID,
		SignType:   signType,
		privateKey: priv,
		publicKey:  pub,
		algo:       algo,
	}, nil
}

func (m *Merchant) Sign(content string) (string, error) {
	return sign.Sign(content, m.privateKey, m.algo)
}

func (m *Merchant) Verify(content, signature string) error {
	return sign.Verify(content, signature, m.publicKey, m.algo)
}
