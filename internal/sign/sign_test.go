package sign

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return priv
}

func TestSignVerify_RoundTrip(t *testing.T) {
	priv := genKey(t)

	for _, algo := range []Algorithm{RSA, RSA2} {
		t.Run(string(algo), func(t *testing.T) {
			content := "app_id=2016&biz_content={\"out_trade_no\":\"1\"}&method=trade.query"

			sig, err := Sign(content, priv, algo)
			require.NoError(t, err)
			assert.NotEmpty(t, sig)

			err = Verify(content, sig, &priv.PublicKey, algo)
			assert.NoError(t, err)
		})
	}
}

func TestVerify_Mismatch(t *testing.T) {
	priv := genKey(t)

	sig, err := Sign("original content", priv, RSA2)
	require.NoError(t, err)

	err = Verify("tampered content", sig, &priv.PublicKey, RSA2)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerify_EscapedSlashFallback(t *testing.T) {
	priv := genKey(t)

	// The provider signed the escaped form but delivered the payload with
	// plain slashes. Verify must still accept it.
	delivered := `{"a":"b/c"}`
	signed := `{"a":"b\/c"}`

	sig, err := Sign(signed, priv, RSA2)
	require.NoError(t, err)

	err = Verify(delivered, sig, &priv.PublicKey, RSA2)
	assert.NoError(t, err)
}

func TestVerify_HardErrors(t *testing.T) {
	priv := genKey(t)

	t.Run("BadBase64", func(t *testing.T) {
		err := Verify("content", "%%%not-base64%%%", &priv.PublicKey, RSA2)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("UnknownAlgorithm", func(t *testing.T) {
		err := Verify("content", "AAAA", &priv.PublicKey, Algorithm("MD5"))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("NilKey", func(t *testing.T) {
		err := Verify("content", "AAAA", nil, RSA2)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrSignatureMismatch)
	})
}

func TestSign_UnknownAlgorithm(t *testing.T) {
	priv := genKey(t)
	_, err := Sign("content", priv, Algorithm("DSA"))
	assert.Error(t, err)
}

func TestParsePrivateKey(t *testing.T) {
	priv := genKey(t)
	der := x509.MarshalPKCS1PrivateKey(priv)

	t.Run("PEM", func(t *testing.T) {
		pemStr := string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}))
		parsed, err := ParsePrivateKey(pemStr)
		require.NoError(t, err)
		assert.True(t, priv.Equal(parsed))
	})

	t.Run("BareBase64", func(t *testing.T) {
		parsed, err := ParsePrivateKey(base64.StdEncoding.EncodeToString(der))
		require.NoError(t, err)
		assert.True(t, priv.Equal(parsed))
	})

	t.Run("PKCS8", func(t *testing.T) {
		der8, err := x509.MarshalPKCS8PrivateKey(priv)
		require.NoError(t, err)
		parsed, err := ParsePrivateKey(base64.StdEncoding.EncodeToString(der8))
		require.NoError(t, err)
		assert.True(t, priv.Equal(parsed))
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := ParsePrivateKey("definitely not a key")
		assert.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := ParsePrivateKey("   ")
		assert.Error(t, err)
	})
}

func TestParsePublicKey(t *testing.T) {
	priv := genKey(t)

	t.Run("PKIX", func(t *testing.T) {
		der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
		require.NoError(t, err)
		parsed, err := ParsePublicKey(base64.StdEncoding.EncodeToString(der))
		require.NoError(t, err)
		assert.True(t, priv.PublicKey.Equal(parsed))
	})

	t.Run("PKCS1", func(t *testing.T) {
		der := x509.MarshalPKCS1PublicKey(&priv.PublicKey)
		parsed, err := ParsePublicKey(base64.StdEncoding.EncodeToString(der))
		require.NoError(t, err)
		assert.True(t, priv.PublicKey.Equal(parsed))
	})
}
