package gateway

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"paygate/internal/sign"
)

// testMerchant builds a merchant whose key pair doubles as the provider's:
// the stub provider signs envelopes with the same private key the merchant
// verifies against.
func testMerchant(t *testing.T) (*Merchant, *rsa.PrivateKey) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privB64 := base64.StdEncoding.EncodeToString(x509.MarshalPKCS1PrivateKey(priv))
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	pubB64 := base64.StdEncoding.EncodeToString(pubDER)

	m, err := NewMerchant("app-2016", privB64, pubB64, "RSA2")
	require.NoError(t, err)
	return m, priv
}

// stubTransport answers gateway posts from a function and records every
// call it saw.
type stubTransport struct {
	fn    func(method string, form url.Values) (string, error)
	calls []url.Values
}

func (s *stubTransport) Post(_ context.Context, _ string, body string) (string, error) {
	form, err := url.ParseQuery(body)
	if err != nil {
		return "", err
	}
	s.calls = append(s.calls, form)
	return s.fn(form.Get("method"), form)
}

func (s *stubTransport) callsFor(method string) int {
	n := 0
	for _, c := range s.calls {
		if c.Get("method") == method {
			n++
		}
	}
	return n
}

// signedEnvelope wraps a payload into the provider's single-key response
// envelope with a valid signature over the exact payload bytes.
func signedEnvelope(t *testing.T, priv *rsa.PrivateKey, key, payload string) string {
	t.Helper()
	sig, err := sign.Sign(payload, priv, sign.RSA2)
	require.NoError(t, err)
	return fmt.Sprintf(`{"%s":%s,"sign":"%s"}`, key, payload, sig)
}

// hookRecorder counts hook invocations for the exactly-once contract.
type hookRecorder struct {
	succeeded []*Response
	failed    []string
	failResp  []*Response
}

func (h *hookRecorder) hooks() Hooks {
	return Hooks{
		OnPaySucceed: func(resp *Response, extra string) {
			h.succeeded = append(h.succeeded, resp)
		},
		OnPayFailed: func(resp *Response, reason string) {
			h.failed = append(h.failed, reason)
			h.failResp = append(h.failResp, resp)
		},
	}
}
