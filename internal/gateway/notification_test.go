package gateway

import (
	"crypto/rsa"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/gatewaydata"
	"paygate/internal/sign"
)

// signNotification computes the provider-side signature over the canonical
// form of all fields except sign/sign_type, then attaches both.
func signNotification(t *testing.T, priv *rsa.PrivateKey, form url.Values) url.Values {
	t.Helper()

	data := gatewaydata.ParseForm(form)
	data.Remove(gatewaydata.FieldSign)
	data.Remove(gatewaydata.FieldSignType)

	sig, err := sign.Sign(data.QueryString(false), priv, sign.RSA2)
	require.NoError(t, err)

	form.Set(gatewaydata.FieldSign, sig)
	form.Set(gatewaydata.FieldSignType, "RSA2")
	return form
}

func paidForm() url.Values {
	form := url.Values{}
	form.Set("notify_id", "n-001")
	form.Set("notify_time", "2026-08-29 10:00:00")
	form.Set("app_id", "app-2016")
	form.Set("trade_no", "t-700")
	form.Set("out_trade_no", "ord-55")
	form.Set("trade_status", "TRADE_SUCCESS")
	form.Set("total_amount", "19.90")
	form.Set("buyer_id", "2088001")
	form.Set("gmt_payment", "2026-08-29 09:59:58")
	return form
}

func TestValidateNotification(t *testing.T) {
	m, priv := testMerchant(t)
	c := NewClient(m, "https://openapi.example.com", &stubTransport{})

	t.Run("Paid", func(t *testing.T) {
		n, err := c.ValidateNotification(signNotification(t, priv, paidForm()))
		require.NoError(t, err)

		assert.True(t, n.Paid())
		assert.Equal(t, "t-700", n.TradeNo)
		assert.Equal(t, "ord-55", n.OutTradeNo)
		assert.Equal(t, "RSA2", n.SignType)
	})

	t.Run("FinishedCountsAsPaid", func(t *testing.T) {
		form := paidForm()
		form.Set("trade_status", TradeFinished)

		n, err := c.ValidateNotification(signNotification(t, priv, form))
		require.NoError(t, err)
		assert.True(t, n.Paid())
	})

	t.Run("WaitBuyerPayIsNotPaid", func(t *testing.T) {
		form := paidForm()
		form.Set("trade_status", TradeWaitBuyerPay)

		n, err := c.ValidateNotification(signNotification(t, priv, form))
		require.NoError(t, err)
		assert.False(t, n.Paid())
	})

	t.Run("ExtraSignedFieldsStillVerify", func(t *testing.T) {
		// Providers add fields over time. Everything delivered except
		// sign/sign_type is part of the signed content, so unknown extras
		// must not break verification.
		form := paidForm()
		form.Set("fund_bill_list", `[{"amount":"19.90","fundChannel":"ALIPAYACCOUNT"}]`)
		form.Set("voucher_detail_list", "[]")

		n, err := c.ValidateNotification(signNotification(t, priv, form))
		require.NoError(t, err)
		assert.True(t, n.Paid())

		v, ok := n.Field("fund_bill_list")
		assert.True(t, ok)
		assert.Contains(t, v, "ALIPAYACCOUNT")
	})

	t.Run("TamperedAmount", func(t *testing.T) {
		form := signNotification(t, priv, paidForm())
		form.Set("total_amount", "0.01")

		n, err := c.ValidateNotification(form)
		assert.Nil(t, n)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("MissingSign", func(t *testing.T) {
		_, err := c.ValidateNotification(paidForm())
		assert.ErrorIs(t, err, ErrMissingSignature)
	})

	t.Run("ForeignKeySignature", func(t *testing.T) {
		// Signed by someone who is not the provider.
		otherMerchant, otherPriv := testMerchant(t)
		_ = otherMerchant

		_, err := c.ValidateNotification(signNotification(t, otherPriv, paidForm()))
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "payment confirmed", StatusText(TradeSuccess))
	assert.Equal(t, "SOMETHING_ELSE", StatusText("SOMETHING_ELSE"))
	assert.Equal(t, "trade was already paid", SubCodeText("ACQ.TRADE_HAS_SUCCESS"))
}
