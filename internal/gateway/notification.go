package gateway

import (
	"errors"
	"fmt"
	"net/url"

	"paygate/internal/gatewaydata"
)

// ErrMissingSignature means the notification carried no sign field at all,
// so verification is impossible.
var ErrMissingSignature = errors.New("notification carries no signature")

// Notification is an inbound asynchronous payment report. It is untrusted
// until ValidateNotification has verified its signature.
type Notification struct {
	NotifyID    string `json:"notify_id"`
	NotifyTime  string `json:"notify_time"`
	AppID       string `json:"app_id"`
	TradeNo     string `json:"trade_no"`
	OutTradeNo  string `json:"out_trade_no"`
	TradeStatus string `json:"trade_status"`
	TotalAmount string `json:"total_amount"`
	BuyerUserID string `json:"buyer_id"`
	GmtPayment  string `json:"gmt_payment"`
	SignType    string `json:"-"`

	data *gatewaydata.Data
}

// Paid reports whether this notification announces a successful payment.
// Whether it has a business effect (and deduplication of redeliveries) is
// the caller's concern, not validated here.
func (n *Notification) Paid() bool {
	return n.TradeStatus == TradeSuccess || n.TradeStatus == TradeFinished
}

// Field exposes any raw notification field beyond the typed ones.
func (n *Notification) Field(key string) (string, bool) {
	if n.data == nil {
		return "", false
	}
	return n.data.Get(key)
}

// ValidateNotification verifies an inbound notification before anything
// trusts it. The sign and sign_type fields are stripped (they are never
// part of what was signed), the canonical form of the remaining fields is
// recomputed, and the signature is checked against the provider's public
// key. Extra fields the provider adds are covered automatically: whatever
// arrived, minus those two, is what gets recomputed.
func (c *Client) ValidateNotification(form url.Values) (*Notification, error) {
	data := gatewaydata.ParseForm(form)

	signature, ok := data.Get(gatewaydata.FieldSign)
	if !ok || signature == "" {
		return nil, ErrMissingSignature
	}
	signType, _ := data.Get(gatewaydata.FieldSignType)

	data.Remove(gatewaydata.FieldSign)
	data.Remove(gatewaydata.FieldSignType)

	if err := c.merchant.Verify(data.QueryString(false), signature); err != nil {
		return nil, fmt.Errorf("verify notification: %w", err)
	}

	var n Notification
	if err := data.Decode(&n); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	n.SignType = signType
	n.data = data
	return &n, nil
}
