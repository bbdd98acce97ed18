package gateway

import (
	"fmt"

	"github.com/shopspring/decimal"

	"paygate/internal/gatewaydata"
)

// Kind is the closed set of request kinds the dispatcher understands.
// The kind decides the execution mode: redirect-style products never leave
// the process, barcode pay goes through the polling machine, everything
// else is a plain remote call.
type Kind int

const (
	KindWebPay Kind = iota
	KindWapPay
	KindAppPay
	KindBarcodePay
	KindQuery
	KindCancel
	KindRefund
)

type executionMode int

const (
	modeLocal executionMode = iota
	modePolling
	modeRemote
)

func (k Kind) String() string {
	switch k {
	case KindWebPay:
		return "web_pay"
	case KindWapPay:
		return "wap_pay"
	case KindAppPay:
		return "app_pay"
	case KindBarcodePay:
		return "barcode_pay"
	case KindQuery:
		return "query"
	case KindCancel:
		return "cancel"
	case KindRefund:
		return "refund"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Method is the provider API method name carried in the request fields.
func (k Kind) Method() string {
	switch k {
	case KindWebPay:
		return "trade.page.pay"
	case KindWapPay:
		return "trade.wap.pay"
	case KindAppPay:
		return "trade.app.pay"
	case KindBarcodePay:
		return "trade.pay"
	case KindQuery:
		return "trade.query"
	case KindCancel:
		return "trade.cancel"
	case KindRefund:
		return "trade.refund"
	}
	return ""
}

// responseKey is the single payload key of the remote response envelope.
func (k Kind) responseKey() string {
	switch k {
	case KindWebPay:
		return "trade_page_pay_response"
	case KindWapPay:
		return "trade_wap_pay_response"
	case KindAppPay:
		return "trade_app_pay_response"
	case KindBarcodePay:
		return "trade_pay_response"
	case KindQuery:
		return "trade_query_response"
	case KindCancel:
		return "trade_cancel_response"
	case KindRefund:
		return "trade_refund_response"
	}
	return ""
}

func (k Kind) mode() executionMode {
	switch k {
	case KindWebPay, KindWapPay, KindAppPay:
		return modeLocal
	case KindBarcodePay:
		return modePolling
	default:
		return modeRemote
	}
}

// Hooks are the calling application's payment outcome callbacks. For a
// completed payment dispatch exactly one of them fires, exactly once.
type Hooks struct {
	OnPaySucceed func(resp *Response, extra string)
	OnPayFailed  func(resp *Response, reason string)
}

func (h Hooks) succeed(resp *Response, extra string) {
	if h.OnPaySucceed != nil {
		h.OnPaySucceed(resp, extra)
	}
}

func (h Hooks) fail(resp *Response, reason string) {
	if h.OnPayFailed != nil {
		h.OnPayFailed(resp, reason)
	}
}

// Request is one gateway call. Data is request-scoped and must not be
// shared between concurrent executions; the dispatcher signs it last, and
// any mutation after that invalidates the signature it carries.
type Request struct {
	Kind      Kind
	Path      string
	NotifyURL string
	ReturnURL string
	Data      *gatewaydata.Data
	Hooks     Hooks
}

const defaultPath = "/gateway.do"

func newRequest(kind Kind) *Request {
	return &Request{
		Kind: kind,
		Path: defaultPath,
		Data: gatewaydata.New(),
	}
}

func (r *Request) setBizContent(biz *gatewaydata.Data) error {
	frag, err := biz.JSONFragment()
	if err != nil {
		return fmt.Errorf("build biz_content: %w", err)
	}
	r.Data.Set("biz_content", frag)
	return nil
}

// NewWebPay builds a desktop-browser redirect payment.
func NewWebPay(subject, outTradeNo string, amount decimal.Decimal) (*Request, error) {
	req := newRequest(KindWebPay)
	biz := gatewaydata.New()
	biz.Set("subject", subject)
	biz.Set("out_trade_no", outTradeNo)
	biz.Set("total_amount", amount.StringFixed(2))
	biz.Set("product_code", "FAST_INSTANT_TRADE_PAY")
	if err := req.setBizContent(biz); err != nil {
		return nil, err
	}
	return req, nil
}

// NewWapPay builds a mobile-browser redirect payment.
func NewWapPay(subject, outTradeNo string, amount decimal.Decimal) (*Request, error) {
	req := newRequest(KindWapPay)
	biz := gatewaydata.New()
	biz.Set("subject", subject)
	biz.Set("out_trade_no", outTradeNo)
	biz.Set("total_amount", amount.StringFixed(2))
	biz.Set("product_code", "QUICK_WAP_WAY")
	if err := req.setBizContent(biz); err != nil {
		return nil, err
	}
	return req, nil
}

// NewAppPay builds an in-app SDK payment; the result is an order string the
// mobile client hands to the provider's SDK.
func NewAppPay(subject, outTradeNo string, amount decimal.Decimal) (*Request, error) {
	req := newRequest(KindAppPay)
	biz := gatewaydata.New()
	biz.Set("subject", subject)
	biz.Set("out_trade_no", outTradeNo)
	biz.Set("total_amount", amount.StringFixed(2))
	biz.Set("product_code", "QUICK_MSECURITY_PAY")
	if err := req.setBizContent(biz); err != nil {
		return nil, err
	}
	return req, nil
}

// NewBarcodePay builds a point-of-sale payment from a scanned customer
// barcode. Its outcome may not be known at call time, so the dispatcher
// routes it through the polling state machine.
func NewBarcodePay(subject, outTradeNo, authCode string, amount decimal.Decimal) (*Request, error) {
	if authCode == "" {
		return nil, fmt.Errorf("barcode pay requires the scanned auth code")
	}
	req := newRequest(KindBarcodePay)
	biz := gatewaydata.New()
	biz.Set("subject", subject)
	biz.Set("out_trade_no", outTradeNo)
	biz.Set("total_amount", amount.StringFixed(2))
	biz.Set("scene", "bar_code")
	biz.Set("auth_code", authCode)
	if err := req.setBizContent(biz); err != nil {
		return nil, err
	}
	return req, nil
}

// NewQuery builds a trade status query by provider trade number.
func NewQuery(tradeNo string) (*Request, error) {
	req := newRequest(KindQuery)
	biz := gatewaydata.New()
	biz.Set("trade_no", tradeNo)
	if err := req.setBizContent(biz); err != nil {
		return nil, err
	}
	return req, nil
}

// NewQueryByOutTradeNo builds a trade status query by the merchant-side
// order number.
func NewQueryByOutTradeNo(outTradeNo string) (*Request, error) {
	req := newRequest(KindQuery)
	biz := gatewaydata.New()
	biz.Set("out_trade_no", outTradeNo)
	if err := req.setBizContent(biz); err != nil {
		return nil, err
	}
	return req, nil
}

// NewCancel builds the compensating cancellation for a trade.
func NewCancel(tradeNo string) (*Request, error) {
	req := newRequest(KindCancel)
	biz := gatewaydata.New()
	biz.Set("trade_no", tradeNo)
	if err := req.setBizContent(biz); err != nil {
		return nil, err
	}
	return req, nil
}

// NewRefund builds a full or partial refund for a settled trade.
func NewRefund(tradeNo string, amount decimal.Decimal, reason string) (*Request, error) {
	req := newRequest(KindRefund)
	biz := gatewaydata.New()
	biz.Set("trade_no", tradeNo)
	biz.Set("refund_amount", amount.StringFixed(2))
	biz.Set("refund_reason", reason)
	if err := req.setBizContent(biz); err != nil {
		return nil, err
	}
	return req, nil
}
