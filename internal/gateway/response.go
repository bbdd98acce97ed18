package gateway

// Provider result codes.
const (
	CodeSuccess    = "10000" // business accepted and final
	CodeInProgress = "10003" // accepted, awaiting user action (barcode pay)
	CodeFailure    = "40004"
)

// Trade status literals reported by queries and notifications.
const (
	TradeWaitBuyerPay = "WAIT_BUYER_PAY"
	TradeClosed       = "TRADE_CLOSED"
	TradeSuccess      = "TRADE_SUCCESS"
	TradeFinished     = "TRADE_FINISHED"
)

// Response is the verified payload of one gateway call. Populated once
// from the exact payload substring that passed signature verification and
// not mutated afterwards.
type Response struct {
	Code        string `json:"code"`
	Msg         string `json:"msg"`
	SubCode     string `json:"sub_code"`
	SubMsg      string `json:"sub_msg"`
	TradeNo     string `json:"trade_no"`
	OutTradeNo  string `json:"out_trade_no"`
	TradeStatus string `json:"trade_status"`
	TotalAmount string `json:"total_amount"`
	BuyerUserID string `json:"buyer_user_id"`

	raw       string
	signature string
}

// Raw returns the payload substring exactly as transmitted, the bytes the
// signature was verified against.
func (r *Response) Raw() string { return r.raw }

// Signature returns the signature string that was verified.
func (r *Response) Signature() string { return r.signature }

// Success reports whether the provider accepted the call as final.
func (r *Response) Success() bool { return r.Code == CodeSuccess }

// Paid reports a confirmed payment: a successful call whose trade reached
// a paid status (or a barcode pay, where success itself is confirmation).
func (r *Response) Paid() bool {
	if !r.Success() {
		return false
	}
	switch r.TradeStatus {
	case TradeSuccess, TradeFinished:
		return true
	case "":
		// trade.pay responses carry no trade_status; code 10000 means paid.
		return true
	default:
		return false
	}
}

// FailureReason picks the most specific diagnostic the provider returned.
func (r *Response) FailureReason() string {
	if r.SubMsg != "" {
		return r.SubMsg
	}
	if r.Msg != "" {
		return r.Msg
	}
	return "gateway returned no diagnostic"
}

// Outcome is the closed variant set a payment dispatch resolves to.
// Transport and signature problems are errors, never outcomes.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota + 1
	OutcomeRejected
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTimedOut:
		return "timed_out"
	}
	return "unknown"
}

// Result is what Execute hands back: the resolved outcome, the terminal
// response, and for redirect-style products the signed payload.
type Result struct {
	Outcome  Outcome
	Response *Response
	Redirect string
}
