package gateway

// Operator-facing descriptions for provider states, used in logs and API
// responses so support staff don't have to decode raw status literals.

var tradeStatusText = map[string]string{
	TradeWaitBuyerPay: "waiting for the buyer to confirm payment",
	TradeClosed:       "trade closed without payment or fully refunded",
	TradeSuccess:      "payment confirmed",
	TradeFinished:     "payment confirmed and settled, refund window closed",
}

var subCodeText = map[string]string{
	"ACQ.TRADE_HAS_SUCCESS":      "trade was already paid",
	"ACQ.TRADE_NOT_EXIST":        "trade does not exist on the provider side",
	"ACQ.BUYER_BALANCE_NOT_ENOUGH": "buyer balance is insufficient",
	"ACQ.PAYMENT_AUTH_CODE_INVALID": "scanned barcode is expired or invalid",
	"ACQ.TRADE_BUYER_NOT_MATCH":  "barcode belongs to a different buyer",
	"ACQ.SELLER_BALANCE_NOT_ENOUGH": "merchant balance cannot cover the refund",
	"ACQ.REFUND_AMT_NOT_EQUAL_TOTAL": "refund amount exceeds the refundable total",
}

// StatusText describes a trade status literal, or echoes it when unknown.
func StatusText(status string) string {
	if t, ok := tradeStatusText[status]; ok {
		return t
	}
	return status
}

// SubCodeText describes a provider sub code, or echoes it when unknown.
func SubCodeText(subCode string) string {
	if t, ok := subCodeText[subCode]; ok {
		return t
	}
	return subCode
}
