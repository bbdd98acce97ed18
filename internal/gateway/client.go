package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"paygate/internal/gatewaydata"
	"paygate/internal/logger"
	"paygate/internal/metrics"
	"paygate/internal/sign"
	"paygate/internal/transport"
)

// ErrSignatureMismatch re-exports the signature failure sentinel so callers
// can branch without importing the sign package.
var ErrSignatureMismatch = sign.ErrSignatureMismatch

const (
	defaultPollInterval = 3 * time.Second
	defaultPollCount    = 10
)

// Client dispatches requests to the payment provider. It owns no mutable
// per-request state: Merchant is read-only and every Request carries its
// own Data, so a single Client is safe for concurrent use.
type Client struct {
	merchant     *Merchant
	gatewayURL   string
	transport    transport.Transport
	pollInterval time.Duration
	pollCount    int
}

func NewClient(m *Merchant, gatewayURL string, tr transport.Transport) *Client {
	return &Client{
		merchant:     m,
		gatewayURL:   strings.TrimRight(gatewayURL, "/"),
		transport:    tr,
		pollInterval: defaultPollInterval,
		pollCount:    defaultPollCount,
	}
}

// WithPolling overrides the barcode-pay polling schedule.
func (c *Client) WithPolling(interval time.Duration, count int) *Client {
	if interval > 0 {
		c.pollInterval = interval
	}
	if count > 0 {
		c.pollCount = count
	}
	return c
}

// Execute runs one request to its terminal result. Redirect-style products
// resolve locally, barcode pay goes through the polling machine, everything
// else is a verified remote round trip. Business rejection and timeout come
// back as outcomes; transport and signature failures come back as errors.
func (c *Client) Execute(ctx context.Context, req *Request) (*Result, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("kind", req.Kind.String()),
		zap.String("method", req.Kind.Method()),
	)
	metrics.GatewayCalls.Inc()

	var (
		res *Result
		err error
	)
	switch req.Kind.mode() {
	case modeLocal:
		res, err = c.localExecute(req)
	case modePolling:
		res, err = c.barcodeExecute(ctx, req, log)
	default:
		res, err = c.remoteExecute(ctx, req)
	}

	if err != nil {
		metrics.GatewayErrors.Inc()
		log.Error("gateway dispatch failed", zap.Error(err))
		return nil, err
	}
	log.Info("gateway dispatch finished", zap.String("outcome", res.Outcome.String()))
	return res, nil
}

// addMerchant merges the merchant identity into the request fields and
// signs. The signature is computed over the canonical query string of all
// fields and appended last, after everything it must cover is present.
func (c *Client) addMerchant(req *Request) error {
	data := req.Data
	data.Set("app_id", c.merchant.AppID)
	data.Set("method", req.Kind.Method())
	data.Set("format", "JSON")
	data.Set("charset", "utf-8")
	data.Set("sign_type", c.merchant.SignType)
	data.Set("timestamp", time.Now().Format("2006-01-02 15:04:05"))
	data.Set("version", "1.0")
	if req.NotifyURL != "" {
		data.Set("notify_url", req.NotifyURL)
	}
	if req.ReturnURL != "" {
		data.Set("return_url", req.ReturnURL)
	}

	signature, err := c.merchant.Sign(data.QueryString(false))
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	data.Set(gatewaydata.FieldSign, signature)
	return nil
}

func (c *Client) requestURL(req *Request) string {
	path := req.Path
	if path == "" {
		path = defaultPath
	}
	return c.gatewayURL + path
}

// localExecute builds the signed payload without a network round trip. The
// "response" for redirect products is the payload itself: a URL for
// browser products, a raw order string for the app SDK.
func (c *Client) localExecute(req *Request) (*Result, error) {
	if err := c.addMerchant(req); err != nil {
		return nil, err
	}

	payload := req.Data.URLEncoded()
	redirect := payload
	if req.Kind != KindAppPay {
		redirect = c.requestURL(req) + "?" + payload
	}

	return &Result{
		Outcome:  OutcomeSucceeded,
		Response: &Response{Code: CodeSuccess, raw: payload},
		Redirect: redirect,
	}, nil
}

func (c *Client) remoteExecute(ctx context.Context, req *Request) (*Result, error) {
	resp, err := c.netExecute(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome := OutcomeSucceeded
	if !resp.Success() {
		outcome = OutcomeRejected
	}
	return &Result{Outcome: outcome, Response: resp}, nil
}

// netExecute posts the signed request and verifies the response envelope.
// The inner payload is verified as the exact substring the provider sent;
// deserialization happens only after verification passes.
func (c *Client) netExecute(ctx context.Context, req *Request) (*Response, error) {
	if err := c.addMerchant(req); err != nil {
		return nil, err
	}

	body, err := c.transport.Post(ctx, c.requestURL(req), req.Data.URLEncoded())
	if err != nil {
		return nil, fmt.Errorf("gateway call %s: %w", req.Kind.Method(), err)
	}

	resp, err := c.parseEnvelope(body, req.Kind.responseKey())
	if err != nil {
		return nil, fmt.Errorf("gateway call %s: %w", req.Kind.Method(), err)
	}
	return resp, nil
}

func (c *Client) barcodeExecute(ctx context.Context, req *Request, log *zap.Logger) (*Result, error) {
	resp, err := c.netExecute(ctx, req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.Paid():
		// Confirmed at call time, no polling needed.
		req.Hooks.succeed(resp, resp.TradeNo)
		return &Result{Outcome: OutcomeSucceeded, Response: resp}, nil

	case resp.TradeNo != "":
		// Accepted but not confirmed. The buyer may still be entering
		// their password; resolve by polling trade status.
		return c.pollTradeStatus(ctx, req, resp, log)

	default:
		reason := resp.FailureReason()
		log.Warn("barcode pay rejected by provider",
			zap.String("sub_code", resp.SubCode),
			zap.String("sub_msg", resp.SubMsg),
		)
		req.Hooks.fail(resp, reason)
		return &Result{Outcome: OutcomeRejected, Response: resp}, nil
	}
}

// errUnexpectedEnvelope covers bodies that are not the single-payload-key
// plus sibling sign shape the provider documents.
var errUnexpectedEnvelope = errors.New("unexpected gateway response envelope")
