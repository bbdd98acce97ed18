// Package api exposes the merchant-facing REST surface: payment creation,
// status lookup and refunds. Callers authenticate with merchant API tokens;
// the provider never calls these routes.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"paygate/internal/gateway"
	"paygate/internal/logger"
	"paygate/internal/metrics"
	"paygate/internal/payment"
	"paygate/internal/utils"
)

// Dispatcher is the slice of the gateway client the handlers need.
type Dispatcher interface {
	Execute(ctx context.Context, req *gateway.Request) (*gateway.Result, error)
}

type Handler struct {
	dispatcher Dispatcher
	svc        payment.Service
	notifyURL  string
	returnURL  string
}

func NewHandler(dispatcher Dispatcher, svc payment.Service, notifyURL, returnURL string) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		svc:        svc,
		notifyURL:  notifyURL,
		returnURL:  returnURL,
	}
}

type createPaymentRequest struct {
	Subject  string `json:"subject"`
	Amount   string `json:"amount"`
	Channel  string `json:"channel"`   // web, wap or app
	AuthCode string `json:"auth_code"` // barcode pay only
}

type paymentResponse struct {
	OutTradeNo string `json:"out_trade_no"`
	TradeNo    string `json:"trade_no,omitempty"`
	Status     string `json:"status"`
	Subject    string `json:"subject,omitempty"`
	Amount     string `json:"amount,omitempty"`
	Redirect   string `json:"redirect,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// CreatePayment handles POST /api/payments. It builds a redirect-style
// payment for the requested channel and returns the URL (or app order
// string) the merchant frontend hands to the buyer.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in, amount, ok := h.decodeCreate(w, r)
	if !ok {
		return
	}

	outTradeNo := utils.GenerateOutTradeNo()
	var (
		req *gateway.Request
		err error
	)
	switch in.Channel {
	case "", "web":
		req, err = gateway.NewWebPay(in.Subject, outTradeNo, amount)
	case "wap":
		req, err = gateway.NewWapPay(in.Subject, outTradeNo, amount)
	case "app":
		req, err = gateway.NewAppPay(in.Subject, outTradeNo, amount)
	default:
		writeError(w, http.StatusBadRequest, "unknown channel "+in.Channel)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.NotifyURL = h.notifyURL
	req.ReturnURL = h.returnURL

	if err := h.svc.CreatePending(ctx, &payment.Payment{
		OutTradeNo: outTradeNo,
		Subject:    in.Subject,
		Amount:     amount.StringFixed(2),
		Method:     req.Kind.Method(),
	}); err != nil {
		logger.FromCtx(ctx).Error("creating pending payment", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create payment")
		return
	}

	res, err := h.dispatcher.Execute(ctx, req)
	if err != nil {
		logger.FromCtx(ctx).Error("payment dispatch failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "payment dispatch failed")
		return
	}

	writeJSON(w, http.StatusCreated, paymentResponse{
		OutTradeNo: outTradeNo,
		Status:     payment.StatusPending,
		Subject:    in.Subject,
		Amount:     amount.StringFixed(2),
		Redirect:   res.Redirect,
	})
}

// CreateBarcodePayment handles POST /api/payments/barcode. The call blocks
// until the payment reaches a terminal outcome: immediate confirmation,
// rejection, or poll exhaustion with a compensating cancel.
func (h *Handler) CreateBarcodePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in, amount, ok := h.decodeCreate(w, r)
	if !ok {
		return
	}
	if in.AuthCode == "" {
		writeError(w, http.StatusBadRequest, "auth_code is required")
		return
	}

	outTradeNo := utils.GenerateOutTradeNo()
	var failureReason string
	req, err := gateway.NewBarcodePay(in.Subject, outTradeNo, in.AuthCode, amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.NotifyURL = h.notifyURL
	req.Hooks = gateway.Hooks{
		OnPayFailed: func(_ *gateway.Response, reason string) {
			failureReason = reason
		},
	}

	if err := h.svc.CreatePending(ctx, &payment.Payment{
		OutTradeNo: outTradeNo,
		Subject:    in.Subject,
		Amount:     amount.StringFixed(2),
		Method:     req.Kind.Method(),
	}); err != nil {
		logger.FromCtx(ctx).Error("creating pending payment", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create payment")
		return
	}

	res, err := h.dispatcher.Execute(ctx, req)
	if err != nil {
		logger.FromCtx(ctx).Error("barcode dispatch failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "payment dispatch failed")
		return
	}

	if err := h.svc.ResolveDispatch(ctx, outTradeNo, res); err != nil {
		logger.FromCtx(ctx).Error("recording dispatch outcome", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not record payment outcome")
		return
	}

	out := paymentResponse{
		OutTradeNo: outTradeNo,
		Subject:    in.Subject,
		Amount:     amount.StringFixed(2),
		Reason:     failureReason,
	}
	if res.Response != nil {
		out.TradeNo = res.Response.TradeNo
	}
	switch res.Outcome {
	case gateway.OutcomeSucceeded:
		out.Status = payment.StatusPaid
	case gateway.OutcomeTimedOut:
		out.Status = payment.StatusTimedOut
	default:
		out.Status = payment.StatusFailed
	}
	writeJSON(w, http.StatusCreated, out)
}

// GetPayment handles GET /api/payments/{out_trade_no}.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	outTradeNo := r.PathValue("out_trade_no")
	if outTradeNo == "" {
		writeError(w, http.StatusBadRequest, "out_trade_no is required")
		return
	}

	p, err := h.svc.GetPayment(ctx, outTradeNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "payment not found")
			return
		}
		logger.FromCtx(ctx).Error("loading payment", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load payment")
		return
	}

	writeJSON(w, http.StatusOK, paymentResponse{
		OutTradeNo: p.OutTradeNo,
		TradeNo:    p.TradeNo,
		Status:     p.Status,
		Subject:    p.Subject,
		Amount:     p.Amount,
	})
}

type refundRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

// RefundPayment handles POST /api/payments/{out_trade_no}/refund.
func (h *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	outTradeNo := r.PathValue("out_trade_no")
	var in refundRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be a positive decimal")
		return
	}

	p, err := h.svc.GetPayment(ctx, outTradeNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "payment not found")
			return
		}
		logger.FromCtx(ctx).Error("loading payment", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load payment")
		return
	}
	if p.TradeNo == "" || p.Status != payment.StatusPaid {
		writeError(w, http.StatusConflict, "payment is not refundable")
		return
	}

	req, err := gateway.NewRefund(p.TradeNo, amount, in.Reason)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.dispatcher.Execute(ctx, req)
	if err != nil {
		logger.FromCtx(ctx).Error("refund dispatch failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "refund dispatch failed")
		return
	}
	if res.Outcome != gateway.OutcomeSucceeded {
		reason := ""
		if res.Response != nil {
			reason = res.Response.FailureReason()
		}
		writeJSON(w, http.StatusConflict, paymentResponse{
			OutTradeNo: outTradeNo,
			TradeNo:    p.TradeNo,
			Status:     p.Status,
			Reason:     reason,
		})
		return
	}

	writeJSON(w, http.StatusOK, paymentResponse{
		OutTradeNo: outTradeNo,
		TradeNo:    p.TradeNo,
		Status:     p.Status,
		Amount:     amount.StringFixed(2),
	})
}

// Healthz handles GET /healthz with a counter snapshot for probes.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"metrics": metrics.Snapshot(),
	})
}

func (h *Handler) decodeCreate(w http.ResponseWriter, r *http.Request) (*createPaymentRequest, decimal.Decimal, bool) {
	var in createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, decimal.Zero, false
	}
	if strings.TrimSpace(in.Subject) == "" {
		writeError(w, http.StatusBadRequest, "subject is required")
		return nil, decimal.Zero, false
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be a positive decimal")
		return nil, decimal.Zero, false
	}
	return &in, amount, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
