// Package webhook receives the provider's asynchronous payment
// notifications. Nothing here trusts the payload: validation happens in
// the gateway package, business effects in the payment service.
package webhook

import (
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"paygate/internal/gateway"
	"paygate/internal/logger"
	"paygate/internal/metrics"
	"paygate/internal/payment"
)

// The provider keeps redelivering a notification until it reads this
// exact body.
const (
	ackSuccess = "success"
	ackFailure = "failure"
)

// Validator is the slice of the gateway client this handler needs.
type Validator interface {
	ValidateNotification(form url.Values) (*gateway.Notification, error)
}

type Handler struct {
	validator Validator
	svc       payment.Service
}

func NewHandler(validator Validator, svc payment.Service) *Handler {
	return &Handler{validator: validator, svc: svc}
}

// PaymentNotification handles POST /webhook/payment.
func (h *Handler) PaymentNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx)

	if err := r.ParseForm(); err != nil {
		log.Warn("notification with unparseable form", zap.Error(err))
		metrics.NotificationsBad.Inc()
		http.Error(w, ackFailure, http.StatusBadRequest)
		return
	}

	n, err := h.validator.ValidateNotification(r.PostForm)
	if err != nil {
		// Unverifiable notifications are dropped, not processed. The
		// failure ack makes the provider retry, which is harmless.
		log.Warn("notification failed validation", zap.Error(err))
		metrics.NotificationsBad.Inc()
		http.Error(w, ackFailure, http.StatusBadRequest)
		return
	}

	ctx = logger.WithTradeNo(ctx, n.TradeNo)
	if err := h.svc.HandleNotification(ctx, n, r.PostForm.Encode()); err != nil {
		logger.FromCtx(ctx).Error("notification processing failed", zap.Error(err))
		metrics.NotificationsBad.Inc()
		http.Error(w, ackFailure, http.StatusInternalServerError)
		return
	}

	metrics.NotificationsOK.Inc()
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ackSuccess))
}
