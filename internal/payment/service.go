package payment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"paygate/internal/gateway"
	"paygate/internal/logger"
)

// Service owns the business side the gateway adapter deliberately stays
// out of: payment rows, idempotent notification processing, crediting
// decisions.
type Service interface {
	CreatePending(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, outTradeNo string) (*Payment, error)
	HandleNotification(ctx context.Context, n *gateway.Notification, rawPayload string) error
	ResolveDispatch(ctx context.Context, outTradeNo string, res *gateway.Result) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreatePending(ctx context.Context, p *Payment) error {
	p.Status = StatusPending
	if err := s.repo.SavePayment(ctx, p); err != nil {
		return fmt.Errorf("save pending payment: %w", err)
	}
	return nil
}

func (s *service) GetPayment(ctx context.Context, outTradeNo string) (*Payment, error) {
	return s.repo.GetPayment(ctx, outTradeNo)
}

// HandleNotification records a signature-verified notification and applies
// its trade status. Redelivered notifications are acked without effect.
func (s *service) HandleNotification(ctx context.Context, n *gateway.Notification, rawPayload string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("notify_id", n.NotifyID),
		zap.String("out_trade_no", n.OutTradeNo),
		zap.String("trade_status", n.TradeStatus),
	)

	id, duplicate, err := s.repo.SaveNotification(ctx, &NotificationRecord{
		NotifyID:       n.NotifyID,
		TradeNo:        n.TradeNo,
		OutTradeNo:     n.OutTradeNo,
		TradeStatus:    n.TradeStatus,
		SignatureValid: true,
		Payload:        rawPayload,
	})
	if err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	if duplicate {
		log.Info("duplicate notification, already handled")
		return nil
	}

	if err := s.applyTradeStatus(ctx, n); err != nil {
		if markErr := s.repo.MarkNotificationFailed(ctx, id, err.Error()); markErr != nil {
			log.Error("marking notification failed", zap.Error(markErr))
		}
		return err
	}

	if err := s.repo.MarkNotificationProcessed(ctx, id); err != nil {
		return fmt.Errorf("mark notification processed: %w", err)
	}
	log.Info("notification processed", zap.String("status_text", gateway.StatusText(n.TradeStatus)))
	return nil
}

func (s *service) applyTradeStatus(ctx context.Context, n *gateway.Notification) error {
	switch {
	case n.Paid():
		if n.TradeNo != "" {
			if err := s.repo.SetTradeNo(ctx, n.OutTradeNo, n.TradeNo); err != nil {
				return fmt.Errorf("record trade no: %w", err)
			}
		}
		return s.repo.UpdatePaymentStatus(ctx, n.OutTradeNo, StatusPaid)
	case n.TradeStatus == gateway.TradeClosed:
		return s.repo.UpdatePaymentStatus(ctx, n.OutTradeNo, StatusClosed)
	default:
		// WAIT_BUYER_PAY and friends carry no business effect.
		return nil
	}
}

// ResolveDispatch applies a synchronous dispatch result (barcode pay) to
// the payment row.
func (s *service) ResolveDispatch(ctx context.Context, outTradeNo string, res *gateway.Result) error {
	switch res.Outcome {
	case gateway.OutcomeSucceeded:
		if res.Response != nil && res.Response.TradeNo != "" {
			if err := s.repo.SetTradeNo(ctx, outTradeNo, res.Response.TradeNo); err != nil {
				return fmt.Errorf("record trade no: %w", err)
			}
		}
		return s.repo.UpdatePaymentStatus(ctx, outTradeNo, StatusPaid)
	case gateway.OutcomeTimedOut:
		return s.repo.UpdatePaymentStatus(ctx, outTradeNo, StatusTimedOut)
	case gateway.OutcomeRejected:
		return s.repo.UpdatePaymentStatus(ctx, outTradeNo, StatusFailed)
	default:
		return fmt.Errorf("unknown outcome %v", res.Outcome)
	}
}
