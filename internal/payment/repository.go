package payment

import (
	"context"
	"database/sql"
	"errors"
)

const provider = "ALIPAY_COMPAT"

type Repository interface {
	SavePayment(ctx context.Context, p *Payment) error
	UpdatePaymentStatus(ctx context.Context, outTradeNo, status string) error
	SetTradeNo(ctx context.Context, outTradeNo, tradeNo string) error
	GetPayment(ctx context.Context, outTradeNo string) (*Payment, error)

	SaveNotification(ctx context.Context, n *NotificationRecord) (id int64, isDuplicate bool, err error)
	MarkNotificationProcessed(ctx context.Context, id int64) error
	MarkNotificationFailed(ctx context.Context, id int64, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SavePayment(ctx context.Context, p *Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (out_trade_no, trade_no, subject, amount, status, method, provider)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		p.OutTradeNo, p.TradeNo, p.Subject, p.Amount, p.Status, p.Method, provider,
	)
	return err
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, outTradeNo, status string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = $1, updated_at = now() WHERE out_trade_no = $2
	`, status, outTradeNo)
	return err
}

func (r *repository) SetTradeNo(ctx context.Context, outTradeNo, tradeNo string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET trade_no = $1, updated_at = now() WHERE out_trade_no = $2
	`, tradeNo, outTradeNo)
	return err
}

func (r *repository) GetPayment(ctx context.Context, outTradeNo string) (*Payment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, out_trade_no, trade_no, subject, amount, status, method, created_at, updated_at
		FROM payments WHERE out_trade_no = $1
	`, outTradeNo)

	var p Payment
	err := row.Scan(
		&p.ID, &p.OutTradeNo, &p.TradeNo, &p.Subject,
		&p.Amount, &p.Status, &p.Method, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveNotification persists an inbound notification. The provider retries
// delivery until acked, so (provider, notify_id) conflicts are an
// idempotent success, reported via isDuplicate.
func (r *repository) SaveNotification(ctx context.Context, n *NotificationRecord) (int64, bool, error) {
	const q = `
	INSERT INTO payment_notifications (
		provider,
		notify_id,
		trade_no,
		out_trade_no,
		trade_status,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (provider, notify_id)
	DO NOTHING
	RETURNING id;
	`

	var id int64
	err := r.db.QueryRowContext(
		ctx,
		q,
		provider,
		n.NotifyID,
		n.TradeNo,
		n.OutTradeNo,
		n.TradeStatus,
		n.SignatureValid,
		n.Payload,
	).Scan(&id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, true, nil
		}
		return 0, false, err
	}

	return id, false, nil
}

func (r *repository) MarkNotificationProcessed(ctx context.Context, id int64) error {
	const q = `
	UPDATE payment_notifications
	SET processed_at = now()
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func (r *repository) MarkNotificationFailed(ctx context.Context, id int64, reason string) error {
	const q = `
	UPDATE payment_notifications
	SET process_error = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, id, reason)
	return err
}
