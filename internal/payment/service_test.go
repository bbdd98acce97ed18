package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"paygate/internal/gateway"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) SavePayment(ctx context.Context, p *Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockRepository) UpdatePaymentStatus(ctx context.Context, outTradeNo, status string) error {
	return m.Called(ctx, outTradeNo, status).Error(0)
}

func (m *MockRepository) SetTradeNo(ctx context.Context, outTradeNo, tradeNo string) error {
	return m.Called(ctx, outTradeNo, tradeNo).Error(0)
}

func (m *MockRepository) GetPayment(ctx context.Context, outTradeNo string) (*Payment, error) {
	args := m.Called(ctx, outTradeNo)
	if p, ok := args.Get(0).(*Payment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) SaveNotification(ctx context.Context, n *NotificationRecord) (int64, bool, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockRepository) MarkNotificationProcessed(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) MarkNotificationFailed(ctx context.Context, id int64, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func paidNotification() *gateway.Notification {
	return &gateway.Notification{
		NotifyID:    "n-001",
		TradeNo:     "t-100",
		OutTradeNo:  "ord-1",
		TradeStatus: gateway.TradeSuccess,
		TotalAmount: "12.50",
	}
}

func TestService_HandleNotification(t *testing.T) {
	ctx := context.Background()

	t.Run("PaidAppliesAndMarksProcessed", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("SaveNotification", mock.Anything, mock.MatchedBy(func(n *NotificationRecord) bool {
			return n.NotifyID == "n-001" && n.SignatureValid
		})).Return(int64(7), false, nil)
		repo.On("SetTradeNo", mock.Anything, "ord-1", "t-100").Return(nil)
		repo.On("UpdatePaymentStatus", mock.Anything, "ord-1", StatusPaid).Return(nil)
		repo.On("MarkNotificationProcessed", mock.Anything, int64(7)).Return(nil)

		err := svc.HandleNotification(ctx, paidNotification(), "raw-payload")
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("DuplicateIsIdempotent", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("SaveNotification", mock.Anything, mock.Anything).Return(int64(0), true, nil)

		err := svc.HandleNotification(ctx, paidNotification(), "raw-payload")
		require.NoError(t, err)
		repo.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ClosedUpdatesStatus", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		n := paidNotification()
		n.TradeStatus = gateway.TradeClosed

		repo.On("SaveNotification", mock.Anything, mock.Anything).Return(int64(8), false, nil)
		repo.On("UpdatePaymentStatus", mock.Anything, "ord-1", StatusClosed).Return(nil)
		repo.On("MarkNotificationProcessed", mock.Anything, int64(8)).Return(nil)

		require.NoError(t, svc.HandleNotification(ctx, n, "raw"))
		repo.AssertExpectations(t)
	})

	t.Run("WaitBuyerPayHasNoEffect", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		n := paidNotification()
		n.TradeStatus = gateway.TradeWaitBuyerPay

		repo.On("SaveNotification", mock.Anything, mock.Anything).Return(int64(9), false, nil)
		repo.On("MarkNotificationProcessed", mock.Anything, int64(9)).Return(nil)

		require.NoError(t, svc.HandleNotification(ctx, n, "raw"))
		repo.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ApplyFailureMarksFailed", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("SaveNotification", mock.Anything, mock.Anything).Return(int64(10), false, nil)
		repo.On("SetTradeNo", mock.Anything, "ord-1", "t-100").Return(errors.New("row gone"))
		repo.On("MarkNotificationFailed", mock.Anything, int64(10), mock.Anything).Return(nil)

		err := svc.HandleNotification(ctx, paidNotification(), "raw")
		assert.Error(t, err)
		repo.AssertCalled(t, "MarkNotificationFailed", mock.Anything, int64(10), mock.Anything)
	})
}

func TestService_ResolveDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Succeeded", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("SetTradeNo", mock.Anything, "ord-1", "t-100").Return(nil)
		repo.On("UpdatePaymentStatus", mock.Anything, "ord-1", StatusPaid).Return(nil)

		res := &gateway.Result{Outcome: gateway.OutcomeSucceeded, Response: &gateway.Response{TradeNo: "t-100"}}
		require.NoError(t, svc.ResolveDispatch(ctx, "ord-1", res))
		repo.AssertExpectations(t)
	})

	t.Run("TimedOut", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("UpdatePaymentStatus", mock.Anything, "ord-1", StatusTimedOut).Return(nil)

		res := &gateway.Result{Outcome: gateway.OutcomeTimedOut}
		require.NoError(t, svc.ResolveDispatch(ctx, "ord-1", res))
	})

	t.Run("Rejected", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("UpdatePaymentStatus", mock.Anything, "ord-1", StatusFailed).Return(nil)

		res := &gateway.Result{Outcome: gateway.OutcomeRejected}
		require.NoError(t, svc.ResolveDispatch(ctx, "ord-1", res))
	})
}

func TestService_CreatePending(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo)

	repo.On("SavePayment", mock.Anything, mock.MatchedBy(func(p *Payment) bool {
		return p.Status == StatusPending
	})).Return(nil)

	err := svc.CreatePending(context.Background(), &Payment{OutTradeNo: "ord-1"})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
