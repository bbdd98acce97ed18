package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"paygate/internal/metrics"
)

// pollTradeStatus resolves an ambiguous barcode payment. It queries trade
// status up to pollCount times, one interval apart, sequentially — there is
// never more than one in-flight query per trade. A paid status resolves to
// Succeeded with that query's response. Exhaustion resolves to TimedOut
// after a best-effort cancel: the trade is being unwound, so a failed
// cancel is logged and swallowed rather than turned into a different
// outcome. Transport and signature errors during a poll are hard failures
// and propagate immediately; "not yet paid" is the only answer that keeps
// the loop going.
func (c *Client) pollTradeStatus(ctx context.Context, req *Request, payResp *Response, log *zap.Logger) (*Result, error) {
	log = log.With(zap.String("trade_no", payResp.TradeNo))

	// Whole-operation budget. The schedule itself needs interval*count;
	// the slack covers the queries and the final cancel.
	budget := c.pollInterval*time.Duration(c.pollCount) + 30*time.Second
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	for attempt := 1; attempt <= c.pollCount; attempt++ {
		if err := waitInterval(ctx, c.pollInterval); err != nil {
			return nil, fmt.Errorf("barcode pay polling aborted: %w", err)
		}
		metrics.PollAttempts.Inc()

		query, err := NewQuery(payResp.TradeNo)
		if err != nil {
			return nil, err
		}
		queryResp, err := c.netExecute(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("poll attempt %d: %w", attempt, err)
		}

		if queryResp.Paid() {
			log.Info("barcode pay confirmed by polling", zap.Int("attempt", attempt))
			req.Hooks.succeed(queryResp, queryResp.TradeNo)
			return &Result{Outcome: OutcomeSucceeded, Response: queryResp}, nil
		}
		log.Debug("trade not yet paid",
			zap.Int("attempt", attempt),
			zap.String("trade_status", queryResp.TradeStatus),
		)
	}

	metrics.PollTimeouts.Inc()
	c.cancelTrade(ctx, payResp.TradeNo, log)

	log.Warn("barcode pay exhausted polling budget",
		zap.Int("attempts", c.pollCount),
	)
	req.Hooks.fail(payResp, "payment timed out")
	return &Result{Outcome: OutcomeTimedOut, Response: payResp}, nil
}

// cancelTrade issues the compensating cancellation. The unwind should
// proceed even when the polling budget is already spent, so it runs on a
// fresh deadline detached from the poll context.
func (c *Client) cancelTrade(ctx context.Context, tradeNo string, log *zap.Logger) {
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	cancelReq, err := NewCancel(tradeNo)
	if err != nil {
		log.Warn("building cancel after poll exhaustion failed", zap.Error(err))
		return
	}
	if _, err := c.netExecute(cancelCtx, cancelReq); err != nil {
		log.Warn("cancel after poll exhaustion failed", zap.Error(err))
	}
}

func waitInterval(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
