// Package staging validates parsed rows and persists them as staged orders
// until their broker format is approved, then promotes them into live orders
// and trades.
package staging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trading-journal-backend/internal/models"
	"trading-journal-backend/internal/services/catalog"
)

// Store is the persistence surface the staging service needs.
type Store interface {
	CreateStagedOrders(ctx context.Context, orders []models.StagedOrder) error
	StagedOrdersByFormat(ctx context.Context, formatID uuid.UUID) ([]models.StagedOrder, error)
	DeleteStagedOrders(ctx context.Context, ids []uuid.UUID) error
	DeleteExpiredStagedOrders(ctx context.Context, cutoff time.Time) (int64, error)
	CreateOrders(ctx context.Context, orders []models.Order) error
	CreateTrades(ctx context.Context, trades []models.Trade) error
	MarkBatchesCompleted(ctx context.Context, ids []uuid.UUID) error
}

// Result reports one staging or live-processing run. Partial success is the
// default policy: bad rows are counted and reported, never fatal.
type Result struct {
	StagedCount int
	ErrorCount  int
	Errors      []string
	OrderIDs    []uuid.UUID
}

// maxErrorMessages caps Result.Errors so a large all-malformed file cannot
// blow up the errors JSON stored on the batch. ErrorCount keeps the full
// count.
const maxErrorMessages = 50

func (r *Result) addError(row int, err error) {
	r.ErrorCount++
	if len(r.Errors) < maxErrorMessages {
		r.Errors = append(r.Errors, fmt.Sprintf("row %d: %v", row, err))
	}
}

type Service struct {
	store Store
	ttl   time.Duration
}

// NewService builds a staging service. ttl is the retention window for staged
// rows awaiting approval.
func NewService(store Store, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl}
}

// StageOrders validates every row against the format's field mappings and
// persists the valid ones as staged orders tied to the batch. Row-level
// failures are collected into Result.Errors; they never abort the batch.
func (s *Service) StageOrders(ctx context.Context, rows []map[string]string, format *models.BrokerFormat, batch *models.ImportBatch, userID string) (*Result, error) {
	mappings, err := catalog.DecodeFieldMappings(format)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	staged := make([]models.StagedOrder, 0, len(rows))
	for i, row := range rows {
		order, err := convertRow(row, mappings)
		if err != nil {
			res.addError(i+1, err)
			continue
		}
		so := models.StagedOrder{
			ID:             uuid.New(),
			ImportBatchID:  batch.ID,
			BrokerFormatID: format.ID,
			UserID:         userID,
			Symbol:         order.Symbol,
			Side:           order.Side,
			Quantity:       order.Quantity,
			Price:          order.Price,
			Commission:     order.Commission,
			ExecutedAt:     order.ExecutedAt,
			OrderRef:       order.OrderRef,
			BrokerMetadata: order.Metadata,
			CreatedAt:      time.Now(),
		}
		staged = append(staged, so)
		res.OrderIDs = append(res.OrderIDs, so.ID)
	}

	if err := s.store.CreateStagedOrders(ctx, staged); err != nil {
		return nil, err
	}
	res.StagedCount = len(staged)
	return res, nil
}

// ProcessLive validates rows and writes live orders and trades directly,
// used when the batch's format is already approved.
func (s *Service) ProcessLive(ctx context.Context, rows []map[string]string, format *models.BrokerFormat, batch *models.ImportBatch, userID string) (*Result, error) {
	mappings, err := catalog.DecodeFieldMappings(format)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	orders := make([]models.Order, 0, len(rows))
	for i, row := range rows {
		no, err := convertRow(row, mappings)
		if err != nil {
			res.addError(i+1, err)
			continue
		}
		o := models.Order{
			ID:             uuid.New(),
			ImportBatchID:  batch.ID,
			BrokerFormatID: format.ID,
			UserID:         userID,
			Symbol:         no.Symbol,
			Side:           no.Side,
			Quantity:       no.Quantity,
			Price:          no.Price,
			Commission:     no.Commission,
			ExecutedAt:     no.ExecutedAt,
			OrderRef:       no.OrderRef,
			BrokerMetadata: no.Metadata,
			CreatedAt:      time.Now(),
		}
		orders = append(orders, o)
		res.OrderIDs = append(res.OrderIDs, o.ID)
	}

	trades := buildTrades(orders)
	if err := s.store.CreateOrders(ctx, orders); err != nil {
		return nil, err
	}
	if err := s.store.CreateTrades(ctx, trades); err != nil {
		return nil, err
	}
	res.StagedCount = len(orders)
	return res, nil
}

// PromoteFormat moves every staged order of a newly approved format into the
// live tables and completes the batches they came from.
func (s *Service) PromoteFormat(ctx context.Context, formatID uuid.UUID) (int, error) {
	staged, err := s.store.StagedOrdersByFormat(ctx, formatID)
	if err != nil {
		return 0, err
	}
	if len(staged) == 0 {
		return 0, nil
	}

	orders := make([]models.Order, 0, len(staged))
	stagedIDs := make([]uuid.UUID, 0, len(staged))
	batchSeen := map[uuid.UUID]bool{}
	var batchIDs []uuid.UUID
	for _, so := range staged {
		orders = append(orders, models.Order{
			ID:             uuid.New(),
			ImportBatchID:  so.ImportBatchID,
			BrokerFormatID: so.BrokerFormatID,
			UserID:         so.UserID,
			Symbol:         so.Symbol,
			Side:           so.Side,
			Quantity:       so.Quantity,
			Price:          so.Price,
			Commission:     so.Commission,
			ExecutedAt:     so.ExecutedAt,
			OrderRef:       so.OrderRef,
			BrokerMetadata: so.BrokerMetadata,
			CreatedAt:      time.Now(),
		})
		stagedIDs = append(stagedIDs, so.ID)
		if !batchSeen[so.ImportBatchID] {
			batchSeen[so.ImportBatchID] = true
			batchIDs = append(batchIDs, so.ImportBatchID)
		}
	}

	if err := s.store.CreateOrders(ctx, orders); err != nil {
		return 0, err
	}
	if err := s.store.CreateTrades(ctx, buildTrades(orders)); err != nil {
		return 0, err
	}
	if err := s.store.DeleteStagedOrders(ctx, stagedIDs); err != nil {
		return 0, err
	}
	if err := s.store.MarkBatchesCompleted(ctx, batchIDs); err != nil {
		return 0, err
	}
	return len(orders), nil
}

// CleanupExpiredRecords deletes staged rows past the retention TTL. Idempotent
// and safe to run concurrently with active staging.
func (s *Service) CleanupExpiredRecords(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredStagedOrders(ctx, time.Now().Add(-s.ttl))
}

// TTL exposes the retention window, used by the cleanup monitor for log
// expiry as well.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// buildTrades groups live orders per (batch, symbol) into trade rows and
// links the orders to them.
func buildTrades(orders []models.Order) []models.Trade {
	type key struct {
		batch  uuid.UUID
		symbol string
	}
	grouped := map[key][]int{}
	var order []key
	for i := range orders {
		k := key{orders[i].ImportBatchID, orders[i].Symbol}
		if _, seen := grouped[k]; !seen {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], i)
	}

	trades := make([]models.Trade, 0, len(order))
	for _, k := range order {
		idxs := grouped[k]
		trade := models.Trade{
			ID:            uuid.New(),
			ImportBatchID: k.batch,
			UserID:        orders[idxs[0]].UserID,
			Symbol:        k.symbol,
			OrderCount:    len(idxs),
			CreatedAt:     time.Now(),
		}
		net := decimal.Zero
		notional := decimal.Zero
		gross := decimal.Zero
		for _, i := range idxs {
			o := &orders[i]
			o.TradeID = &trade.ID
			qty := o.Quantity
			if o.Side == "SELL" {
				net = net.Sub(qty)
			} else {
				net = net.Add(qty)
			}
			notional = notional.Add(qty.Mul(o.Price))
			gross = gross.Add(qty)
			if trade.OpenedAt == nil || (o.ExecutedAt != nil && o.ExecutedAt.Before(*trade.OpenedAt)) {
				trade.OpenedAt = o.ExecutedAt
			}
		}
		trade.NetQuantity = net
		if !gross.IsZero() {
			trade.AvgPrice = notional.Div(gross)
		}
		trades = append(trades, trade)
	}
	return trades
}
