// Package pgstore implements ports.Store over gorm/postgres: a repository
// struct wrapping *gorm.DB and *zap.Logger, with transactional upserts and
// structured error logging.
package pgstore

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chainfeed/ingestd/internal/ports"
)

// Store adapts a *gorm.DB to ports.Store.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ ports.Store = (*Store)(nil)

// New wraps a gorm connection; it does not migrate, callers run Migrate.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Migrate runs the auto-migration for this store's tables. Callers invoke it
// once at startup; it is idempotent.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Trade{}, &Candle{}, &Event{})
}

func (s *Store) InsertTrades(ctx context.Context, trades []ports.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	rows := make([]Trade, 0, len(trades))
	for _, t := range trades {
		orderID := ""
		if t.OrderID != nil {
			orderID = *t.OrderID
		}
		rows = append(rows, Trade{
			Slug:           t.Slug,
			OrderID:        orderID,
			MarketAddress:  t.MarketAddress,
			MarketBuy:      t.MarketBuy,
			AvgPrice:       t.AvgPrice,
			Amount:         t.Amount,
			AvgPriceLots:   t.AvgPriceLots,
			AmountLots:     t.AmountLots,
			Slot:           t.Slot,
			Timestamp:      t.Timestamp,
			Blocktime:      t.Blocktime,
			TransactionSig: t.TransactionSig,
		})
	}

	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		s.logger.Error("failed to insert trades", zap.Error(err), zap.Int("count", len(rows)))
		return err
	}
	return nil
}

// UpsertCandles writes each candle, replacing open/high/low/close/amount when
// a row already exists for the same (slug, unit, begin_ts) bucket.
func (s *Store) UpsertCandles(ctx context.Context, candles []ports.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	rows := make([]Candle, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, Candle{
			Slug:    c.Slug,
			Unit:    c.Unit,
			BeginTS: c.BeginTS,
			EndTS:   c.EndTS,
			Open:    c.Open,
			High:    c.High,
			Low:     c.Low,
			Close:   c.Close,
			Amount:  c.Amount,
		})
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}, {Name: "unit"}, {Name: "begin_ts"}},
		DoUpdates: clause.AssignmentColumns([]string{"end_ts", "open", "high", "low", "close", "amount"}),
	}).Create(&rows).Error
	if err != nil {
		s.logger.Error("failed to upsert candles", zap.Error(err), zap.Int("count", len(rows)))
		return err
	}
	return nil
}

func (s *Store) LatestCandleBefore(ctx context.Context, slug, unit string, beforeTS int64) (*ports.Candle, error) {
	var row Candle
	err := s.db.WithContext(ctx).
		Where("slug = ? AND unit = ? AND begin_ts < ?", slug, unit, beforeTS).
		Order("begin_ts DESC").
		Limit(1).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("failed to look up latest candle", zap.Error(err), zap.String("slug", slug), zap.String("unit", unit))
		return nil, err
	}

	return &ports.Candle{
		Slug:    row.Slug,
		Unit:    row.Unit,
		BeginTS: row.BeginTS,
		EndTS:   row.EndTS,
		Open:    row.Open,
		High:    row.High,
		Low:     row.Low,
		Close:   row.Close,
		Amount:  row.Amount,
	}, nil
}

func (s *Store) InsertEvents(ctx context.Context, events []ports.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]Event, 0, len(events))
	for _, e := range events {
		rows = append(rows, Event{
			Kind:   e.Kind,
			User:   e.User,
			Amount: e.Amount,
			Price:  e.Price,
			Tx:     e.Tx,
			Market: e.Market,
			Filled: e.Filled,
		})
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		s.logger.Error("failed to insert events", zap.Error(err), zap.Int("count", len(rows)))
		return err
	}
	return nil
}
