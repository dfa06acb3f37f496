// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"trade-journal/internal/models"
)

// TradeStore defines the interface for journal persistence.
type TradeStore interface {
	// Accounts
	SaveAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)

	// Strategies
	SaveStrategy(ctx context.Context, strategy *models.Strategy) error
	GetStrategy(ctx context.Context, id string) (*models.Strategy, error)
	ListStrategies(ctx context.Context, filter StrategyFilter) ([]models.Strategy, error)
	SetStrategyActive(ctx context.Context, id string, active bool) error

	// Trades
	SaveTrade(ctx context.Context, trade *models.Trade) error
	SaveTrades(ctx context.Context, trades []models.Trade) error
	GetTrade(ctx context.Context, id string) (*models.Trade, error)
	GetTrades(ctx context.Context, query TradeQuery) ([]models.Trade, error)
	DeleteTrade(ctx context.Context, id string) error

	// Lifecycle
	Close() error
}

// TradeQuery represents filters for querying trades. Dates are inclusive
// calendar days; zero values leave the bound open.
type TradeQuery struct {
	UserID             string
	AccountID          string
	Mode               models.AccountMode
	StartDate          time.Time
	EndDate            time.Time
	StrategyID         string
	IncludeNonExecuted bool
	Limit              int
}

// StrategyFilter represents filters for listing strategies.
type StrategyFilter struct {
	UserID          string
	AccountID       string
	IncludeArchived bool
}
