package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
)

// SQLiteStore implements TradeStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the journal database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		mode TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL DEFAULT 'USD',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS strategies (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- date is an ISO calendar date so range filters compare as text
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		date TEXT NOT NULL,
		time TEXT,
		market TEXT NOT NULL,
		direction TEXT NOT NULL,
		outcome TEXT NOT NULL,
		break_even INTEGER NOT NULL DEFAULT 0,
		be_final_result TEXT,
		executed INTEGER,
		partials_taken INTEGER NOT NULL DEFAULT 0,
		risk_per_trade REAL NOT NULL DEFAULT 0,
		risk_reward REAL NOT NULL DEFAULT 0,
		potential_risk_reward REAL NOT NULL DEFAULT 0,
		stop_loss_size REAL NOT NULL DEFAULT 0,
		calculated_profit REAL NOT NULL DEFAULT 0,
		pnl_percent REAL NOT NULL DEFAULT 0,
		news_related INTEGER NOT NULL DEFAULT 0,
		news_name TEXT,
		news_intensity INTEGER NOT NULL DEFAULT 0,
		local_high_low INTEGER NOT NULL DEFAULT 0,
		setup_type TEXT,
		liquidity_type TEXT,
		strategy_id TEXT,
		notes TEXT,
		evaluation TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);
	CREATE INDEX IF NOT EXISTS idx_strategies_scope ON strategies(user_id, account_id);
	CREATE INDEX IF NOT EXISTS idx_trades_scope ON trades(user_id, account_id, mode);
	CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(date);
	CREATE INDEX IF NOT EXISTS idx_trades_strategy ON trades(strategy_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Accounts
// ============================================================================

// SaveAccount inserts or replaces an account, assigning an ID when empty.
func (s *SQLiteStore) SaveAccount(ctx context.Context, account *models.Account) error {
	if strings.TrimSpace(account.Name) == "" {
		return apperrors.NewValidationError("name", account.Name, "account name is required")
	}
	if _, ok := models.ParseAccountMode(string(account.Mode)); !ok {
		return apperrors.NewValidationError("mode", account.Mode, "must be live, demo or backtesting")
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.Currency == "" {
		account.Currency = "USD"
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO accounts (id, user_id, name, mode, balance, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, account.ID, account.UserID, account.Name, string(account.Mode), account.Balance.String(), account.Currency, account.CreatedAt)
	if err != nil {
		return apperrors.NewStoreError("account", "save", err)
	}
	return nil
}

// GetAccount returns the account with id or ErrAccountNotFound.
func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, mode, balance, currency, created_at FROM accounts WHERE id = ?
	`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, apperrors.NewStoreError("account", "get", err)
	}
	return &a, nil
}

// ListAccounts returns the accounts of userID ordered by name.
func (s *SQLiteStore) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, mode, balance, currency, created_at FROM accounts
		WHERE user_id = ? ORDER BY name ASC
	`, userID)
	if err != nil {
		return nil, apperrors.NewStoreError("account", "list", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("account", "scan", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ============================================================================
// Strategies
// ============================================================================

// SaveStrategy inserts or replaces a strategy, assigning an ID when empty.
func (s *SQLiteStore) SaveStrategy(ctx context.Context, strategy *models.Strategy) error {
	if strings.TrimSpace(strategy.Name) == "" {
		return apperrors.NewValidationError("name", strategy.Name, "strategy name is required")
	}
	now := s.now()
	if strategy.ID == "" {
		strategy.ID = uuid.NewString()
		strategy.Active = true
	}
	if strategy.CreatedAt.IsZero() {
		strategy.CreatedAt = now
	}
	strategy.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO strategies (id, user_id, account_id, name, description, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, strategy.ID, strategy.UserID, strategy.AccountID, strings.TrimSpace(strategy.Name), strategy.Description,
		boolToInt(strategy.Active), strategy.CreatedAt, strategy.UpdatedAt)
	if err != nil {
		return apperrors.NewStoreError("strategy", "save", err)
	}
	return nil
}

// GetStrategy returns the strategy with id or ErrStrategyNotFound.
func (s *SQLiteStore) GetStrategy(ctx context.Context, id string) (*models.Strategy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, account_id, name, description, active, created_at, updated_at
		FROM strategies WHERE id = ?
	`, id)
	st, err := scanStrategy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrStrategyNotFound
	}
	if err != nil {
		return nil, apperrors.NewStoreError("strategy", "get", err)
	}
	return &st, nil
}

// ListStrategies returns strategies matching filter ordered by name.
// Archived strategies are skipped unless requested.
func (s *SQLiteStore) ListStrategies(ctx context.Context, filter StrategyFilter) ([]models.Strategy, error) {
	query := "SELECT id, user_id, account_id, name, description, active, created_at, updated_at FROM strategies WHERE 1=1"
	args := []interface{}{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.AccountID != "" {
		query += " AND account_id = ?"
		args = append(args, filter.AccountID)
	}
	if !filter.IncludeArchived {
		query += " AND active = 1"
	}
	query += " ORDER BY name COLLATE NOCASE ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("strategy", "list", err)
	}
	defer rows.Close()

	var strategies []models.Strategy
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("strategy", "scan", err)
		}
		strategies = append(strategies, st)
	}
	return strategies, rows.Err()
}

// SetStrategyActive archives (active=false) or restores a strategy.
func (s *SQLiteStore) SetStrategyActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE strategies SET active = ?, updated_at = ? WHERE id = ?
	`, boolToInt(active), s.now(), id)
	if err != nil {
		return apperrors.NewStoreError("strategy", "set active", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrStrategyNotFound
	}
	return nil
}

// ============================================================================
// Trades
// ============================================================================

const tradeColumns = `id, user_id, account_id, mode, date, time, market, direction, outcome, break_even,
	be_final_result, executed, partials_taken, risk_per_trade, risk_reward, potential_risk_reward,
	stop_loss_size, calculated_profit, pnl_percent, news_related, news_name, news_intensity,
	local_high_low, setup_type, liquidity_type, strategy_id, notes, evaluation, created_at, updated_at`

const insertTrade = `INSERT OR REPLACE INTO trades (` + tradeColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SaveTrade validates, normalizes and upserts a trade. An empty ID is
// replaced with a fresh UUID.
func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *models.Trade) error {
	return s.saveTrade(ctx, s.db, trade)
}

// SaveTrades persists trades in a single transaction. Nothing is written if
// any trade fails validation.
func (s *SQLiteStore) SaveTrades(ctx context.Context, trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("trade", "begin", err)
	}
	defer tx.Rollback()

	for i := range trades {
		if err := s.saveTrade(ctx, tx, &trades[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreError("trade", "commit", err)
	}
	logger := logging.FromContext(ctx)
	logger.Debug().Int("count", len(trades)).Msg("Trades committed")
	return nil
}

func (s *SQLiteStore) saveTrade(ctx context.Context, ex execer, t *models.Trade) error {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return err
	}

	now := s.now()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	var executed interface{}
	if t.Executed != nil {
		executed = boolToInt(*t.Executed)
	}

	_, err := ex.ExecContext(ctx, insertTrade,
		t.ID, t.UserID, t.AccountID, string(t.Mode), t.DateKey(), t.Time, t.Market, string(t.Direction),
		string(t.Outcome), boolToInt(t.BreakEven), string(t.BEFinalResult), executed, boolToInt(t.PartialsTaken),
		t.RiskPerTrade, t.RiskReward, t.PotentialRiskReward, t.StopLossSize, t.CalculatedProfit, t.PnLPercent,
		boolToInt(t.NewsRelated), t.NewsName, t.NewsIntensity, boolToInt(t.LocalHighLow),
		t.SetupType, t.LiquidityType, t.StrategyID, t.Notes, string(t.Evaluation), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return apperrors.NewStoreError("trade", "save", err)
	}
	return nil
}

// GetTrade returns the trade with id or ErrTradeNotFound.
func (s *SQLiteStore) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+tradeColumns+" FROM trades WHERE id = ?", id)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrTradeNotFound
	}
	if err != nil {
		return nil, apperrors.NewStoreError("trade", "get", err)
	}
	return &t, nil
}

// GetTrades returns trades matching query in ascending date order.
func (s *SQLiteStore) GetTrades(ctx context.Context, q TradeQuery) ([]models.Trade, error) {
	query := "SELECT " + tradeColumns + " FROM trades WHERE 1=1"
	args := []interface{}{}

	if q.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, q.UserID)
	}
	if q.AccountID != "" {
		query += " AND account_id = ?"
		args = append(args, q.AccountID)
	}
	if q.Mode != "" {
		query += " AND mode = ?"
		args = append(args, string(q.Mode))
	}
	if !q.StartDate.IsZero() {
		query += " AND date >= ?"
		args = append(args, q.StartDate.Format(models.DateLayout))
	}
	if !q.EndDate.IsZero() {
		query += " AND date <= ?"
		args = append(args, q.EndDate.Format(models.DateLayout))
	}
	if q.StrategyID != "" {
		query += " AND strategy_id = ?"
		args = append(args, q.StrategyID)
	}
	if !q.IncludeNonExecuted {
		query += " AND (executed IS NULL OR executed = 1)"
	}

	query += " ORDER BY date ASC, time ASC, created_at ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("trade", "query", err)
	}
	defer rows.Close()

	trades := []models.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("trade", "scan", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// DeleteTrade removes a trade or returns ErrTradeNotFound.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM trades WHERE id = ?", id)
	if err != nil {
		return apperrors.NewStoreError("trade", "delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrTradeNotFound
	}
	return nil
}

// ============================================================================
// Scanning
// ============================================================================

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(sc scanner) (models.Account, error) {
	var a models.Account
	var mode, balance string
	if err := sc.Scan(&a.ID, &a.UserID, &a.Name, &mode, &balance, &a.Currency, &a.CreatedAt); err != nil {
		return a, err
	}
	a.Mode = models.AccountMode(mode)
	bal, err := decimal.NewFromString(balance)
	if err != nil {
		return a, fmt.Errorf("invalid balance %q: %w", balance, err)
	}
	a.Balance = bal
	return a, nil
}

func scanStrategy(sc scanner) (models.Strategy, error) {
	var st models.Strategy
	var description sql.NullString
	var active int
	if err := sc.Scan(&st.ID, &st.UserID, &st.AccountID, &st.Name, &description, &active, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return st, err
	}
	st.Description = description.String
	st.Active = active == 1
	return st, nil
}

func scanTrade(sc scanner) (models.Trade, error) {
	var t models.Trade
	var mode, date, direction, outcome string
	var tm, beFinal, newsName, setup, liquidity, strategyID, notes, evaluation sql.NullString
	var breakEven, partials, newsRelated, localHL int
	var executed sql.NullInt64

	err := sc.Scan(&t.ID, &t.UserID, &t.AccountID, &mode, &date, &tm, &t.Market, &direction, &outcome,
		&breakEven, &beFinal, &executed, &partials, &t.RiskPerTrade, &t.RiskReward, &t.PotentialRiskReward,
		&t.StopLossSize, &t.CalculatedProfit, &t.PnLPercent, &newsRelated, &newsName, &t.NewsIntensity,
		&localHL, &setup, &liquidity, &strategyID, &notes, &evaluation, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}

	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return t, fmt.Errorf("invalid trade date %q: %w", date, err)
	}
	t.Date = d
	t.Mode = models.AccountMode(mode)
	t.Direction = models.Direction(direction)
	t.Outcome = models.Outcome(outcome)
	t.Time = tm.String
	t.BreakEven = breakEven == 1
	t.BEFinalResult = models.Outcome(beFinal.String)
	if executed.Valid {
		t.Executed = models.BoolPtr(executed.Int64 == 1)
	}
	t.PartialsTaken = partials == 1
	t.NewsRelated = newsRelated == 1
	t.NewsName = newsName.String
	t.LocalHighLow = localHL == 1
	t.SetupType = setup.String
	t.LiquidityType = liquidity.String
	t.StrategyID = strategyID.String
	t.Notes = notes.String
	t.Evaluation = models.Grade(evaluation.String)
	return t, nil
}

// IsPermanent reports whether a write error will fail again on retry:
// validation failures, SQLite constraint violations and cancellation.
func IsPermanent(err error) bool {
	if errors.Is(err, apperrors.ErrInputValidation) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
