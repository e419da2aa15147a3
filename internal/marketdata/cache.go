package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/rotor/internal/database"
)

const priceSchema = `
CREATE TABLE IF NOT EXISTS stock_prices (
	symbol     TEXT NOT NULL,
	date       TEXT NOT NULL,
	open       REAL,
	high       REAL,
	low        REAL,
	close      REAL NOT NULL,
	adj_close  REAL NOT NULL,
	volume     INTEGER,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (symbol, date)
);
CREATE INDEX IF NOT EXISTS idx_stock_prices_symbol ON stock_prices(symbol);
`

const dateLayout = "2006-01-02"

// PriceCache stores daily bars in SQLite keyed by (symbol, date).
type PriceCache struct {
	db *database.DB
}

// NewPriceCache applies the schema and returns the cache.
func NewPriceCache(db *database.DB) (*PriceCache, error) {
	if err := db.ApplySchema(priceSchema); err != nil {
		return nil, fmt.Errorf("failed to apply price cache schema: %w", err)
	}
	return &PriceCache{db: db}, nil
}

// Bars returns the cached bars for a symbol, oldest first.
func (c *PriceCache) Bars(symbol string) ([]Bar, error) {
	rows, err := c.db.Conn().Query(`
		SELECT date, open, high, low, close, adj_close, volume
		FROM stock_prices WHERE symbol = ? ORDER BY date ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []Bar
	for rows.Next() {
		var b Bar
		var dateStr string
		if err := rows.Scan(&dateStr, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan cached bar for %s: %w", symbol, err)
		}
		b.Date, err = time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt date %q cached for %s: %w", dateStr, symbol, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// LastDate returns the most recent cached bar date for a symbol. The boolean
// is false when nothing is cached.
func (c *PriceCache) LastDate(symbol string) (time.Time, bool, error) {
	var dateStr sql.NullString
	err := c.db.Conn().QueryRow(
		`SELECT MAX(date) FROM stock_prices WHERE symbol = ?`, symbol).Scan(&dateStr)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query last cached date for %s: %w", symbol, err)
	}
	if !dateStr.Valid {
		return time.Time{}, false, nil
	}
	d, err := time.Parse(dateLayout, dateStr.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt date %q cached for %s: %w", dateStr.String, symbol, err)
	}
	return d, true, nil
}

// SaveBars upserts bars for a symbol in one transaction.
func (c *PriceCache) SaveBars(symbol string, bars []Bar) error {
	if len(bars) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)

	return database.WithTransaction(c.db.Conn(), func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO stock_prices
			(symbol, date, open, high, low, close, adj_close, volume, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range bars {
			if _, err := stmt.Exec(symbol, b.Date.Format(dateLayout),
				b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear removes all cached bars for a symbol.
func (c *PriceCache) Clear(symbol string) error {
	if _, err := c.db.Conn().Exec(`DELETE FROM stock_prices WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("failed to clear cache for %s: %w", symbol, err)
	}
	return nil
}
