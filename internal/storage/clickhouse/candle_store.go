package clickhouse

import (
	"context"
	"fmt"
	"time"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk adds one instrument's candles for a date.
// Fails entire batch on duplicate (date, code, time).
func (s *CandleStore) InsertBulk(ctx context.Context, date time.Time, code string, candles domain.CandleSeries) (err error) {
	if len(candles) == 0 {
		return nil
	}
	if code == "" {
		return storage.ErrInvalidInput
	}
	defer s.conn.observe("insert_candles", time.Now(), &err)

	// Check for intra-batch duplicates
	seen := make(map[domain.Clock]struct{}, len(candles))
	for _, c := range candles {
		if c.Time < 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[c.Time]; exists {
			return storage.ErrDuplicateKey
		}
		seen[c.Time] = struct{}{}
	}

	// Check for duplicates against existing rows
	day := dayString(date)
	existing, err := s.times(ctx, day, code)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	for _, t := range existing {
		if _, dup := seen[t]; dup {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO intraday_candles (
			trade_date, code, time_sec, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	d := domain.TradingDate(date)
	for _, c := range candles {
		err = batch.Append(d, code, uint32(c.Time), c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetSeries retrieves one instrument's candles for a date, ordered by time ASC.
func (s *CandleStore) GetSeries(ctx context.Context, date time.Time, code string) (_ domain.CandleSeries, err error) {
	defer s.conn.observe("get_series", time.Now(), &err)

	rows, err := s.conn.Query(ctx, `
		SELECT time_sec, open, high, low, close, volume
		FROM intraday_candles
		WHERE trade_date = toDate(?) AND code = ?
		ORDER BY time_sec ASC
	`, dayString(date), code)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// ListCodes returns instrument codes with candles on a date, ASC.
func (s *CandleStore) ListCodes(ctx context.Context, date time.Time) ([]string, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT code FROM intraday_candles
		WHERE trade_date = toDate(?)
		ORDER BY code ASC
	`, dayString(date))
	if err != nil {
		return nil, fmt.Errorf("query codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan code row: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate code rows: %w", err)
	}
	return codes, nil
}

// times returns the stored candle times of one instrument-day.
func (s *CandleStore) times(ctx context.Context, day, code string) ([]domain.Clock, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT time_sec FROM intraday_candles
		WHERE trade_date = toDate(?) AND code = ?
	`, day, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Clock
	for rows.Next() {
		var t uint32
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, domain.Clock(t))
	}
	return out, rows.Err()
}

// scanCandles scans multiple rows. Always returns a non-nil series.
func scanCandles(rows chRows) (domain.CandleSeries, error) {
	series := domain.CandleSeries{}

	for rows.Next() {
		var c domain.Candle
		var t uint32
		if err := rows.Scan(&t, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}
		c.Time = domain.Clock(t)
		series = append(series, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}
	return series, nil
}

func dayString(date time.Time) string {
	return domain.TradingDate(date).Format(domain.DateLayout)
}
