// Package postgres stores interface counters in Postgres.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"go.uber.org/multierr"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
	"github.com/vshulcz/vnstat-exporter/internal/misc"
	"github.com/vshulcz/vnstat-exporter/internal/ports"
)

// Store keeps one row per interface. Counters are NUMERIC(20,0) so the full
// uint64 range survives.
type Store struct {
	db      *sql.DB
	backoff []time.Duration
}

var _ ports.StateStore = (*Store)(nil)

var retryablePGCodes = map[string]struct{}{
	pgerrcode.ConnectionException:                           {},
	pgerrcode.ConnectionDoesNotExist:                        {},
	pgerrcode.ConnectionFailure:                             {},
	pgerrcode.SQLClientUnableToEstablishSQLConnection:       {},
	pgerrcode.SQLServerRejectedEstablishmentOfSQLConnection: {},
	pgerrcode.TransactionResolutionUnknown:                  {},
	pgerrcode.SerializationFailure:                          {},
	pgerrcode.DeadlockDetected:                              {},
	pgerrcode.LockNotAvailable:                              {},
	pgerrcode.TooManyConnections:                            {},
	pgerrcode.AdminShutdown:                                 {},
	pgerrcode.CrashShutdown:                                 {},
	pgerrcode.CannotConnectNow:                              {},
}

const (
	qUpsert = `
INSERT INTO interface_counters (name, rx, tx, updated_at, saved_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (name)
DO UPDATE SET rx=EXCLUDED.rx, tx=EXCLUDED.tx, updated_at=EXCLUDED.updated_at, saved_at=now();`
	qLoad = `SELECT name, rx, tx, updated_at FROM interface_counters ORDER BY name`
)

// New returns a Store using db. Transient failures are retried with misc.DefaultBackoff.
func New(db *sql.DB) *Store {
	return &Store{db: db, backoff: misc.DefaultBackoff}
}

// Open connects to dsn, waits for the server and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	op := func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		return Migrate(db)
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, IsRetryable, op); err != nil {
		return nil, multierr.Append(fmt.Errorf("connect: %w", err), db.Close())
	}
	return New(db), nil
}

// Save upserts every state in one transaction.
func (s *Store) Save(ctx context.Context, states []domain.InterfaceState) error {
	if len(states) == 0 {
		return nil
	}
	attempt := func(ctx context.Context) (retErr error) {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				retErr = multierr.Append(retErr, err)
			}
		}()

		for _, st := range states {
			updated := sql.NullTime{Time: st.Updated, Valid: !st.Updated.IsZero()}
			if _, err := tx.ExecContext(ctx, qUpsert, st.Name,
				strconv.FormatUint(st.RX, 10), strconv.FormatUint(st.TX, 10), updated); err != nil {
				return err
			}
		}
		return tx.Commit()
	}
	return misc.Retry(ctx, s.backoff, IsRetryable, attempt)
}

// Load returns all stored states ordered by name.
func (s *Store) Load(ctx context.Context) ([]domain.InterfaceState, error) {
	var out []domain.InterfaceState
	op := func(ctx context.Context) (retErr error) {
		rows, err := s.db.QueryContext(ctx, qLoad)
		if err != nil {
			return err
		}
		defer func() {
			retErr = multierr.Append(retErr, rows.Close())
		}()

		var states []domain.InterfaceState
		for rows.Next() {
			var (
				name, rx, tx string
				updated      sql.NullTime
			)
			if err := rows.Scan(&name, &rx, &tx, &updated); err != nil {
				return err
			}
			st := domain.InterfaceState{Name: name, Updated: updated.Time}
			if st.RX, err = strconv.ParseUint(rx, 10, 64); err != nil {
				return fmt.Errorf("%s rx: %w", name, err)
			}
			if st.TX, err = strconv.ParseUint(tx, 10, 64); err != nil {
				return fmt.Errorf("%s tx: %w", name, err)
			}
			states = append(states, st)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		out = states
		return nil
	}
	if err := misc.Retry(ctx, s.backoff, IsRetryable, op); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// IsRetryable reports whether err is a transient connection or contention failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return isRetryableCode(string(pqe.Code))
	}
	return false
}

func isRetryableCode(code string) bool {
	if _, ok := retryablePGCodes[code]; ok {
		return true
	}
	return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "40")
}
