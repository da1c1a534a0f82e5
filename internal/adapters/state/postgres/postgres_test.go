package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
)

const (
	patUpsert = `INSERT INTO interface_counters`
	patLoad   = `SELECT name, rx, tx, updated_at FROM interface_counters`
)

func newMock(t *testing.T) (sqlmock.Sqlmock, *Store) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return mock, &Store{db: db, backoff: []time.Duration{time.Millisecond, time.Millisecond}}
}

func TestStore_Save(t *testing.T) {
	mock, st := newMock(t)
	ts := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(patUpsert).WithArgs("eth0", "18446744073709551615", "50", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(patUpsert).WithArgs("wlan0", "1", "2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := st.Save(context.TODO(), []domain.InterfaceState{
		{Name: "eth0", RX: 18446744073709551615, TX: 50, Updated: ts},
		{Name: "wlan0", RX: 1, TX: 2},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestStore_SaveEmpty(t *testing.T) {
	_, st := newMock(t)
	if err := st.Save(context.TODO(), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestStore_SaveRetriesSerializationFailure(t *testing.T) {
	mock, st := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(patUpsert).WillReturnError(&pq.Error{Code: pgerrcode.SerializationFailure})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(patUpsert).WithArgs("eth0", "1", "1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := st.Save(context.TODO(), []domain.InterfaceState{{Name: "eth0", RX: 1, TX: 1}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestStore_SavePermanentError(t *testing.T) {
	mock, st := newMock(t)
	boom := errors.New("permission denied")

	mock.ExpectBegin()
	mock.ExpectExec(patUpsert).WillReturnError(boom)
	mock.ExpectRollback()

	err := st.Save(context.TODO(), []domain.InterfaceState{{Name: "eth0"}})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestStore_Load(t *testing.T) {
	mock, st := newMock(t)
	ts := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(patLoad).WillReturnRows(
		sqlmock.NewRows([]string{"name", "rx", "tx", "updated_at"}).
			AddRow("eth0", "18446744073709551615", "50", ts).
			AddRow("wlan0", "1", "2", nil),
	)

	got, err := st.Load(context.TODO())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows", len(got))
	}
	if got[0].Name != "eth0" || got[0].RX != 18446744073709551615 || got[0].TX != 50 || !got[0].Updated.Equal(ts) {
		t.Errorf("eth0 = %+v", got[0])
	}
	if got[1].Name != "wlan0" || !got[1].Updated.IsZero() {
		t.Errorf("wlan0 = %+v", got[1])
	}
}

func TestStore_LoadBadNumber(t *testing.T) {
	mock, st := newMock(t)
	mock.ExpectQuery(patLoad).WillReturnRows(
		sqlmock.NewRows([]string{"name", "rx", "tx", "updated_at"}).AddRow("eth0", "-5", "0", nil),
	)
	if _, err := st.Load(context.TODO()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestStore_LoadRetriesConnectionError(t *testing.T) {
	mock, st := newMock(t)
	mock.ExpectQuery(patLoad).WillReturnError(&pq.Error{Code: pgerrcode.AdminShutdown})
	mock.ExpectQuery(patLoad).WillReturnRows(sqlmock.NewRows([]string{"name", "rx", "tx", "updated_at"}))

	got, err := st.Load(context.TODO())
	if err != nil || len(got) != 0 {
		t.Fatalf("Load = %v, %v", got, err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "bad conn", err: sql.ErrConnDone, want: false},
		{name: "net op", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: true},
		{name: "deadlock", err: &pq.Error{Code: pgerrcode.DeadlockDetected}, want: true},
		{name: "class 08", err: &pq.Error{Code: "08999"}, want: true},
		{name: "class 40", err: &pq.Error{Code: "40999"}, want: true},
		{name: "unique violation", err: &pq.Error{Code: pgerrcode.UniqueViolation}, want: false},
		{name: "plain", err: errors.New("x"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestEmbeddedMigrations_Present(t *testing.T) {
	entries, err := fs.ReadDir(embedMigrations, "migrations")
	if err != nil {
		t.Fatalf("cannot read embedded migrations: %v", err)
	}
	if len(entries) == 0 || entries[0].Name() != "0001_init.sql" {
		t.Fatalf("unexpected migrations: %v", entries)
	}
}
