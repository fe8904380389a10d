package pg

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
)

// trackingConn минимальный драйвер: считает commit/rollback, запросов не умеет
type trackingConn struct {
	commits   int
	rollbacks int
}

type trackingDriver struct {
	conn *trackingConn
}

func (d *trackingDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *trackingConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *trackingConn) Close() error                        { return nil }
func (c *trackingConn) Begin() (driver.Tx, error)           { return &trackingTx{conn: c}, nil }

type trackingTx struct {
	conn *trackingConn
}

func (t *trackingTx) Commit() error   { t.conn.commits++; return nil }
func (t *trackingTx) Rollback() error { t.conn.rollbacks++; return nil }

var trackingSeq atomic.Int64

func newTrackedDB(t *testing.T) (*DB, *trackingConn) {
	t.Helper()

	conn := &trackingConn{}
	name := fmt.Sprintf("pg-tracking-%d", trackingSeq.Add(1))
	sql.Register(name, &trackingDriver{conn: conn})

	raw, err := sql.Open(name, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	return NewDB(sqlx.NewDb(raw, name)), conn
}

func TestWithTransactionCommitsOnSuccess(t *testing.T) {
	db, conn := newTrackedDB(t)

	err := db.WithTransaction(context.Background(), func(context.Context, persistence.Transaction) error {
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, conn.commits)
	assert.Zero(t, conn.rollbacks)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db, conn := newTrackedDB(t)
	boom := errors.New("update failed")

	err := db.WithTransaction(context.Background(), func(context.Context, persistence.Transaction) error {
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, conn.rollbacks)
	assert.Zero(t, conn.commits)
}

func TestWithTransactionRollsBackOnPanic(t *testing.T) {
	db, conn := newTrackedDB(t)

	// Паника в колбэке не должна оставить открытую транзакцию на соединении
	require.Panics(t, func() {
		_ = db.WithTransaction(context.Background(), func(context.Context, persistence.Transaction) error {
			panic("callback exploded")
		})
	})

	assert.Equal(t, 1, conn.rollbacks)
	assert.Zero(t, conn.commits)
}
