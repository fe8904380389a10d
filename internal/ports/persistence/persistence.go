package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Persistence общий интерфейс выполнения запросов: ему удовлетворяют
// и соединение с БД, и открытая транзакция
type Persistence interface {
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Exec(ctx context.Context, query string, args ...interface{}) error
	ExecWithResult(ctx context.Context, query string, args ...interface{}) (int64, error)
	NamedExec(ctx context.Context, query string, arg interface{}) error
	QueryRow(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

// Transaction открытая транзакция БД
type Transaction interface {
	Persistence
	Commit() error
	Rollback() error
}

// TxManager запускает fn внутри транзакции: commit при nil,
// rollback при ошибке или панике
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}
