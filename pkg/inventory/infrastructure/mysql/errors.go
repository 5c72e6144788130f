package mysql

import (
	"context"
	"database/sql"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"inventory/pkg/inventory/domain/model"
)

const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
	errCheckViolated   = 3819
)

// translate maps driver failures onto domain error kinds. notFound replaces
// sql.ErrNoRows when given.
func translate(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && notFound != nil {
		return notFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case errLockWaitTimeout, errDeadlock:
			return errors.Wrap(model.ErrLockTimeout, op)
		case errCheckViolated:
			return &model.StorageError{Op: op, Err: errors.Wrap(model.ErrNegativeStockDetected, mysqlErr.Message)}
		}
	}
	return &model.StorageError{Op: op, Err: err}
}
