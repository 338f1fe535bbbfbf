package persistence

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"

	appErrors "github.com/nexora/backend/pkg/errors"
)

// MySQL/TiDB error numbers
const (
	errNumDuplicateKey = 1062
	errNumLockWait     = 1205
	errNumDeadlock     = 1213
)

// SQLite primary result codes
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// isDeadlock reports lock contention that a fresh transaction can win.
func isDeadlock(err error) bool {
	if err == nil {
		return false
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == errNumDeadlock || myErr.Number == errNumLockWait
	}

	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		code := coded.Code() & 0xff
		return code == sqliteBusy || code == sqliteLocked
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "deadlock") ||
		strings.Contains(errMsg, "lock wait timeout") ||
		strings.Contains(errMsg, "database is locked")
}

// isTransient reports failures worth retrying: lock contention and broken
// or unreachable connections.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if isDeadlock(err) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == errNumDuplicateKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// classify wraps a driver error for the service layer. Transient failures
// become TransientError so callers can retry them.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr appErrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if isTransient(err) {
		return appErrors.NewTransientError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
