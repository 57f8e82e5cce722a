// Package repository defines the MySQL implementation of the store
// contract.  This file classifies driver errors into the sentinel values
// the store package exposes so that services never inspect MySQL error
// numbers themselves.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store"
)

// MySQL server error numbers the repositories react to.
const (
	errDupEntry        = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
	errCheckViolated   = 3819
)

// Unique index names from the schema.
const (
	keyAccountsShortCode    = "uq_accounts_short_code"
	keyReservationsBookCode = "uq_reservations_booking_code"
)

func mysqlErr(err error) (*mysql.MySQLError, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// isDuplicate reports whether err is a duplicate key error on the named
// key.  An empty key matches any duplicate.
func isDuplicate(err error, key string) bool {
	me, ok := mysqlErr(err)
	if !ok || me.Number != errDupEntry {
		return false
	}
	return key == "" || strings.Contains(me.Message, key)
}

// isRetryable reports whether the server aborted the statement because of
// a lock conflict with another transaction.
func isRetryable(err error) bool {
	me, ok := mysqlErr(err)
	return ok && (me.Number == errDeadlock || me.Number == errLockWaitTimeout)
}

// classifyWrite maps driver errors raised while applying a transaction's
// writes onto store sentinels.  Unknown errors pass through unchanged.
func classifyWrite(err error) error {
	switch {
	case err == nil:
		return nil
	case isRetryable(err):
		return store.ErrStale
	case isDuplicate(err, keyReservationsBookCode):
		return store.ErrStale
	}
	if me, ok := mysqlErr(err); ok && me.Number == errCheckViolated {
		return store.ErrNegativeBalance
	}
	return err
}
