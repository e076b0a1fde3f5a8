package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrTableNotFound is returned when a schema lookup finds no columns.
var ErrTableNotFound = errors.New("table not found")

// transientCodes are SQLSTATEs where retrying later can succeed: rows locked
// by another writer, serialisation conflicts, or a warehouse that is starting
// up or out of connections.
var transientCodes = map[pq.ErrorCode]struct{}{
	"55P03": {}, // lock_not_available
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"57P03": {}, // cannot_connect_now
	"53300": {}, // too_many_connections
}

// IsTransient reports whether err signals a temporarily unavailable warehouse.
func IsTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		_, ok := transientCodes[pqErr.Code]
		return ok
	}
	return false
}

func quoteTable(namespace, table string) string {
	return pq.QuoteIdentifier(namespace) + "." + pq.QuoteIdentifier(table)
}
