package storage

import (
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	busyRetries = 3
	busyBackoff = 100 * time.Millisecond
)

// ErrBusy is returned when SQLite stays locked through every retry
var ErrBusy = errors.New("max retries exceeded for SQLITE_BUSY")

// DBQueue serialises access to the SQLite database. The MTProto update
// handlers, bot handlers and the publisher all write through it.
type DBQueue struct {
	db        *sql.DB
	requests  chan *dbRequest
	done      chan struct{}
	closeOnce sync.Once
}

type dbRequest struct {
	run      func(*sql.DB) error
	response chan error
}

// NewDBQueue creates a new DBQueue and starts its worker
func NewDBQueue(db *sql.DB) *DBQueue {
	q := &DBQueue{
		db:       db,
		requests: make(chan *dbRequest, 100),
		done:     make(chan struct{}),
	}
	go q.process()
	return q
}

func (q *DBQueue) process() {
	for {
		select {
		case req := <-q.requests:
			req.response <- q.executeWithRetry(req.run)
		case <-q.done:
			return
		}
	}
}

func (q *DBQueue) executeWithRetry(run func(*sql.DB) error) error {
	for i := 0; i < busyRetries; i++ {
		err := run(q.db)
		if err == nil {
			return nil
		}
		if !isBusyError(err) {
			return err
		}
		time.Sleep(busyBackoff * time.Duration(i+1))
	}
	return ErrBusy
}

// isBusyError reports whether err is SQLITE_BUSY or SQLITE_LOCKED
func isBusyError(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// Execute runs fn on the queue's worker and waits for its result
func (q *DBQueue) Execute(fn func(*sql.DB) error) error {
	req := &dbRequest{
		run:      fn,
		response: make(chan error, 1),
	}
	select {
	case <-q.done:
		return sql.ErrConnDone
	default:
	}

	select {
	case q.requests <- req:
	case <-q.done:
		return sql.ErrConnDone
	}

	select {
	case err := <-req.response:
		return err
	case <-q.done:
		return sql.ErrConnDone
	}
}

// ExecuteTx runs fn inside a transaction on the queue's worker.
// The transaction is rolled back if fn returns an error.
func (q *DBQueue) ExecuteTx(fn func(*sql.Tx) error) error {
	return q.Execute(func(db *sql.DB) error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// Close stops the worker. It is safe to call more than once.
func (q *DBQueue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
