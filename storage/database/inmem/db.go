// Package inmem provides mutex-guarded in-memory repositories for tests.
package inmem

import (
	"sync"

	"github.com/trezcool/shiksha/core/ledger"
	"github.com/trezcool/shiksha/core/staff"
	"github.com/trezcool/shiksha/core/student"
)

// DB holds every table under one lock so multi-row writes stay atomic and the
// ID counter behaves like the database one: linearizable increments.
type DB struct {
	mu sync.Mutex

	batches      []student.Batch
	installments []student.FeeInstallment
	students     []student.Student
	counters     map[string]int

	payments []ledger.FeePayment
	records  []ledger.FeeRecord

	staff []staff.Staff
}

func NewDB() *DB {
	return &DB{counters: make(map[string]int)}
}

// Reset empties every table; counters included.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.batches = nil
	db.installments = nil
	db.students = nil
	db.counters = make(map[string]int)
	db.payments = nil
	db.records = nil
	db.staff = nil
}
