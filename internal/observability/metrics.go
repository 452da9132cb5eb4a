package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters, including lifecycle counters
// for the reservation flow so conflict rates are visible without an external
// metrics backend.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64

	requestsCreated      int64
	reservationsWon      int64
	reservationConflicts int64
	remindersSent        int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for HTTP requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordRequestCreated counts a submitted flight request.
func (m *Metrics) RecordRequestCreated() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsCreated++
}

// RecordReservation counts a reservation attempt outcome. won is false when
// the conditional transition lost to another operator.
func (m *Metrics) RecordReservation(won bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if won {
		m.reservationsWon++
	} else {
		m.reservationConflicts++
	}
}

// RecordReminder counts a travel reminder delivery.
func (m *Metrics) RecordReminder() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remindersSent++
}

// Reservations returns the won/conflict counts.
func (m *Metrics) Reservations() (won, conflicts int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservationsWon, m.reservationConflicts
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
