package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Monitor collects pipeline counters and a bounded ring of recent alerts for
// the /status endpoint. All methods are safe for concurrent use.
type Monitor struct {
	started time.Time

	received   atomic.Int64
	duplicates atomic.Int64
	queued     atomic.Int64
	shed       atomic.Int64
	processed  atomic.Int64
	replies    atomic.Int64
	fallbacks  atomic.Int64
	suppressed atomic.Int64
	failures   atomic.Int64
	dropped    atomic.Int64

	mu       sync.Mutex
	alerts   []Alert
	capacity int
	next     int
	full     bool
}

// Alert is one operator-visible incident (exhausted retries, queue shed, ...).
type Alert struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Snapshot is the /status view of the monitor.
type Snapshot struct {
	UptimeSeconds int64   `json:"uptime_seconds"`
	Received      int64   `json:"received"`
	Duplicates    int64   `json:"duplicates"`
	Queued        int64   `json:"queued"`
	Shed          int64   `json:"shed"`
	Processed     int64   `json:"processed"`
	Replies       int64   `json:"replies"`
	Fallbacks     int64   `json:"fallbacks"`
	Suppressed    int64   `json:"suppressed"`
	Failures      int64   `json:"failures"`
	Dropped       int64   `json:"dropped"`
	Alerts        []Alert `json:"alerts"`
}

// NewMonitor creates a Monitor with the given alert ring capacity.
func NewMonitor(alertCapacity int) *Monitor {
	if alertCapacity <= 0 {
		alertCapacity = 100
	}
	return &Monitor{
		started:  time.Now(),
		alerts:   make([]Alert, alertCapacity),
		capacity: alertCapacity,
	}
}

func (m *Monitor) Received()   { m.received.Add(1) }
func (m *Monitor) Duplicate()  { m.duplicates.Add(1) }
func (m *Monitor) Queued()     { m.queued.Add(1) }
func (m *Monitor) Shed()       { m.shed.Add(1) }
func (m *Monitor) Processed()  { m.processed.Add(1) }
func (m *Monitor) Reply()      { m.replies.Add(1) }
func (m *Monitor) Fallback()   { m.fallbacks.Add(1) }
func (m *Monitor) Suppressed() { m.suppressed.Add(1) }
func (m *Monitor) Failure()    { m.failures.Add(1) }
func (m *Monitor) Dropped()    { m.dropped.Add(1) }

// AddAlert records an operator-visible alert, overwriting the oldest entry
// once the ring is full.
func (m *Monitor) AddAlert(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.alerts[m.next] = Alert{Time: time.Now(), Message: fmt.Sprintf(format, args...)}
	m.next = (m.next + 1) % m.capacity
	if m.next == 0 {
		m.full = true
	}
}

// SnapshotNow returns a copy of all counters and alerts, oldest alert first.
func (m *Monitor) SnapshotNow() Snapshot {
	m.mu.Lock()
	var alerts []Alert
	if m.full {
		alerts = append(alerts, m.alerts[m.next:]...)
		alerts = append(alerts, m.alerts[:m.next]...)
	} else {
		alerts = append(alerts, m.alerts[:m.next]...)
	}
	m.mu.Unlock()

	return Snapshot{
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
		Received:      m.received.Load(),
		Duplicates:    m.duplicates.Load(),
		Queued:        m.queued.Load(),
		Shed:          m.shed.Load(),
		Processed:     m.processed.Load(),
		Replies:       m.replies.Load(),
		Fallbacks:     m.fallbacks.Load(),
		Suppressed:    m.suppressed.Load(),
		Failures:      m.failures.Load(),
		Dropped:       m.dropped.Load(),
		Alerts:        alerts,
	}
}
