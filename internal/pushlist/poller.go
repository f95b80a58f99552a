// Package pushlist keeps one page of a sensor's push rules fresh. Push
// counters change server-side between user actions, so the poller re-fetches
// the page it is showing on a fixed cadence and supports an out-of-cadence
// forced refresh after a mutation.
package pushlist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opensensing/pushdash/internal/apiclient"
)

const (
	// DefaultPollInterval is the cadence of the background refresh.
	DefaultPollInterval = time.Minute

	// maxPageSize bounds the page window so a huge rule set cannot blow up
	// the payload; smaller result sets load in full.
	maxPageSize = 200
)

// PageSize is the effective page window for a result set: the server's total
// entry count capped at 200 rows.
func PageSize(totalEntries int) int {
	if totalEntries < 0 {
		return 0
	}
	if totalEntries > maxPageSize {
		return maxPageSize
	}
	return totalEntries
}

// Client fetches one page of push rules.
type Client interface {
	PushSettings(ctx context.Context, sensorID int64, page int) (apiclient.PushSettingsPage, error)
}

// Snapshot is the poller's externally visible state after each transition.
type Snapshot struct {
	Rows       []apiclient.PushRule
	Pagination apiclient.Pagination
	Loading    bool
	Loaded     bool
	Err        error
}

// Empty reports the distinct no-rows state: a completed load that returned
// nothing. It is false while the first load is still outstanding.
func (s Snapshot) Empty() bool {
	return s.Loaded && len(s.Rows) == 0
}

// Poller owns exactly one optional pending refresh timer. Arming a new timer
// always cancels the previous one, and Close cancels on every exit path, so
// two live timers per instance are impossible.
type Poller struct {
	client   Client
	sensorID int64
	interval time.Duration
	logger   *slog.Logger
	notify   func(Snapshot)

	mu      sync.Mutex
	timer   *time.Timer
	page    int
	loading bool
	loaded  bool
	closed  bool
	current apiclient.PushSettingsPage
	lastErr error
}

// New builds a poller for one sensor. notify receives a snapshot after every
// state transition and may be nil. A non-positive interval falls back to
// DefaultPollInterval.
func New(client Client, sensorID int64, interval time.Duration, logger *slog.Logger, notify func(Snapshot)) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		client:   client,
		sensorID: sensorID,
		interval: interval,
		logger:   logger,
		notify:   notify,
		page:     1,
	}
}

// Load fetches one page of rules. Pages are 1-based; UI pagination controls
// counting from zero must add one before calling. The pending refresh timer
// is cancelled before the fetch starts so loads never overlap, and a load
// already in flight suppresses the request.
func (p *Poller) Load(page int) {
	if page < 1 {
		page = 1
	}

	p.mu.Lock()
	if p.closed || p.loading {
		p.mu.Unlock()
		return
	}
	p.stopTimerLocked()
	p.page = page
	p.loading = true
	p.mu.Unlock()

	p.emit()
	go p.fetch(page)
}

// Refresh reloads the current page immediately, without waiting for the next
// tick. The form controller calls this after a save or delete has been
// acknowledged, so the refresh is sequenced strictly after the write.
func (p *Poller) Refresh() {
	p.mu.Lock()
	page := p.page
	p.mu.Unlock()
	p.Load(page)
}

// Page is the 1-based page the poller currently tracks.
func (p *Poller) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// Snapshot returns the current state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Pause cancels the pending refresh timer without tearing the poller down.
// No further fetches happen until the next Load or Refresh, which resumes
// the cycle. Used while the session is unauthorized, where re-issuing the
// failing fetch every tick would be pointless.
func (p *Poller) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimerLocked()
}

// Close cancels the pending timer and marks the poller torn down. In-flight
// requests are not interrupted; their late completions become no-ops. Close
// is idempotent.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimerLocked()
	p.closed = true
}

func (p *Poller) fetch(page int) {
	result, err := p.client.PushSettings(context.Background(), p.sensorID, page)

	p.mu.Lock()
	if p.closed {
		// The consumer tore down while the request was in flight.
		p.mu.Unlock()
		return
	}
	p.loading = false
	if err != nil {
		p.lastErr = err
		p.logger.Error("push settings load failed", "sensor_id", p.sensorID, "page", page, "error", err)
	} else {
		p.current = result
		p.loaded = true
		p.lastErr = nil
	}
	// Schedule the next tick even after a failure; a single failed fetch
	// must not kill the polling loop.
	p.stopTimerLocked()
	p.timer = time.AfterFunc(p.interval, func() { p.Load(p.currentPage()) })
	p.mu.Unlock()

	p.emit()
}

func (p *Poller) currentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

func (p *Poller) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Poller) snapshotLocked() Snapshot {
	return Snapshot{
		Rows:       p.current.Rows,
		Pagination: p.current.Pagination,
		Loading:    p.loading,
		Loaded:     p.loaded,
		Err:        p.lastErr,
	}
}

func (p *Poller) emit() {
	if p.notify == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	snapshot := p.snapshotLocked()
	p.mu.Unlock()
	p.notify(snapshot)
}
