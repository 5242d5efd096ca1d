// Package ntp fetches network time and decides when the weekly sync is due.
package ntp

import (
	"errors"
	"fmt"
	"sync"
	"time"

	beevik "github.com/beevik/ntp"
)

// ErrNotConnected is returned by Update while the network is down.
var ErrNotConnected = errors.New("ntp: network not connected")

// DefaultTimeout bounds one NTP query.
const DefaultTimeout = 5 * time.Second

// Client performs an NTP exchange and remembers the result.
type Client interface {
	// Update queries the server. On success EpochTime returns the new time.
	Update() error

	// EpochTime is the Unix time as of the last successful Update, advanced
	// by the time elapsed since.
	EpochTime() int64
}

// Querier is a single-server NTP client backed by github.com/beevik/ntp.
type Querier struct {
	mu        sync.Mutex
	server    string
	timeout   time.Duration
	connected func() bool
	now       func() time.Time
	query     func(host string, opt beevik.QueryOptions) (*beevik.Response, error)

	offset time.Duration
}

// NewQuerier returns a client for server. connected may be nil; when set,
// Update refuses to run while it reports false.
func NewQuerier(server string, connected func() bool) *Querier {
	return &Querier{
		server:    server,
		timeout:   DefaultTimeout,
		connected: connected,
		now:       time.Now,
		query:     beevik.QueryWithOptions,
	}
}

// SetServer changes the server used by the next Update.
func (q *Querier) SetServer(server string) {
	q.mu.Lock()
	q.server = server
	q.mu.Unlock()
}

func (q *Querier) Update() error {
	q.mu.Lock()
	server := q.server
	q.mu.Unlock()

	if q.connected != nil && !q.connected() {
		return ErrNotConnected
	}
	resp, err := q.query(server, beevik.QueryOptions{Timeout: q.timeout})
	if err != nil {
		return fmt.Errorf("query %s: %w", server, err)
	}
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("invalid response from %s: %w", server, err)
	}

	q.mu.Lock()
	q.offset = resp.ClockOffset
	q.mu.Unlock()
	return nil
}

func (q *Querier) EpochTime() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.now().Add(q.offset).Unix()
}
