package service

import (
	"sync"
	"time"
)

// ReachabilitySnapshot is a point-in-time view of backend reachability
type ReachabilitySnapshot struct {
	Online    bool      `json:"online"`
	CheckedAt time.Time `json:"checked_at"`
	Probes    uint64    `json:"probes"`
}

// Reachability holds whether the simulation backend answered the last probe.
// Consumers only read it; TrafficClient.CheckServerStatus is the single writer.
type Reachability struct {
	mu        sync.RWMutex
	online    bool
	checkedAt time.Time
	probes    uint64
}

// NewReachability creates a store that starts offline
func NewReachability() *Reachability {
	return &Reachability{}
}

// Online reports the result of the last completed probe
func (r *Reachability) Online() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.online
}

// Snapshot returns the current state
func (r *Reachability) Snapshot() ReachabilitySnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ReachabilitySnapshot{
		Online:    r.online,
		CheckedAt: r.checkedAt,
		Probes:    r.probes,
	}
}

func (r *Reachability) record(online bool, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online = online
	r.checkedAt = at
	r.probes++
}
