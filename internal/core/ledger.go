package core

import (
	"encoding/json"
	"time"
)

// Ledger is the ordered record of one client's recent submission times.
// Entries are millisecond Unix timestamps.
type Ledger struct {
	Entries []int64
}

// DecodeLedger parses the stored JSON array of millisecond timestamps.
// Empty input or malformed data yields an empty ledger.
func DecodeLedger(raw string) (Ledger, error) {
	if raw == "" {
		return Ledger{}, nil
	}
	var entries []int64
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return Ledger{}, err
	}
	return Ledger{Entries: entries}, nil
}

// Encode renders the ledger as a JSON array of millisecond timestamps.
func (l Ledger) Encode() string {
	entries := l.Entries
	if entries == nil {
		entries = []int64{}
	}
	data, _ := json.Marshal(entries)
	return string(data)
}

// Recent returns the entries newer than window relative to now.
func (l Ledger) Recent(now time.Time, window time.Duration) []int64 {
	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()

	recent := make([]int64, 0, len(l.Entries))
	for _, ts := range l.Entries {
		if nowMs-ts < windowMs {
			recent = append(recent, ts)
		}
	}
	return recent
}

// Admit filters stale entries and appends now when fewer than max remain.
// A denied admission leaves the ledger untouched.
func (l *Ledger) Admit(now time.Time, window time.Duration, max int) bool {
	recent := l.Recent(now, window)
	if len(recent) >= max {
		return false
	}
	l.Entries = append(recent, now.UnixMilli())
	return true
}

// Times returns the entries as UTC times.
func (l Ledger) Times() []time.Time {
	out := make([]time.Time, 0, len(l.Entries))
	for _, ts := range l.Entries {
		out = append(out, time.UnixMilli(ts).UTC())
	}
	return out
}
