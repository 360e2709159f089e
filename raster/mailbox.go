package raster

import (
	"sync"
	"time"
)

// Mailbox is a single slot hand-off between a producer goroutine and the
// frame loop. Each Put replaces the previous value and increments the
// version.
type Mailbox[T any] struct {
	mutex     sync.Mutex
	value     T
	version   uint64
	updatedAt time.Time
}

// Put replaces the mailbox content and returns the new version.
func (m *Mailbox[T]) Put(v T) uint64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.value = v
	m.version++
	m.updatedAt = time.Now()
	return m.version
}

// Get returns the current content and its version. Version 0 means nothing
// was ever put.
func (m *Mailbox[T]) Get() (T, uint64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.value, m.version
}

// Poll returns the current content when its version is greater than
// lastVersion.
func (m *Mailbox[T]) Poll(lastVersion uint64) (T, uint64, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.version <= lastVersion {
		var zero T
		return zero, lastVersion, false
	}
	return m.value, m.version, true
}

// Version returns the current version.
func (m *Mailbox[T]) Version() uint64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.version
}

// UpdatedAt returns the time of the last Put.
func (m *Mailbox[T]) UpdatedAt() time.Time {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.updatedAt
}
