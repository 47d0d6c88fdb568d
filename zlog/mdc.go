package zlog

import "sync"

// maxMDCLen bounds both keys and values: oversized values are truncated,
// not rejected (spec §4.7).
const maxMDCLen = 1024

// MDC is a mapped diagnostic context: a small key/value store scoped to
// one GHandle (spec §4.7 calls this per-thread; here it is per caller
// handle, see the goroutine-local-storage Open Question resolution in
// SPEC_FULL.md §7). Preserved across init-version rebuilds.
type MDC struct {
	mu     sync.RWMutex
	values map[string]string
}

func newMDC() *MDC {
	return &MDC{values: make(map[string]string)}
}

// Put stores value under key, truncating either to maxMDCLen bytes.
// Truncation is reported on the profile channel, not returned as an
// error (spec §7: "MDC errors... truncate, emit diagnostic, succeed").
func (m *MDC) Put(key, value string) {
	truncatedKey := key
	if len(truncatedKey) > maxMDCLen {
		truncatedKey = truncatedKey[:maxMDCLen]
		profileWarnf("mdc: key %q truncated to %d bytes", key, maxMDCLen)
	}
	truncatedValue := value
	if len(truncatedValue) > maxMDCLen {
		truncatedValue = truncatedValue[:maxMDCLen]
		profileWarnf("mdc: value for key %q truncated to %d bytes", truncatedKey, maxMDCLen)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[truncatedKey] = truncatedValue
}

// Get returns the value stored under key, or "" and false if absent. A
// missing key renders as the empty string from the %M(key) specifier
// (spec §4.7).
func (m *MDC) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Remove deletes key, if present.
func (m *MDC) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// Clear empties the context.
func (m *MDC) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.values)
}
