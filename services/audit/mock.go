package auditsvc

import (
	"sync"

	"github.com/aprende/academia/core"
)

// Mock records entries synchronously.
type Mock struct {
	mu      sync.Mutex
	entries []core.AuditEntry
}

var _ core.Auditor = (*Mock)(nil)

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Record(entry core.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

func (m *Mock) Entries() []core.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.AuditEntry(nil), m.entries...)
}
