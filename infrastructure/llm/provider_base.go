package llm

import "sync"

// modelHolder gives providers a concurrency-safe model name.
type modelHolder struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the model the provider currently sends requests to.
func (m *modelHolder) GetModel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.model
}

// SetModel switches the model used by subsequent requests.
func (m *modelHolder) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
}
