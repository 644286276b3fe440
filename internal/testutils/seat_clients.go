package testutils

import (
	"fmt"
	"sync"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// MockSeatClients resolves seats to clients by seat id. Seats without an
// entry fail with ports.ErrNoClient.
type MockSeatClients struct {
	mu      sync.Mutex
	clients map[domain.SeatID]ports.LLMClient
	lookups map[domain.SeatID]int
}

var _ ports.SeatClients = (*MockSeatClients)(nil)

// NewMockSeatClients returns an empty resolver.
func NewMockSeatClients() *MockSeatClients {
	return &MockSeatClients{clients: map[domain.SeatID]ports.LLMClient{}, lookups: map[domain.SeatID]int{}}
}

// Set assigns a client to a seat id.
func (m *MockSeatClients) Set(id domain.SeatID, c ports.LLMClient) *MockSeatClients {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[id] = c
	return m
}

// ClientFor implements ports.SeatClients.
func (m *MockSeatClients) ClientFor(seat domain.Seat) (ports.LLMClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups[seat.ID]++
	c, ok := m.clients[seat.ID]
	if !ok {
		return nil, fmt.Errorf("seat %d: %w", seat.ID, ports.ErrNoClient)
	}
	return c, nil
}

// Lookups reports how often a seat was resolved.
func (m *MockSeatClients) Lookups(id domain.SeatID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups[id]
}
