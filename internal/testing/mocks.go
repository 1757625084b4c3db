package testing

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/spreadscan/internal/domain"
)

// MockPriceSource is an in-memory price source for scanner and handler tests.
type MockPriceSource struct {
	mu    sync.Mutex
	rows  []domain.PriceRow
	front []domain.FrontMonthRow
	err   error
	calls int
}

// NewMockPriceSource creates a source serving the given rows.
func NewMockPriceSource(rows []domain.PriceRow) *MockPriceSource {
	return &MockPriceSource{rows: rows}
}

// SetRows replaces the served rows.
func (m *MockPriceSource) SetRows(rows []domain.PriceRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
}

// SetFrontMonth sets the reference series returned by GetFrontMonth.
func (m *MockPriceSource) SetFrontMonth(front []domain.FrontMonthRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.front = front
}

// SetError makes every call fail with err.
func (m *MockPriceSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the number of GetRows calls.
func (m *MockPriceSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// GetRows returns the rows of contract dated within [start, end].
func (m *MockPriceSource) GetRows(_ context.Context, contract string, start, end time.Time) ([]domain.PriceRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}

	var out []domain.PriceRow
	for _, r := range m.rows {
		if r.Name != contract || r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// GetFrontMonth returns the configured reference series.
func (m *MockPriceSource) GetFrontMonth(_ context.Context, _ string, _, _ time.Time) ([]domain.FrontMonthRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	return m.front, nil
}
