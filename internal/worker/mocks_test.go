package worker

import (
	"context"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/courtvision/prediction-api/internal/models"
)

// MockStatStore implements StatStore for testing
type MockStatStore struct {
	mu      sync.Mutex
	Records [][]*models.AgentEvent
}

func (m *MockStatStore) Record(ctx context.Context, events []*models.AgentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, events)
	return nil
}

func (m *MockStatStore) Usage(ctx context.Context, agents []string) ([]models.AgentUsage, error) {
	return nil, nil
}

func (m *MockStatStore) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.Records {
		n += len(r)
	}
	return n
}

// MockClickHouseConn implements driver.Conn for testing
type MockClickHouseConn struct {
	driver.Conn
	mu      sync.Mutex
	Batches []*MockBatch
	SendErr error
}

func (m *MockClickHouseConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := &MockBatch{sendErr: m.SendErr}
	m.Batches = append(m.Batches, b)
	return b, nil
}

func (m *MockClickHouseConn) SentRows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.Batches {
		if b.sent {
			n += len(b.rows)
		}
	}
	return n
}

// MockBatch implements driver.Batch
type MockBatch struct {
	driver.Batch
	rows    [][]interface{}
	sent    bool
	sendErr error
}

func (m *MockBatch) Append(v ...interface{}) error {
	m.rows = append(m.rows, v)
	return nil
}

func (m *MockBatch) Send() error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = true
	return nil
}

func (m *MockBatch) Rows() int { return len(m.rows) }
