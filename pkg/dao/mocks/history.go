package mocks

import (
	"context"
	"sync"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/dao"
)

var _ dao.HistoryDao = &historyDaoMock{}

type historyDaoMock struct {
	mu      sync.Mutex
	nextID  int64
	entries api.ReconciliationHistoryList
}

func NewHistoryDao() *historyDaoMock {
	return &historyDaoMock{}
}

func (d *historyDaoMock) Create(ctx context.Context, entry *api.ReconciliationHistory) (*api.ReconciliationHistory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	entry.ID = d.nextID
	d.entries = append(d.entries, entry)
	return entry, nil
}

func (d *historyDaoMock) ListByResource(ctx context.Context, resourceID int64, limit, offset int) (api.ReconciliationHistoryList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Newest first, matching the database ordering.
	var matched api.ReconciliationHistoryList
	skipped := 0
	for i := len(d.entries) - 1; i >= 0; i-- {
		if d.entries[i].ResourceID != resourceID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		matched = append(matched, d.entries[i])
		if limit > 0 && len(matched) >= limit {
			break
		}
	}
	return matched, nil
}
