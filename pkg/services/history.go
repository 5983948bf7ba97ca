package services

import (
	"context"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/errors"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryService exposes the reconciliation audit trail of a resource.
type HistoryService interface {
	// ListByResource returns history entries newest first, skipping offset
	// entries.
	ListByResource(ctx context.Context, resourceID int64, limit, offset int) (api.ReconciliationHistoryList, *errors.ServiceError)
}

func NewHistoryService(historyDao dao.HistoryDao, resourceDao dao.ResourceDao) HistoryService {
	return &sqlHistoryService{
		historyDao:  historyDao,
		resourceDao: resourceDao,
	}
}

var _ HistoryService = &sqlHistoryService{}

type sqlHistoryService struct {
	historyDao  dao.HistoryDao
	resourceDao dao.ResourceDao
}

func (s *sqlHistoryService) ListByResource(ctx context.Context, resourceID int64, limit, offset int) (api.ReconciliationHistoryList, *errors.ServiceError) {
	// Deleting resources still expose their trail.
	if _, err := s.resourceDao.GetIncludingDeleted(ctx, resourceID); err != nil {
		return nil, handleGetError("Resource", "id", resourceID, err)
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.historyDao.ListByResource(ctx, resourceID, limit, offset)
	if err != nil {
		return nil, errors.GeneralError("Unable to list reconciliation history: %s", err)
	}
	return entries, nil
}
