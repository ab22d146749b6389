package service

import (
	"context"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/repository"
)

const (
	defaultPageSize int32 = 20
	maxPageSize     int32 = 100
)

type queryService struct {
	agreements   repository.RentalAgreementRepository
	earlyReturns repository.EarlyReturnRepository
	extensions   repository.ExtensionRepository
}

func NewQueryService(
	agreements repository.RentalAgreementRepository,
	earlyReturns repository.EarlyReturnRepository,
	extensions repository.ExtensionRepository,
) QueryService {
	return &queryService{agreements: agreements, earlyReturns: earlyReturns, extensions: extensions}
}

// normalizePage makes page at least 1 and clamps limit to [1, maxPageSize];
// a zero limit means the default page size.
func normalizePage(page, limit int32) (int32, int32) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit == 0:
		limit = defaultPageSize
	case limit < 1:
		limit = 1
	case limit > maxPageSize:
		limit = maxPageSize
	}
	return page, limit
}

// CANCELLED requests are hidden unless asked for by name.
func earlyReturnFilter(statuses []domain.EarlyReturnStatus) []domain.EarlyReturnStatus {
	if len(statuses) > 0 {
		return statuses
	}
	return []domain.EarlyReturnStatus{
		domain.EarlyReturnStatusPending,
		domain.EarlyReturnStatusAcknowledged,
		domain.EarlyReturnStatusReturned,
		domain.EarlyReturnStatusCompleted,
		domain.EarlyReturnStatusAutoCompleted,
	}
}

func extensionFilter(statuses []domain.ExtensionStatus) []domain.ExtensionStatus {
	if len(statuses) > 0 {
		return statuses
	}
	return []domain.ExtensionStatus{
		domain.ExtensionStatusPending,
		domain.ExtensionStatusApproved,
		domain.ExtensionStatusRejected,
	}
}

func (s *queryService) ListEarlyReturnsForRenter(ctx context.Context, renterID string, page, limit int32, statuses []domain.EarlyReturnStatus) ([]domain.EarlyReturnRequest, int32, error) {
	page, limit = normalizePage(page, limit)
	logger.EnterMethod("queryService.ListEarlyReturnsForRenter", "renterID", renterID, "page", page, "limit", limit)
	items, total, err := s.earlyReturns.ListByRenter(ctx, renterID, earlyReturnFilter(statuses), limit, (page-1)*limit)
	if err != nil {
		logger.ExitMethodWithError("queryService.ListEarlyReturnsForRenter", err)
		return nil, 0, err
	}
	logger.ExitMethod("queryService.ListEarlyReturnsForRenter", "count", len(items), "total", total)
	return items, total, nil
}

func (s *queryService) ListEarlyReturnsForOwner(ctx context.Context, ownerID string, page, limit int32, statuses []domain.EarlyReturnStatus) ([]domain.EarlyReturnRequest, int32, error) {
	page, limit = normalizePage(page, limit)
	logger.EnterMethod("queryService.ListEarlyReturnsForOwner", "ownerID", ownerID, "page", page, "limit", limit)
	items, total, err := s.earlyReturns.ListByOwner(ctx, ownerID, earlyReturnFilter(statuses), limit, (page-1)*limit)
	if err != nil {
		logger.ExitMethodWithError("queryService.ListEarlyReturnsForOwner", err)
		return nil, 0, err
	}
	logger.ExitMethod("queryService.ListEarlyReturnsForOwner", "count", len(items), "total", total)
	return items, total, nil
}

func (s *queryService) GetEarlyReturn(ctx context.Context, actorID, requestID string) (*domain.EarlyReturnRequest, error) {
	req, err := s.earlyReturns.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.IsDeleted() {
		return nil, domain.NewNotFound("early return request", requestID)
	}
	if actorID != req.RenterID && actorID != req.OwnerID {
		return nil, domain.NewUnauthorized("only the renter or owner can view this request")
	}
	return req, nil
}

func (s *queryService) ListExtensionsForRenter(ctx context.Context, renterID string, page, limit int32, statuses []domain.ExtensionStatus) ([]domain.ExtensionRequest, int32, error) {
	page, limit = normalizePage(page, limit)
	logger.EnterMethod("queryService.ListExtensionsForRenter", "renterID", renterID, "page", page, "limit", limit)
	items, total, err := s.extensions.ListByRenter(ctx, renterID, extensionFilter(statuses), limit, (page-1)*limit)
	if err != nil {
		logger.ExitMethodWithError("queryService.ListExtensionsForRenter", err)
		return nil, 0, err
	}
	logger.ExitMethod("queryService.ListExtensionsForRenter", "count", len(items), "total", total)
	return items, total, nil
}

func (s *queryService) ListExtensionsForOwner(ctx context.Context, ownerID string, page, limit int32, statuses []domain.ExtensionStatus) ([]domain.ExtensionRequest, int32, error) {
	page, limit = normalizePage(page, limit)
	logger.EnterMethod("queryService.ListExtensionsForOwner", "ownerID", ownerID, "page", page, "limit", limit)
	items, total, err := s.extensions.ListByOwner(ctx, ownerID, extensionFilter(statuses), limit, (page-1)*limit)
	if err != nil {
		logger.ExitMethodWithError("queryService.ListExtensionsForOwner", err)
		return nil, 0, err
	}
	logger.ExitMethod("queryService.ListExtensionsForOwner", "count", len(items), "total", total)
	return items, total, nil
}

func (s *queryService) GetExtension(ctx context.Context, actorID, requestID string) (*domain.ExtensionRequest, error) {
	req, err := s.extensions.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actorID != req.RenterID && actorID != req.OwnerID {
		return nil, domain.NewUnauthorized("only the renter or owner can view this extension")
	}
	return req, nil
}

func (s *queryService) GetSubOrder(ctx context.Context, actorID, subOrderID string) (*domain.RentalAgreement, error) {
	agreement, err := s.agreements.GetByID(ctx, subOrderID)
	if err != nil {
		return nil, err
	}
	if actorID != agreement.RenterID && actorID != agreement.OwnerID {
		return nil, domain.NewUnauthorized("only the renter or owner can view this sub-order")
	}
	return agreement, nil
}
