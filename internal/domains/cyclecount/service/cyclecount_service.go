package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/cyclecount/model"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/cyclecount/repository"
	invModel "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/model"
	invRepo "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/repository"
	invService "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/service"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/tenant"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/logger"
)

type ServiceInterface interface {
	CreateSession(ctx context.Context, tc tenant.Context, req model.CreateSessionRequest) (*model.SessionResponse, error)
	GetSession(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.SessionResponse, error)
	SubmitCounts(ctx context.Context, tc tenant.Context, id uuid.UUID, req model.SubmitCountsRequest) (*model.Session, error)
	GenerateVarianceReport(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.VarianceReport, error)
	CompleteSession(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.CompletionResult, error)
}

type CycleCountService struct {
	repo       repository.RepositoryInterface
	inventory  invRepo.RepositoryInterface
	ledger     invService.ServiceInterface
	thresholds invModel.VarianceThresholds
}

func NewService(repo repository.RepositoryInterface, inventory invRepo.RepositoryInterface, ledger invService.ServiceInterface) ServiceInterface {
	return &CycleCountService{
		repo:       repo,
		inventory:  inventory,
		ledger:     ledger,
		thresholds: invModel.DefaultVarianceThresholds(),
	}
}

// CreateSession starts a count. FULL sessions load every inventory row in
// the warehouse; PARTIAL sessions require an explicit SKU list. lock_items
// flags the referenced rows for the session's duration.
func (s *CycleCountService) CreateSession(ctx context.Context, tc tenant.Context, req model.CreateSessionRequest) (*model.SessionResponse, error) {
	if !tc.Valid() {
		return nil, invModel.ErrMissingTenant
	}

	if _, err := s.inventory.GetWarehouse(ctx, tc.OrganizationID, req.WarehouseID); err != nil {
		return nil, err
	}

	var items []invModel.InventoryItem
	var err error
	switch req.Type {
	case model.SessionFull:
		items, err = s.inventory.ListInventoryByWarehouse(ctx, tc.OrganizationID, req.WarehouseID)
	case model.SessionPartial:
		if len(req.SKUs) == 0 {
			return nil, model.ErrSKUListRequired
		}
		items, err = s.inventory.GetInventoryItems(ctx, tc.OrganizationID, req.WarehouseID, req.SKUs)
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, model.ErrNoItemsInSession
	}

	skus := make([]string, len(items))
	for i, item := range items {
		skus[i] = item.SKU
	}

	session := &model.Session{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		WarehouseID:    req.WarehouseID,
		Type:           req.Type,
		IsBlind:        req.IsBlind,
		LockItems:      req.LockItems,
		Status:         model.SessionInProgress,
		ItemSKUs:       skus,
		Counts:         map[string]int{},
		CreatedBy:      tc.UserID,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if req.LockItems {
		if err := s.inventory.SetItemsLocked(ctx, tc.OrganizationID, req.WarehouseID, skus, true); err != nil {
			logger.Error("failed to lock session items", err)
		}
	}

	return s.sessionResponse(session, items), nil
}

func (s *CycleCountService) GetSession(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.SessionResponse, error) {
	if !tc.Valid() {
		return nil, invModel.ErrMissingTenant
	}

	session, err := s.repo.GetByID(ctx, tc.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	items, err := s.inventory.GetInventoryItems(ctx, tc.OrganizationID, session.WarehouseID, session.ItemSKUs)
	if err != nil {
		return nil, err
	}

	return s.sessionResponse(session, items), nil
}

// sessionResponse withholds expected quantities in blind mode.
func (s *CycleCountService) sessionResponse(session *model.Session, items []invModel.InventoryItem) *model.SessionResponse {
	views := make([]model.SessionItem, len(items))
	for i, item := range items {
		views[i] = model.SessionItem{SKU: item.SKU}
		if !session.IsBlind {
			qty := item.Quantity
			views[i].Expected = &qty
		}
	}
	return &model.SessionResponse{Session: session, Items: views}
}

// SubmitCounts merges incoming entries by SKU; last write wins.
func (s *CycleCountService) SubmitCounts(ctx context.Context, tc tenant.Context, id uuid.UUID, req model.SubmitCountsRequest) (*model.Session, error) {
	if !tc.Valid() {
		return nil, invModel.ErrMissingTenant
	}

	session, err := s.repo.GetByID(ctx, tc.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionCompleted {
		return nil, model.ErrSessionCompleted
	}

	counts := make(map[string]int, len(req.Counts))
	for _, entry := range req.Counts {
		if !session.InScope(entry.SKU) {
			return nil, fmt.Errorf("%w: %s", model.ErrSKUNotInSession, entry.SKU)
		}
		if entry.CountedQuantity < 0 {
			return nil, invModel.ErrInvalidQuantity
		}
		counts[entry.SKU] = entry.CountedQuantity
	}

	if err := s.repo.MergeCounts(ctx, tc.OrganizationID, id, counts); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, tc.OrganizationID, id)
}

// GenerateVarianceReport compares submitted counts against the persisted
// expected quantities. It can run at any time during the session.
func (s *CycleCountService) GenerateVarianceReport(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.VarianceReport, error) {
	if !tc.Valid() {
		return nil, invModel.ErrMissingTenant
	}

	session, err := s.repo.GetByID(ctx, tc.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	items, err := s.inventory.GetInventoryItems(ctx, tc.OrganizationID, session.WarehouseID, session.ItemSKUs)
	if err != nil {
		return nil, err
	}
	expectedBySKU := make(map[string]int, len(items))
	for _, item := range items {
		expectedBySKU[item.SKU] = item.Quantity
	}

	report := &model.VarianceReport{
		SessionID:  session.ID,
		TotalItems: len(session.ItemSKUs),
	}

	for _, sku := range session.ItemSKUs {
		counted, ok := session.Counts[sku]
		if !ok {
			continue
		}
		expected := expectedBySKU[sku]
		variance, percent := invModel.ComputeVariance(expected, counted)

		report.PerItem = append(report.PerItem, model.VarianceReportItem{
			SKU:             sku,
			Expected:        expected,
			Counted:         counted,
			Variance:        variance,
			VariancePercent: percent,
			VarianceLevel:   s.thresholds.LevelFor(percent),
		})

		if variance != 0 {
			report.ItemsWithVariance++
		}
		report.TotalVariance += variance
		if variance < 0 {
			report.AbsoluteVariance -= variance
		} else {
			report.AbsoluteVariance += variance
		}
	}

	return report, nil
}

// CompleteSession applies every submitted count as an absolute stock update
// with reason code CYCLE_COUNT, marks the session completed, and releases
// item locks.
func (s *CycleCountService) CompleteSession(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.CompletionResult, error) {
	if !tc.Valid() {
		return nil, invModel.ErrMissingTenant
	}

	session, err := s.repo.GetByID(ctx, tc.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionCompleted {
		return nil, model.ErrSessionCompleted
	}

	// Item locks block ledger writes, so release them before applying.
	if session.LockItems {
		if err := s.inventory.SetItemsLocked(ctx, tc.OrganizationID, session.WarehouseID, session.ItemSKUs, false); err != nil {
			return nil, fmt.Errorf("failed to release item locks: %w", err)
		}
	}

	applied := make([]invModel.StockUpdateResult, 0, len(session.Counts))
	for _, sku := range session.ItemSKUs {
		counted, ok := session.Counts[sku]
		if !ok {
			continue
		}

		result, err := s.ledger.UpdateStock(ctx, tc, invModel.StockUpdateRequest{
			WarehouseID: session.WarehouseID,
			SKU:         sku,
			Mode:        invModel.UpdateModeAbsolute,
			Quantity:    counted,
			ReasonCode:  invModel.AuditActionCycleCount,
			Notes:       fmt.Sprintf("cycle count session %s", session.ID),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to apply count for %s: %w", sku, err)
		}
		applied = append(applied, *result)
	}

	if err := s.repo.Complete(ctx, tc.OrganizationID, id); err != nil {
		return nil, err
	}

	session, err = s.repo.GetByID(ctx, tc.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	return &model.CompletionResult{Session: session, Applied: applied}, nil
}
