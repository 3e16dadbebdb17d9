package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/cyclecount/model"
	invModel "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/model"
	invRepo "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/repository"
	invService "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/service"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/events"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/tenant"
)

// ========================================
// FAKES
// ========================================

type itemKey struct {
	warehouseID uuid.UUID
	sku         string
}

type fakeSessionRepo struct {
	sessions map[uuid.UUID]*model.Session
}

func (f *fakeSessionRepo) Create(_ context.Context, s *model.Session) error {
	s.CreatedAt = time.Now()
	copied := *s
	copied.Counts = cloneCounts(s.Counts)
	f.sessions[s.ID] = &copied
	return nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, orgID string, id uuid.UUID) (*model.Session, error) {
	s, ok := f.sessions[id]
	if !ok || s.OrganizationID != orgID {
		return nil, model.ErrSessionNotFound
	}
	copied := *s
	copied.Counts = cloneCounts(s.Counts)
	return &copied, nil
}

func (f *fakeSessionRepo) MergeCounts(_ context.Context, orgID string, id uuid.UUID, counts map[string]int) error {
	s, ok := f.sessions[id]
	if !ok || s.OrganizationID != orgID {
		return model.ErrSessionNotFound
	}
	if s.Status != model.SessionInProgress {
		return model.ErrSessionCompleted
	}
	for sku, qty := range counts {
		s.Counts[sku] = qty
	}
	return nil
}

func (f *fakeSessionRepo) Complete(_ context.Context, orgID string, id uuid.UUID) error {
	s, ok := f.sessions[id]
	if !ok || s.OrganizationID != orgID {
		return model.ErrSessionNotFound
	}
	if s.Status != model.SessionInProgress {
		return model.ErrSessionCompleted
	}
	now := time.Now()
	s.Status = model.SessionCompleted
	s.CompletedAt = &now
	return nil
}

func cloneCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// fakeInventoryRepo backs both the cycle count service and the real
// inventory ledger service used for completion.
type fakeInventoryRepo struct {
	invRepo.RepositoryInterface
	mu         sync.Mutex
	warehouses map[uuid.UUID]string
	items      map[itemKey]*invModel.InventoryItem
	audit      []invModel.AuditLogEntry
}

func (f *fakeInventoryRepo) GetWarehouse(_ context.Context, orgID string, id uuid.UUID) (*invModel.Warehouse, error) {
	org, ok := f.warehouses[id]
	if !ok || org != orgID {
		return nil, invModel.ErrWarehouseNotFound
	}
	return &invModel.Warehouse{ID: id, OrganizationID: orgID}, nil
}

func (f *fakeInventoryRepo) GetInventoryItem(_ context.Context, orgID string, warehouseID uuid.UUID, sku string) (*invModel.InventoryItem, error) {
	item, ok := f.items[itemKey{warehouseID, sku}]
	if !ok || item.OrganizationID != orgID {
		return nil, invModel.NewInventoryNotFoundError(warehouseID, sku)
	}
	copied := *item
	return &copied, nil
}

func (f *fakeInventoryRepo) ListInventoryByWarehouse(_ context.Context, orgID string, warehouseID uuid.UUID) ([]invModel.InventoryItem, error) {
	items := make([]invModel.InventoryItem, 0)
	for _, item := range f.items {
		if item.OrganizationID == orgID && item.WarehouseID == warehouseID {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (f *fakeInventoryRepo) GetInventoryItems(_ context.Context, orgID string, warehouseID uuid.UUID, skus []string) ([]invModel.InventoryItem, error) {
	items := make([]invModel.InventoryItem, 0, len(skus))
	for _, sku := range skus {
		if item, ok := f.items[itemKey{warehouseID, sku}]; ok && item.OrganizationID == orgID {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (f *fakeInventoryRepo) SetItemsLocked(_ context.Context, orgID string, warehouseID uuid.UUID, skus []string, locked bool) error {
	for _, sku := range skus {
		if item, ok := f.items[itemKey{warehouseID, sku}]; ok && item.OrganizationID == orgID {
			item.IsLocked = locked
		}
	}
	return nil
}

func (f *fakeInventoryRepo) ApplyQuantity(_ context.Context, orgID string, warehouseID uuid.UUID, sku string, newQuantity int) (*invRepo.AppliedUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := itemKey{warehouseID, sku}
	item, ok := f.items[key]
	if !ok {
		item = &invModel.InventoryItem{ID: uuid.New(), OrganizationID: orgID, WarehouseID: warehouseID, SKU: sku}
		f.items[key] = item
	}
	if newQuantity < item.ReservedQuantity {
		return nil, invModel.ErrReservedExceedsQuantity
	}
	previous := item.Quantity
	item.Quantity = newQuantity
	return &invRepo.AppliedUpdate{
		WarehouseID: warehouseID, SKU: sku,
		PreviousQuantity: previous, NewQuantity: newQuantity,
	}, nil
}

func (f *fakeInventoryRepo) AppendAudit(_ context.Context, entry *invModel.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audit = append(f.audit, *entry)
	return nil
}

// ========================================
// SETUP
// ========================================

type fixture struct {
	inv *fakeInventoryRepo
	svc ServiceInterface
	wh  uuid.UUID
}

func setup(t *testing.T) *fixture {
	t.Helper()

	wh := uuid.New()
	inv := &fakeInventoryRepo{
		warehouses: map[uuid.UUID]string{wh: "org-1"},
		items:      make(map[itemKey]*invModel.InventoryItem),
	}

	for sku, qty := range map[string]int{"SKU-001": 100, "SKU-002": 40, "SKU-003": 0} {
		inv.items[itemKey{wh, sku}] = &invModel.InventoryItem{
			ID: uuid.New(), OrganizationID: "org-1", WarehouseID: wh,
			SKU: sku, Quantity: qty,
		}
	}

	sessions := &fakeSessionRepo{sessions: make(map[uuid.UUID]*model.Session)}
	ledger := invService.NewService(inv, events.NopPublisher{})
	svc := NewService(sessions, inv, ledger)

	return &fixture{inv: inv, svc: svc, wh: wh}
}

func counterTenant() tenant.Context {
	return tenant.Context{OrganizationID: "org-1", UserID: uuid.New(), Role: tenant.RoleStaff}
}

// ========================================
// TESTS
// ========================================

func TestCreateSession_FullLoadsAllItems(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	resp, err := fx.svc.CreateSession(ctx, counterTenant(), model.CreateSessionRequest{
		WarehouseID: fx.wh,
		Type:        model.SessionFull,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 3)
	assert.Equal(t, model.SessionInProgress, resp.Session.Status)

	// Expected quantities visible outside blind mode.
	for _, item := range resp.Items {
		assert.NotNil(t, item.Expected)
	}
}

func TestCreateSession_PartialRequiresSKUs(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	_, err := fx.svc.CreateSession(ctx, counterTenant(), model.CreateSessionRequest{
		WarehouseID: fx.wh,
		Type:        model.SessionPartial,
	})
	assert.ErrorIs(t, err, model.ErrSKUListRequired)

	resp, err := fx.svc.CreateSession(ctx, counterTenant(), model.CreateSessionRequest{
		WarehouseID: fx.wh,
		Type:        model.SessionPartial,
		SKUs:        []string{"SKU-001", "SKU-002"},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
}

func TestCreateSession_BlindHidesExpected(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	resp, err := fx.svc.CreateSession(ctx, counterTenant(), model.CreateSessionRequest{
		WarehouseID: fx.wh,
		Type:        model.SessionFull,
		IsBlind:     true,
	})
	require.NoError(t, err)

	for _, item := range resp.Items {
		assert.Nil(t, item.Expected, "blind sessions must not expose expected quantities")
	}
}

func TestCreateSession_LockItems(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	_, err := fx.svc.CreateSession(ctx, counterTenant(), model.CreateSessionRequest{
		WarehouseID: fx.wh,
		Type:        model.SessionPartial,
		SKUs:        []string{"SKU-001"},
		LockItems:   true,
	})
	require.NoError(t, err)

	assert.True(t, fx.inv.items[itemKey{fx.wh, "SKU-001"}].IsLocked)
	assert.False(t, fx.inv.items[itemKey{fx.wh, "SKU-002"}].IsLocked)
}

func TestSubmitCounts_MergeLastWriteWins(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	tc := counterTenant()

	resp, err := fx.svc.CreateSession(ctx, tc, model.CreateSessionRequest{
		WarehouseID: fx.wh,
		Type:        model.SessionPartial,
		SKUs:        []string{"SKU-001", "SKU-002"},
	})
	require.NoError(t, err)
	id := resp.Session.ID

	_, err = fx.svc.SubmitCounts(ctx, tc, id, model.SubmitCountsRequest{
		Counts: []model.CountEntry{
			{SKU: "SKU-001", CountedQuantity: 95},
			{SKU: "SKU-002", CountedQuantity: 40},
		},
	})
	require.NoError(t, err)

	// Re-count of SKU-001 overwrites the earlier entry.
	session, err := fx.svc.SubmitCounts(ctx, tc, id, model.SubmitCountsRequest{
		Counts: []model.CountEntry{{SKU: "SKU-001", CountedQuantity: 97}},
	})
	require.NoError(t, err)

	assert.Equal(t, 97, session.Counts["SKU-001"])
	assert.Equal(t, 40, session.Counts["SKU-002"])
}

func TestSubmitCounts_OutOfScopeSKU(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	tc := counterTenant()

	resp, err := fx.svc.CreateSession(ctx, tc, model.CreateSessionRequest{
		WarehouseID: fx.wh,
		Type:        model.SessionPartial,
		SKUs:        []string{"SKU-001"},
	})
	require.NoError(t, err)

	_, err = fx.svc.SubmitCounts(ctx, tc, resp.Session.ID, model.SubmitCountsRequest{
		Counts: []model.CountEntry{{SKU: "SKU-999", CountedQuantity: 5}},
	})
	assert.ErrorIs(t, err, model.ErrSKUNotInSession)
}

func TestVarianceReport(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	tc := counterTenant()

	resp, err := fx.svc.CreateSession(ctx, tc, model.CreateSessionRequest{
		WarehouseID: fx.wh,
		Type:        model.SessionPartial,
		SKUs:        []string{"SKU-001", "SKU-002"},
	})
	require.NoError(t, err)
	id := resp.Session.ID

	// SKU-001: 100 -> 90 (-10%), SKU-002: 40 -> 40 (0%).
	_, err = fx.svc.SubmitCounts(ctx, tc, id, model.SubmitCountsRequest{
		Counts: []model.CountEntry{
			{SKU: "SKU-001", CountedQuantity: 90},
			{SKU: "SKU-002", CountedQuantity: 40},
		},
	})
	require.NoError(t, err)

	report, err := fx.svc.GenerateVarianceReport(ctx, tc, id)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalItems)
	assert.Equal(t, 1, report.ItemsWithVariance)
	assert.Equal(t, -10, report.TotalVariance)
	assert.Equal(t, 10, report.AbsoluteVariance)
	require.Len(t, report.PerItem, 2)

	bySKU := make(map[string]model.VarianceReportItem)
	for _, item := range report.PerItem {
		bySKU[item.SKU] = item
	}
	assert.Equal(t, invModel.VarianceWarning, bySKU["SKU-001"].VarianceLevel) // exactly -10%
	assert.Equal(t, invModel.VarianceOK, bySKU["SKU-002"].VarianceLevel)
}

func TestCompleteSession_AppliesAbsoluteUpdates(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	tc := counterTenant()

	resp, err := fx.svc.CreateSession(ctx, tc, model.CreateSessionRequest{
		WarehouseID: fx.wh,
		Type:        model.SessionPartial,
		SKUs:        []string{"SKU-001", "SKU-002"},
		LockItems:   true,
	})
	require.NoError(t, err)
	id := resp.Session.ID

	_, err = fx.svc.SubmitCounts(ctx, tc, id, model.SubmitCountsRequest{
		Counts: []model.CountEntry{
			{SKU: "SKU-001", CountedQuantity: 92},
			{SKU: "SKU-002", CountedQuantity: 41},
		},
	})
	require.NoError(t, err)

	result, err := fx.svc.CompleteSession(ctx, tc, id)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, result.Session.Status)
	assert.NotNil(t, result.Session.CompletedAt)
	assert.Len(t, result.Applied, 2)

	// Stock reflects the counted quantities.
	assert.Equal(t, 92, fx.inv.items[itemKey{fx.wh, "SKU-001"}].Quantity)
	assert.Equal(t, 41, fx.inv.items[itemKey{fx.wh, "SKU-002"}].Quantity)

	// Locks released.
	assert.False(t, fx.inv.items[itemKey{fx.wh, "SKU-001"}].IsLocked)

	// Audit entries carry the cycle count reason code.
	require.NotEmpty(t, fx.inv.audit)
	for _, entry := range fx.inv.audit {
		assert.Equal(t, invModel.AuditActionCycleCount, entry.Action)
		assert.Equal(t, invModel.AuditActionCycleCount, entry.ReasonCode)
	}

	// Completion is terminal.
	_, err = fx.svc.CompleteSession(ctx, tc, id)
	assert.ErrorIs(t, err, model.ErrSessionCompleted)
	_, err = fx.svc.SubmitCounts(ctx, tc, id, model.SubmitCountsRequest{
		Counts: []model.CountEntry{{SKU: "SKU-001", CountedQuantity: 1}},
	})
	assert.ErrorIs(t, err, model.ErrSessionCompleted)
}
