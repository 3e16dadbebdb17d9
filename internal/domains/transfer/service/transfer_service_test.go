package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invModel "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/model"
	invRepo "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/repository"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/transfer/model"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/transfer/repository"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/events"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/tenant"
)

// ========================================
// FAKES
// ========================================

type rowKey struct {
	warehouseID uuid.UUID
	sku         string
}

// fakeWorld holds the shared state both fakes mutate, mirroring what the
// postgres repositories do against the same tables.
type fakeWorld struct {
	mu           sync.Mutex
	warehouses   map[uuid.UUID]string // id -> org
	rows         map[rowKey]*invModel.InventoryItem
	reservations map[uuid.UUID]*invModel.Reservation
	transfers    map[uuid.UUID]*model.TransferRequest
	audit        []invModel.AuditLogEntry
	notifyConfig *model.NotificationConfig
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		warehouses:   make(map[uuid.UUID]string),
		rows:         make(map[rowKey]*invModel.InventoryItem),
		reservations: make(map[uuid.UUID]*invModel.Reservation),
		transfers:    make(map[uuid.UUID]*model.TransferRequest),
	}
}

// fakeInventoryRepo implements only what the transfer service touches; the
// embedded interface panics on anything else.
type fakeInventoryRepo struct {
	invRepo.RepositoryInterface
	world *fakeWorld
}

func (f *fakeInventoryRepo) GetWarehouse(_ context.Context, orgID string, id uuid.UUID) (*invModel.Warehouse, error) {
	org, ok := f.world.warehouses[id]
	if !ok || org != orgID {
		return nil, invModel.ErrWarehouseNotFound
	}
	return &invModel.Warehouse{ID: id, OrganizationID: orgID}, nil
}

func (f *fakeInventoryRepo) GetReservation(_ context.Context, orgID string, id uuid.UUID) (*invModel.Reservation, error) {
	r, ok := f.world.reservations[id]
	if !ok || r.OrganizationID != orgID {
		return nil, invModel.ErrReservationNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *fakeInventoryRepo) AppendAudit(_ context.Context, entry *invModel.AuditLogEntry) error {
	f.world.mu.Lock()
	defer f.world.mu.Unlock()
	f.world.audit = append(f.world.audit, *entry)
	return nil
}

type fakeTransferRepo struct {
	world *fakeWorld
}

func (f *fakeTransferRepo) Create(_ context.Context, t *model.TransferRequest) error {
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	copied := *t
	f.world.transfers[t.ID] = &copied
	return nil
}

func (f *fakeTransferRepo) GetByID(_ context.Context, orgID string, id uuid.UUID) (*model.TransferRequest, error) {
	t, ok := f.world.transfers[id]
	if !ok || t.OrganizationID != orgID {
		return nil, model.NewTransferNotFoundError(id)
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTransferRepo) List(_ context.Context, orgID string, _ model.ListTransfersRequest) ([]model.TransferRequest, int, error) {
	out := make([]model.TransferRequest, 0)
	for _, t := range f.world.transfers {
		if t.OrganizationID == orgID {
			out = append(out, *t)
		}
	}
	return out, len(out), nil
}

func (f *fakeTransferRepo) GetActiveByReservation(_ context.Context, orgID string, reservationID uuid.UUID) (*model.TransferRequest, error) {
	for _, t := range f.world.transfers {
		if t.OrganizationID == orgID && t.ReservationID == reservationID && t.Status.Active() {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeTransferRepo) Approve(_ context.Context, orgID string, id uuid.UUID, approvedBy uuid.UUID) error {
	t, ok := f.world.transfers[id]
	if !ok || t.OrganizationID != orgID {
		return model.NewTransferNotFoundError(id)
	}
	if t.Status != model.StatusPending {
		return model.ErrTransferNotPending
	}
	now := time.Now()
	t.Status = model.StatusApproved
	t.ApprovedBy = &approvedBy
	t.ApprovedAt = &now
	return nil
}

func (f *fakeTransferRepo) Reject(_ context.Context, orgID string, id uuid.UUID, rejectedBy uuid.UUID, reason string) error {
	t, ok := f.world.transfers[id]
	if !ok || t.OrganizationID != orgID {
		return model.NewTransferNotFoundError(id)
	}
	if t.Status != model.StatusPending {
		return model.ErrTransferNotPending
	}
	now := time.Now()
	t.Status = model.StatusRejected
	t.RejectedBy = &rejectedBy
	t.RejectedAt = &now
	t.RejectionReason = &reason
	return nil
}

func (f *fakeTransferRepo) Cancel(_ context.Context, orgID string, id uuid.UUID) error {
	t, ok := f.world.transfers[id]
	if !ok || t.OrganizationID != orgID {
		return model.NewTransferNotFoundError(id)
	}
	if t.Status != model.StatusPending {
		return model.ErrTransferNotPending
	}
	t.Status = model.StatusCancelled
	return nil
}

func (f *fakeTransferRepo) Reschedule(_ context.Context, orgID string, id uuid.UUID, scheduledAt time.Time) error {
	t, ok := f.world.transfers[id]
	if !ok || t.OrganizationID != orgID {
		return model.NewTransferNotFoundError(id)
	}
	if t.Status != model.StatusPending {
		return model.ErrTransferNotPending
	}
	t.ScheduledAt = &scheduledAt
	return nil
}

func (f *fakeTransferRepo) ExecuteTransfer(_ context.Context, orgID string, id uuid.UUID) (*repository.ExecutedTransfer, error) {
	f.world.mu.Lock()
	defer f.world.mu.Unlock()

	t, ok := f.world.transfers[id]
	if !ok || t.OrganizationID != orgID {
		return nil, model.NewTransferNotFoundError(id)
	}
	if t.Status != model.StatusApproved {
		return nil, model.ErrTransferNotApproved
	}

	source := f.world.rows[rowKey{t.SourceWarehouseID, t.SKU}]
	target := f.world.rows[rowKey{t.TargetWarehouseID, t.SKU}]
	if target == nil {
		target = &invModel.InventoryItem{
			ID: uuid.New(), OrganizationID: orgID,
			WarehouseID: t.TargetWarehouseID, SKU: t.SKU,
		}
		f.world.rows[rowKey{t.TargetWarehouseID, t.SKU}] = target
	}

	sourceReserved := source.ReservedQuantity - t.Quantity
	if sourceReserved < 0 {
		sourceReserved = 0
	}
	targetReserved := target.ReservedQuantity + t.Quantity
	if targetReserved > target.Quantity {
		return nil, invModel.NewInsufficientStockError(t.Quantity, target.Quantity-target.ReservedQuantity)
	}

	source.ReservedQuantity = sourceReserved
	target.ReservedQuantity = targetReserved

	res := f.world.reservations[t.ReservationID]
	if res == nil || !res.Active() {
		return nil, model.ErrReservationReleased
	}
	res.WarehouseID = t.TargetWarehouseID

	now := time.Now()
	t.Status = model.StatusCompleted
	t.CompletedAt = &now

	copied := *t
	return &repository.ExecutedTransfer{
		Transfer:       &copied,
		SourceReserved: sourceReserved,
		TargetReserved: targetReserved,
	}, nil
}

func (f *fakeTransferRepo) MarkFailed(_ context.Context, orgID string, id uuid.UUID) error {
	if t, ok := f.world.transfers[id]; ok && t.OrganizationID == orgID && t.Status == model.StatusApproved {
		t.Status = model.StatusFailed
	}
	return nil
}

func (f *fakeTransferRepo) ListDueScheduled(_ context.Context, now time.Time, limit int) ([]model.TransferRequest, error) {
	out := make([]model.TransferRequest, 0)
	for _, t := range f.world.transfers {
		if t.TransferType == model.TransferScheduled && t.Status == model.StatusApproved &&
			t.ScheduledAt != nil && !t.ScheduledAt.After(now) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTransferRepo) GetNotificationConfig(_ context.Context, orgID string) (*model.NotificationConfig, error) {
	if f.world.notifyConfig != nil {
		return f.world.notifyConfig, nil
	}
	return model.DefaultNotificationConfig(orgID), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(taskType string, _ interface{}, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, taskType)
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// ========================================
// SEEDING (mirrors the S1 fixture)
// ========================================

type fixture struct {
	world       *fakeWorld
	pub         *recordingPublisher
	svc         ServiceInterface
	whA, whB    uuid.UUID
	reservation uuid.UUID
	orderID     uuid.UUID
}

func seedS1(t *testing.T) *fixture {
	t.Helper()

	world := newFakeWorld()
	whA := uuid.New()
	whB := uuid.New()
	world.warehouses[whA] = "org-1"
	world.warehouses[whB] = "org-1"

	world.rows[rowKey{whA, "SKU-001"}] = &invModel.InventoryItem{
		ID: uuid.New(), OrganizationID: "org-1", WarehouseID: whA, SKU: "SKU-001",
		Quantity: 100, ReservedQuantity: 20,
	}
	world.rows[rowKey{whB, "SKU-001"}] = &invModel.InventoryItem{
		ID: uuid.New(), OrganizationID: "org-1", WarehouseID: whB, SKU: "SKU-001",
		Quantity: 50, ReservedQuantity: 0,
	}

	resID := uuid.New()
	orderID := uuid.New()
	world.reservations[resID] = &invModel.Reservation{
		ID: resID, OrganizationID: "org-1", OrderID: orderID,
		SKU: "SKU-001", WarehouseID: whA, QuantityReserved: 20,
	}

	pub := &recordingPublisher{}
	svc := NewService(
		&fakeTransferRepo{world: world},
		&fakeInventoryRepo{world: world},
		pub,
	)

	return &fixture{
		world: world, pub: pub, svc: svc,
		whA: whA, whB: whB, reservation: resID, orderID: orderID,
	}
}

func managerTenant() tenant.Context {
	return tenant.Context{OrganizationID: "org-1", UserID: uuid.New(), Role: tenant.RoleWarehouseManager}
}

func staffTenant() tenant.Context {
	return tenant.Context{OrganizationID: "org-1", UserID: uuid.New(), Role: tenant.RoleStaff}
}

// ========================================
// SCENARIOS
// ========================================

func TestTransferLifecycle_PendingApproveExecute(t *testing.T) {
	fx := seedS1(t)
	ctx := context.Background()
	requester := staffTenant()
	manager := managerTenant()

	created, err := fx.svc.CreateTransferRequest(ctx, requester, model.CreateTransferRequest{
		ReservationID:     fx.reservation,
		SourceWarehouseID: fx.whA,
		TargetWarehouseID: fx.whB,
		Quantity:          20,
		TransferType:      model.TransferPending,
		Reason:            "rebalance to fulfil closer",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, created.Status)
	assert.Equal(t, "SKU-001", created.SKU)

	approved, err := fx.svc.ApproveTransfer(ctx, manager, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)
	assert.Equal(t, manager.UserID, *approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedAt)

	completed, err := fx.svc.ExecuteTransfer(ctx, manager, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, completed.Status)

	// Reserved stock moved A -> B.
	assert.Equal(t, 0, fx.world.rows[rowKey{fx.whA, "SKU-001"}].ReservedQuantity)
	assert.Equal(t, 20, fx.world.rows[rowKey{fx.whB, "SKU-001"}].ReservedQuantity)

	// Reservation re-homed; order linkage preserved.
	res := fx.world.reservations[fx.reservation]
	assert.Equal(t, fx.whB, res.WarehouseID)
	assert.Equal(t, fx.orderID, res.OrderID)

	// Audit entry with transfer metadata.
	require.Len(t, fx.world.audit, 1)
	entry := fx.world.audit[0]
	assert.Equal(t, invModel.AuditActionTransfer, entry.Action)
	assert.Equal(t, "SKU-001", entry.SKU)
	assert.Equal(t, 20, entry.Metadata["quantity"])
	assert.Equal(t, fx.reservation.String(), entry.Metadata["reservation_id"])

	// Events in order, with notification fan-out interleaved per config.
	published := fx.pub.published()
	ordered := make([]string, 0, 3)
	for _, e := range published {
		switch e {
		case events.TypeTransferRequested, events.TypeTransferApproved, events.TypeTransferCompleted:
			ordered = append(ordered, e)
		}
	}
	assert.Equal(t, []string{
		events.TypeTransferRequested,
		events.TypeTransferApproved,
		events.TypeTransferCompleted,
	}, ordered)
	assert.Contains(t, published, events.TypeNotificationBatch)
	assert.Contains(t, published, events.TypeNotificationSend)
}

func TestTransfer_ImmediateAutoApproved(t *testing.T) {
	fx := seedS1(t)
	ctx := context.Background()
	requester := staffTenant()

	created, err := fx.svc.CreateTransferRequest(ctx, requester, model.CreateTransferRequest{
		ReservationID:     fx.reservation,
		SourceWarehouseID: fx.whA,
		TargetWarehouseID: fx.whB,
		Quantity:          8,
		TransferType:      model.TransferImmediate,
		Reason:            "partial rebalance",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, created.Status)
	assert.Equal(t, requester.UserID, *created.ApprovedBy)

	_, err = fx.svc.ExecuteTransfer(ctx, requester, created.ID)
	require.NoError(t, err)

	assert.Equal(t, 12, fx.world.rows[rowKey{fx.whA, "SKU-001"}].ReservedQuantity)
	assert.Equal(t, 8, fx.world.rows[rowKey{fx.whB, "SKU-001"}].ReservedQuantity)
}

func TestCreateTransfer_Validations(t *testing.T) {
	fx := seedS1(t)
	ctx := context.Background()
	tc := staffTenant()

	base := model.CreateTransferRequest{
		ReservationID:     fx.reservation,
		SourceWarehouseID: fx.whA,
		TargetWarehouseID: fx.whB,
		Quantity:          20,
		TransferType:      model.TransferPending,
		Reason:            "rebalance",
	}

	t.Run("source equals target", func(t *testing.T) {
		req := base
		req.TargetWarehouseID = fx.whA
		_, err := fx.svc.CreateTransferRequest(ctx, tc, req)
		assert.ErrorIs(t, err, model.ErrSameWarehouse)
	})

	t.Run("unknown reservation", func(t *testing.T) {
		req := base
		req.ReservationID = uuid.New()
		_, err := fx.svc.CreateTransferRequest(ctx, tc, req)
		assert.ErrorIs(t, err, invModel.ErrReservationNotFound)
	})

	t.Run("quantity exceeds reservation", func(t *testing.T) {
		req := base
		req.Quantity = 21
		_, err := fx.svc.CreateTransferRequest(ctx, tc, req)
		assert.ErrorIs(t, err, model.ErrQuantityExceedsReservation)
	})

	t.Run("source mismatch", func(t *testing.T) {
		req := base
		req.SourceWarehouseID = fx.whB
		req.TargetWarehouseID = fx.whA
		_, err := fx.svc.CreateTransferRequest(ctx, tc, req)
		assert.ErrorIs(t, err, model.ErrSourceMismatch)
	})

	t.Run("scheduled in past", func(t *testing.T) {
		req := base
		req.TransferType = model.TransferScheduled
		past := time.Now().Add(-time.Hour)
		req.ScheduledAt = &past
		_, err := fx.svc.CreateTransferRequest(ctx, tc, req)
		assert.ErrorIs(t, err, model.ErrScheduledInPast)
	})

	t.Run("scheduled without date", func(t *testing.T) {
		req := base
		req.TransferType = model.TransferScheduled
		req.ScheduledAt = nil
		_, err := fx.svc.CreateTransferRequest(ctx, tc, req)
		assert.ErrorIs(t, err, model.ErrScheduleRequired)
	})
}

func TestCreateTransfer_DuplicateActiveRejected(t *testing.T) {
	fx := seedS1(t)
	ctx := context.Background()
	tc := staffTenant()

	req := model.CreateTransferRequest{
		ReservationID:     fx.reservation,
		SourceWarehouseID: fx.whA,
		TargetWarehouseID: fx.whB,
		Quantity:          10,
		TransferType:      model.TransferPending,
		Reason:            "first",
	}

	_, err := fx.svc.CreateTransferRequest(ctx, tc, req)
	require.NoError(t, err)

	req.Reason = "second"
	_, err = fx.svc.CreateTransferRequest(ctx, tc, req)
	assert.ErrorIs(t, err, model.ErrDuplicateActiveTransfer)
}

func TestApproveReject_RoleEnforcement(t *testing.T) {
	fx := seedS1(t)
	ctx := context.Background()

	created, err := fx.svc.CreateTransferRequest(ctx, staffTenant(), model.CreateTransferRequest{
		ReservationID:     fx.reservation,
		SourceWarehouseID: fx.whA,
		TargetWarehouseID: fx.whB,
		Quantity:          10,
		TransferType:      model.TransferPending,
		Reason:            "rebalance",
	})
	require.NoError(t, err)

	_, err = fx.svc.ApproveTransfer(ctx, staffTenant(), created.ID)
	assert.ErrorIs(t, err, model.ErrRoleDenied)

	_, err = fx.svc.RejectTransfer(ctx, staffTenant(), created.ID, "nope")
	assert.ErrorIs(t, err, model.ErrRoleDenied)

	rejected, err := fx.svc.RejectTransfer(ctx, managerTenant(), created.ID, "not needed")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)
	assert.Equal(t, "not needed", *rejected.RejectionReason)

	// Rejected transfers cannot be approved afterwards.
	_, err = fx.svc.ApproveTransfer(ctx, managerTenant(), created.ID)
	assert.ErrorIs(t, err, model.ErrTransferNotPending)
}

func TestExecuteTransfer_RequiresApproval(t *testing.T) {
	fx := seedS1(t)
	ctx := context.Background()

	created, err := fx.svc.CreateTransferRequest(ctx, staffTenant(), model.CreateTransferRequest{
		ReservationID:     fx.reservation,
		SourceWarehouseID: fx.whA,
		TargetWarehouseID: fx.whB,
		Quantity:          10,
		TransferType:      model.TransferPending,
		Reason:            "rebalance",
	})
	require.NoError(t, err)

	_, err = fx.svc.ExecuteTransfer(ctx, managerTenant(), created.ID)
	assert.ErrorIs(t, err, model.ErrTransferNotApproved)
}

func TestExecuteDueTransfers(t *testing.T) {
	fx := seedS1(t)
	ctx := context.Background()
	tc := staffTenant()

	future := time.Now().Add(250 * time.Millisecond)
	created, err := fx.svc.CreateTransferRequest(ctx, tc, model.CreateTransferRequest{
		ReservationID:     fx.reservation,
		SourceWarehouseID: fx.whA,
		TargetWarehouseID: fx.whB,
		Quantity:          20,
		TransferType:      model.TransferScheduled,
		ScheduledAt:       &future,
		Priority:          model.PriorityHigh,
		Reason:            "night rebalance",
	})
	require.NoError(t, err)

	_, err = fx.svc.ApproveTransfer(ctx, managerTenant(), created.ID)
	require.NoError(t, err)

	// Not yet due.
	executed, err := fx.svc.ExecuteDueTransfers(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, executed)

	time.Sleep(300 * time.Millisecond)

	executed, err = fx.svc.ExecuteDueTransfers(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, executed)

	final, err := fx.svc.GetTransfer(ctx, tc, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, final.Status)
}

func TestRescheduleTransfer(t *testing.T) {
	fx := seedS1(t)
	ctx := context.Background()
	tc := staffTenant()

	future := time.Now().Add(time.Hour)
	created, err := fx.svc.CreateTransferRequest(ctx, tc, model.CreateTransferRequest{
		ReservationID:     fx.reservation,
		SourceWarehouseID: fx.whA,
		TargetWarehouseID: fx.whB,
		Quantity:          10,
		TransferType:      model.TransferScheduled,
		ScheduledAt:       &future,
		Reason:            "rebalance",
	})
	require.NoError(t, err)

	_, err = fx.svc.RescheduleTransfer(ctx, tc, created.ID, time.Now().Add(-time.Minute))
	assert.ErrorIs(t, err, model.ErrScheduledInPast)

	later := time.Now().Add(2 * time.Hour)
	updated, err := fx.svc.RescheduleTransfer(ctx, tc, created.ID, later)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, updated.Status)
	assert.WithinDuration(t, later, *updated.ScheduledAt, time.Second)
}
