package workshop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
	"github.com/kuiporro/pgf-fleet-workshop/internal/repository"
)

// fakeClock hands out strictly increasing instants so event ordering is
// deterministic in tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]domain.WorkOrder
	clock  *fakeClock
}

func newMemOrderRepo(clock *fakeClock) *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]domain.WorkOrder), clock: clock}
}

func (r *memOrderRepo) Create(_ context.Context, order *domain.WorkOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	order.OpenedAt = now
	order.UpdatedAt = now
	r.orders[order.ID] = *order
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*domain.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := order
	return &copied, nil
}

func (r *memOrderRepo) ListWithFilter(_ context.Context, _ repository.WorkOrderFilter) ([]domain.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.WorkOrder, 0, len(r.orders))
	for _, order := range r.orders {
		result = append(result, order)
	}
	return result, nil
}

func (r *memOrderRepo) UpdateStatusCAS(_ context.Context, id string, expected, next domain.WorkOrderStatus, closedAt *time.Time) (repository.CASResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return repository.CASNotFound, nil
	}
	if order.Status != expected {
		return repository.CASConflict, nil
	}
	order.Status = next
	order.ClosedAt = closedAt
	order.UpdatedAt = r.clock.Now()
	r.orders[id] = order
	return repository.CASApplied, nil
}

func (r *memOrderRepo) UpdateNotes(_ context.Context, id string, diagnosisNotes, reworkReason, closingNotes *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if diagnosisNotes != nil {
		order.DiagnosisNotes = diagnosisNotes
	}
	if reworkReason != nil {
		order.ReworkReason = reworkReason
	}
	if closingNotes != nil {
		order.ClosingNotes = closingNotes
	}
	r.orders[id] = order
	return nil
}

func (r *memOrderRepo) UpdatePriority(_ context.Context, id string, priority domain.WorkOrderPriority) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return pgx.ErrNoRows
	}
	order.Priority = priority
	r.orders[id] = order
	return nil
}

func (r *memOrderRepo) snapshot() map[string]domain.WorkOrder {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make(map[string]domain.WorkOrder, len(r.orders))
	for id, order := range r.orders {
		copied[id] = order
	}
	return copied
}

func (r *memOrderRepo) restore(snap map[string]domain.WorkOrder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = snap
}

type memStatusRepo struct {
	mu         sync.Mutex
	events     []domain.StatusChangeEvent
	fail       error
	failAppend error
}

func (r *memStatusRepo) Append(_ context.Context, event *domain.StatusChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend != nil {
		return r.failAppend
	}
	r.events = append(r.events, *event)
	return nil
}

func (r *memStatusRepo) snapshot() []domain.StatusChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.StatusChangeEvent(nil), r.events...)
}

func (r *memStatusRepo) restore(snap []domain.StatusChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = snap
}

func (r *memStatusRepo) ListByWorkOrder(_ context.Context, workOrderID string) ([]domain.StatusChangeEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	var result []domain.StatusChangeEvent
	for _, event := range r.events {
		if event.WorkOrderRef == workOrderID {
			result = append(result, event)
		}
	}
	return result, nil
}

type memPauseRepo struct {
	mu         sync.Mutex
	pauses     []domain.PauseRecord
	fail       error
	failCreate error
}

func (r *memPauseRepo) Create(_ context.Context, pause *domain.PauseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	for _, existing := range r.pauses {
		if existing.WorkOrderRef == pause.WorkOrderRef && existing.EndedAt == nil {
			return repository.ErrActivePauseExists
		}
	}
	r.pauses = append(r.pauses, *pause)
	return nil
}

func (r *memPauseRepo) GetActive(_ context.Context, workOrderID string) (*domain.PauseRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pause := range r.pauses {
		if pause.WorkOrderRef == workOrderID && pause.EndedAt == nil {
			copied := pause
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memPauseRepo) Resolve(_ context.Context, pauseID string, endedAt time.Time, endedBy domain.Actor) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.pauses {
		if r.pauses[i].ID == pauseID && r.pauses[i].EndedAt == nil {
			at := endedAt
			actor := endedBy
			r.pauses[i].EndedAt = &at
			r.pauses[i].EndedBy = &actor
			return true, nil
		}
	}
	return false, nil
}

func (r *memPauseRepo) snapshot() []domain.PauseRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.PauseRecord(nil), r.pauses...)
}

func (r *memPauseRepo) restore(snap []domain.PauseRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauses = snap
}

func (r *memPauseRepo) ListByWorkOrder(_ context.Context, workOrderID string) ([]domain.PauseRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	var result []domain.PauseRecord
	for _, pause := range r.pauses {
		if pause.WorkOrderRef == workOrderID {
			result = append(result, pause)
		}
	}
	return result, nil
}

type memCommentRepo struct {
	mu       sync.Mutex
	comments []domain.CommentRecord
	fail     error
}

func (r *memCommentRepo) ListByWorkOrder(_ context.Context, workOrderID string) ([]domain.CommentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	var result []domain.CommentRecord
	for _, comment := range r.comments {
		if comment.WorkOrderRef == workOrderID {
			result = append(result, comment)
		}
	}
	return result, nil
}

type memEvidenceRepo struct {
	mu       sync.Mutex
	evidence []domain.EvidenceRecord
	fail     error
}

func (r *memEvidenceRepo) ListByWorkOrder(_ context.Context, workOrderID string) ([]domain.EvidenceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	var result []domain.EvidenceRecord
	for _, item := range r.evidence {
		if item.WorkOrderRef == workOrderID {
			result = append(result, item)
		}
	}
	return result, nil
}

var errSourceDown = errors.New("source unavailable")

// memTxRunner mirrors transactional rollback over the in-memory repos:
// it snapshots all three before running fn and restores them when fn
// errors. Transactions are serialized so a rollback never clobbers a
// concurrent commit.
type memTxRunner struct {
	mu       sync.Mutex
	orders   *memOrderRepo
	statuses *memStatusRepo
	pauses   *memPauseRepo
}

func (r *memTxRunner) InTx(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepos) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	orderSnap := r.orders.snapshot()
	eventSnap := r.statuses.snapshot()
	pauseSnap := r.pauses.snapshot()
	err := fn(ctx, repository.TxRepos{
		Orders:    r.orders,
		StatusLog: r.statuses,
		Pauses:    r.pauses,
	})
	if err != nil {
		r.orders.restore(orderSnap)
		r.statuses.restore(eventSnap)
		r.pauses.restore(pauseSnap)
	}
	return err
}

// testRig bundles a state machine with its fakes for service tests.
type testRig struct {
	clock    *fakeClock
	orders   *memOrderRepo
	statuses *memStatusRepo
	pauses   *memPauseRepo
	machine  *StateMachine
	ledger   *PauseLedger
	qa       *QAReviewCycle
}

func newTestRig() *testRig {
	clock := newFakeClock()
	orders := newMemOrderRepo(clock)
	statuses := &memStatusRepo{}
	pauses := &memPauseRepo{}
	machine := NewStateMachine(StateMachineDependencies{
		WorkOrderRepo:   orders,
		StatusEventRepo: statuses,
		PauseRepo:       pauses,
		Tx:              &memTxRunner{orders: orders, statuses: statuses, pauses: pauses},
		Clock:           clock.Now,
	})
	return &testRig{
		clock:    clock,
		orders:   orders,
		statuses: statuses,
		pauses:   pauses,
		machine:  machine,
		ledger:   NewPauseLedger(machine, pauses),
		qa:       NewQAReviewCycle(machine, orders),
	}
}

var (
	mechanic = domain.Actor{IdentityID: "mec-1", Name: "Luis", Role: domain.RoleMecanico}
	lead     = domain.Actor{IdentityID: "jefe-1", Name: "Carla", Role: domain.RoleJefeTaller}
	superv   = domain.Actor{IdentityID: "sup-1", Name: "Pedro", Role: domain.RoleSupervisor}
	driver   = domain.Actor{IdentityID: "cond-1", Name: "Rosa", Role: domain.RoleConductor}
)

// openInExecution creates an order and walks it to EN_EJECUCION.
func (rig *testRig) openInExecution(t interface{ Fatalf(string, ...any) }) *domain.WorkOrder {
	ctx := context.Background()
	order, err := rig.machine.Create(ctx, superv, CreateInput{VehicleRef: "veh-77"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := rig.machine.Transition(ctx, order.ID, domain.StatusEnDiagnostico, lead, "ingreso"); err != nil {
		t.Fatalf("to diagnostico: %v", err)
	}
	updated, err := rig.machine.Transition(ctx, order.ID, domain.StatusEnEjecucion, lead, "asignada")
	if err != nil {
		t.Fatalf("to ejecucion: %v", err)
	}
	return updated
}
