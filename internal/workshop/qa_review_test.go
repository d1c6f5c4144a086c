package workshop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
)

func (rig *testRig) openInQA(t *testing.T) *domain.WorkOrder {
	t.Helper()
	order := rig.openInExecution(t)
	updated, err := rig.machine.Transition(context.Background(), order.ID, domain.StatusEnQA, mechanic, "trabajo terminado")
	require.NoError(t, err)
	return updated
}

// An OK verdict closes the order and the closure is final.
func TestApproveOKClosesOrder(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	order := rig.openInQA(t)

	closed, err := rig.qa.Approve(ctx, order.ID, VerdictOK, "entregada conforme", lead)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCerrada, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	stored, err := rig.machine.Get(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ClosingNotes)
	assert.Equal(t, "entregada conforme", *stored.ClosingNotes)

	_, err = rig.machine.Transition(ctx, order.ID, domain.StatusEnDiagnostico, lead, "reabrir")
	require.Error(t, err)
	assert.Equal(t, "ALREADY_TERMINAL", errorCode(t, err))
}

// A NO_OK verdict routes the order back to execution through RETRABAJO,
// leaving two events and no closure.
func TestApproveNoOKRoutesBackToExecution(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	order := rig.openInQA(t)

	reworked, err := rig.qa.Approve(ctx, order.ID, VerdictNoOK, "soldadura incompleta", lead)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnEjecucion, reworked.Status)
	assert.Nil(t, reworked.ClosedAt)

	stored, err := rig.machine.Get(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReworkReason)
	assert.Equal(t, "soldadura incompleta", *stored.ReworkReason)

	log, err := rig.statuses.ListByWorkOrder(ctx, order.ID)
	require.NoError(t, err)
	// ABIERTA>DIAG, DIAG>EJEC, EJEC>QA, then the verdict pair.
	require.Len(t, log, 5)
	assert.Equal(t, domain.StatusEnQA, log[3].FromStatus)
	assert.Equal(t, domain.StatusRetrabajo, log[3].ToStatus)
	assert.Equal(t, domain.StatusRetrabajo, log[4].FromStatus)
	assert.Equal(t, domain.StatusEnEjecucion, log[4].ToStatus)
	assert.Equal(t, lead, log[3].Actor)
	assert.Equal(t, lead, log[4].Actor)
}

func TestApproveRequiresWorkshopLead(t *testing.T) {
	rig := newTestRig()
	order := rig.openInQA(t)

	for _, actor := range []domain.Actor{mechanic, superv, driver} {
		_, err := rig.qa.Approve(context.Background(), order.ID, VerdictOK, "", actor)
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", errorCode(t, err))
	}
}

func TestApproveOutsideQAIsInvalid(t *testing.T) {
	rig := newTestRig()
	order := rig.openInExecution(t)

	_, err := rig.qa.Approve(context.Background(), order.ID, VerdictOK, "", lead)
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", errorCode(t, err))
}

func TestApproveRejectsUnknownVerdict(t *testing.T) {
	rig := newTestRig()
	order := rig.openInQA(t)

	_, err := rig.qa.Approve(context.Background(), order.ID, QAVerdict("TAL_VEZ"), "", lead)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))
}

func TestReworkedOrderCanReachQAAgain(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	order := rig.openInQA(t)

	_, err := rig.qa.Approve(ctx, order.ID, VerdictNoOK, "pintura", lead)
	require.NoError(t, err)

	_, err = rig.machine.Transition(ctx, order.ID, domain.StatusEnQA, mechanic, "corregido")
	require.NoError(t, err)
	closed, err := rig.qa.Approve(ctx, order.ID, VerdictOK, "ahora si", lead)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCerrada, closed.Status)
}
