package workshop

import "github.com/kuiporro/pgf-fleet-workshop/internal/domain"

// transitionEdge declares one legal status move and the roles allowed to
// request it. Every caller consults this table; no screen or handler
// re-derives permission logic.
type transitionEdge struct {
	from         domain.WorkOrderStatus
	to           domain.WorkOrderStatus
	allowedRoles []domain.Role
}

var transitionTable = []transitionEdge{
	{domain.StatusAbierta, domain.StatusEnDiagnostico,
		[]domain.Role{domain.RoleMecanico, domain.RoleJefeTaller, domain.RoleSupervisor, domain.RoleAdministrador}},

	// Moving into execution requires assignment approval by the workshop lead.
	{domain.StatusEnDiagnostico, domain.StatusEnEjecucion,
		[]domain.Role{domain.RoleJefeTaller, domain.RoleAdministrador}},

	{domain.StatusEnEjecucion, domain.StatusEnPausa,
		[]domain.Role{domain.RoleMecanico, domain.RoleJefeTaller}},
	{domain.StatusEnEjecucion, domain.StatusEsperandoRepuestos,
		[]domain.Role{domain.RoleMecanico, domain.RoleJefeTaller}},
	{domain.StatusEnEjecucion, domain.StatusEnQA,
		[]domain.Role{domain.RoleMecanico, domain.RoleJefeTaller}},

	{domain.StatusEnPausa, domain.StatusEnEjecucion,
		[]domain.Role{domain.RoleMecanico, domain.RoleJefeTaller}},
	{domain.StatusEsperandoRepuestos, domain.StatusEnEjecucion,
		[]domain.Role{domain.RoleMecanico, domain.RoleJefeTaller}},

	// The QA verdict branch; reachable only through the QA review cycle.
	{domain.StatusEnQA, domain.StatusCerrada,
		[]domain.Role{domain.RoleJefeTaller}},
	{domain.StatusEnQA, domain.StatusRetrabajo,
		[]domain.Role{domain.RoleJefeTaller}},

	// Rework routes straight back into execution under the same reviewer.
	{domain.StatusRetrabajo, domain.StatusEnEjecucion,
		[]domain.Role{domain.RoleJefeTaller, domain.RoleAdministrador}},
}

// findEdge returns the declared edge for the pair, if any.
func findEdge(from, to domain.WorkOrderStatus) (transitionEdge, bool) {
	for _, edge := range transitionTable {
		if edge.from == from && edge.to == to {
			return edge, true
		}
	}
	return transitionEdge{}, false
}

// roleAllowed reports whether the role may traverse the edge.
func (e transitionEdge) roleAllowed(role domain.Role) bool {
	if role == domain.RoleAdministrador {
		return true
	}
	for _, allowed := range e.allowedRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

// PermittedTargets returns the statuses reachable from the given status for
// the given role. Used by the API to drive action menus.
func PermittedTargets(from domain.WorkOrderStatus, role domain.Role) []domain.WorkOrderStatus {
	var targets []domain.WorkOrderStatus
	for _, edge := range transitionTable {
		if edge.from == from && edge.roleAllowed(role) {
			targets = append(targets, edge.to)
		}
	}
	return targets
}
