package workshop

import (
	"testing"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
)

func TestFindEdge(t *testing.T) {
	tests := []struct {
		name     string
		from     domain.WorkOrderStatus
		to       domain.WorkOrderStatus
		declared bool
	}{
		{"open to diagnosis", domain.StatusAbierta, domain.StatusEnDiagnostico, true},
		{"diagnosis to execution", domain.StatusEnDiagnostico, domain.StatusEnEjecucion, true},
		{"execution to pause", domain.StatusEnEjecucion, domain.StatusEnPausa, true},
		{"execution to parts wait", domain.StatusEnEjecucion, domain.StatusEsperandoRepuestos, true},
		{"execution to qa", domain.StatusEnEjecucion, domain.StatusEnQA, true},
		{"pause back to execution", domain.StatusEnPausa, domain.StatusEnEjecucion, true},
		{"parts wait back to execution", domain.StatusEsperandoRepuestos, domain.StatusEnEjecucion, true},
		{"qa to closed", domain.StatusEnQA, domain.StatusCerrada, true},
		{"qa to rework", domain.StatusEnQA, domain.StatusRetrabajo, true},
		{"rework to execution", domain.StatusRetrabajo, domain.StatusEnEjecucion, true},

		{"open straight to execution", domain.StatusAbierta, domain.StatusEnEjecucion, false},
		{"open straight to closed", domain.StatusAbierta, domain.StatusCerrada, false},
		{"pause to qa", domain.StatusEnPausa, domain.StatusEnQA, false},
		{"closed to anything", domain.StatusCerrada, domain.StatusEnEjecucion, false},
		{"self loop", domain.StatusEnEjecucion, domain.StatusEnEjecucion, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, declared := findEdge(tt.from, tt.to); declared != tt.declared {
				t.Errorf("findEdge(%s, %s) declared = %v, want %v", tt.from, tt.to, declared, tt.declared)
			}
		})
	}
}

func TestEdgeRoleAllowed(t *testing.T) {
	edge, ok := findEdge(domain.StatusEnDiagnostico, domain.StatusEnEjecucion)
	if !ok {
		t.Fatal("edge not declared")
	}
	if edge.roleAllowed(domain.RoleMecanico) {
		t.Error("mechanic must not approve execution start")
	}
	if !edge.roleAllowed(domain.RoleJefeTaller) {
		t.Error("workshop lead must approve execution start")
	}
	if !edge.roleAllowed(domain.RoleAdministrador) {
		t.Error("administrator bypass expected")
	}
}

func TestStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status   domain.WorkOrderStatus
		expected bool
	}{
		{domain.StatusAbierta, false},
		{domain.StatusEnDiagnostico, false},
		{domain.StatusEnEjecucion, false},
		{domain.StatusEnPausa, false},
		{domain.StatusEsperandoRepuestos, false},
		{domain.StatusEnQA, false},
		{domain.StatusRetrabajo, false},
		{domain.StatusCerrada, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.expected {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPermittedTargets(t *testing.T) {
	targets := PermittedTargets(domain.StatusEnEjecucion, domain.RoleMecanico)
	want := map[domain.WorkOrderStatus]bool{
		domain.StatusEnPausa:            true,
		domain.StatusEsperandoRepuestos: true,
		domain.StatusEnQA:               true,
	}
	if len(targets) != len(want) {
		t.Fatalf("PermittedTargets() = %v, want %d targets", targets, len(want))
	}
	for _, target := range targets {
		if !want[target] {
			t.Errorf("unexpected target %s", target)
		}
	}

	if targets := PermittedTargets(domain.StatusCerrada, domain.RoleAdministrador); len(targets) != 0 {
		t.Errorf("closed orders must have no targets, got %v", targets)
	}

	if targets := PermittedTargets(domain.StatusEnQA, domain.RoleConductor); len(targets) != 0 {
		t.Errorf("drivers must have no qa targets, got %v", targets)
	}
}
