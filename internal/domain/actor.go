package domain

// Role enumerates workshop operator roles.
type Role string

const (
	RoleConductor     Role = "CONDUCTOR"
	RoleMecanico      Role = "MECANICO"
	RoleJefeTaller    Role = "JEFE_TALLER"
	RoleSupervisor    Role = "SUPERVISOR"
	RoleAdministrador Role = "ADMINISTRADOR"
)

// Actor is the authenticated identity plus role performing an operation.
// Credentials are validated by the surrounding platform; this service only
// authorizes actions given an already-resolved role.
type Actor struct {
	IdentityID string `json:"identity_id"`
	Name       string `json:"name,omitempty"`
	Role       Role   `json:"role"`
}

// IsValid reports whether the role is a known one.
func (r Role) IsValid() bool {
	switch r {
	case RoleConductor, RoleMecanico, RoleJefeTaller, RoleSupervisor, RoleAdministrador:
		return true
	}
	return false
}
