package entity

// Roles recognized by the approval gates.
const (
	RoleOfficer        = "OFFICER"
	RoleSectionHead    = "SECTION_HEAD"
	RoleDepartmentHead = "DEPARTMENT_HEAD"
)

// User is the already-authenticated principal acting on a request.
// Authentication itself happens outside this service.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	OfficeID string `json:"office_id"`
}

// IsSectionHead reports whether the user carries the section head role.
func (u *User) IsSectionHead() bool {
	return u.Role == RoleSectionHead
}

// IsDepartmentHead reports whether the user carries the department head role.
func (u *User) IsDepartmentHead() bool {
	return u.Role == RoleDepartmentHead
}
