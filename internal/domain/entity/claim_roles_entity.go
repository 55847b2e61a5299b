package entity

import "strings"

// ClaimRoles maps a principal name to a comma-separated role list.
// It backs role checks for principals whose credentials carry no roles.
type ClaimRoles struct {
	Name  string `json:"name" binding:"required,max=50"`
	Roles string `json:"roles" binding:"required,max=2048"`
}

// RoleList splits Roles, dropping blanks.
func (c ClaimRoles) RoleList() []string {
	parts := strings.Split(c.Roles, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
