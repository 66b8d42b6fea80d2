package models

import "fmt"

// Role задаёт категорию доступа пользователя.
type Role string

const (
	RoleUser    Role = "user"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

// Roles lists every role in the order the admin role selector shows them.
var Roles = []Role{RoleUser, RoleCreator, RoleAdmin}

// ParseRole превращает строку в одну из трёх известных ролей.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	switch role {
	case RoleUser, RoleCreator, RoleAdmin:
		return role, nil
	}
	return "", fmt.Errorf("invalid role value: %q", s)
}

func (r Role) String() string {
	return string(r)
}
