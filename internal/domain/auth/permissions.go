package auth

import (
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

var ErrInvalidRole = errors.New("invalid role")

// AllRoles lists roles from lowest to highest rank.
var AllRoles = []Role{RoleEmployee, RoleManager, RoleAdmin}

var roleRanks = map[Role]int{
	RoleEmployee: 1,
	RoleManager:  2,
	RoleAdmin:    3,
}

func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}

func ParseRole(value string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, value)
	}
	return role, nil
}

// Rank returns the fixed position of role in the role order.
func Rank(role Role) (int, error) {
	rank, ok := roleRanks[role]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, string(role))
	}
	return rank, nil
}

// Satisfies reports whether userRole ranks at or above any of the required roles.
// Higher roles carry every permission of the lower ones.
func Satisfies(userRole Role, required []Role) (bool, error) {
	userRank, err := Rank(userRole)
	if err != nil {
		return false, err
	}
	allowed := false
	for _, role := range required {
		rank, err := Rank(role)
		if err != nil {
			return false, err
		}
		if userRank >= rank {
			allowed = true
		}
	}
	return allowed, nil
}
