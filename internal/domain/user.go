package domain

import (
	"context"
	"strings"
)

// Role capability of a user
type Role uint8

const (
	RoleClient Role = 1 << iota
	RoleSpecialist
	RoleAdmin
)

var roleNames = []struct {
	role Role
	name string
}{
	{RoleClient, "client"},
	{RoleSpecialist, "specialist"},
	{RoleAdmin, "admin"},
}

// ParseRole converts a role name into a Role
func ParseRole(s string) (Role, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, rn := range roleNames {
		if rn.name == s {
			return rn.role, true
		}
	}
	return 0, false
}

func (r Role) String() string {
	for _, rn := range roleNames {
		if rn.role == r {
			return rn.name
		}
	}
	return "unknown"
}

// RoleSet набор ролей пользователя
type RoleSet uint8

// NewRoleSet builds a set from roles
func NewRoleSet(roles ...Role) RoleSet {
	var set RoleSet
	for _, r := range roles {
		set |= RoleSet(r)
	}
	return set
}

// ParseRoleSet разбирает список ролей через запятую, неизвестные роли пропускаются
func ParseRoleSet(s string) RoleSet {
	var set RoleSet
	for _, part := range strings.Split(s, ",") {
		if r, ok := ParseRole(part); ok {
			set |= RoleSet(r)
		}
	}
	return set
}

func (s RoleSet) Has(r Role) bool {
	return s&RoleSet(r) != 0
}

// Names returns role names in a stable order
func (s RoleSet) Names() []string {
	names := make([]string, 0, len(roleNames))
	for _, rn := range roleNames {
		if s.Has(rn.role) {
			names = append(names, rn.name)
		}
	}
	return names
}

func (s RoleSet) String() string {
	return strings.Join(s.Names(), ",")
}

// User участник системы; специфика специалиста вынесена в SpecialistProfile
type User struct {
	ID    int64
	Name  string
	Roles RoleSet
}

func (u *User) IsSpecialist() bool {
	return u.Roles.Has(RoleSpecialist)
}

// SpecialistProfile value object attached to a user with the specialist role
type SpecialistProfile struct {
	UserID    int64
	Specialty string
	Bio       *string
}

// Principal authenticated caller of the current request
type Principal struct {
	UserID int64
	Roles  RoleSet
}

func (p Principal) IsAdmin() bool {
	return p.Roles.Has(RoleAdmin)
}

// CanBookFor a client may book only for themselves, an admin for anyone
func (p Principal) CanBookFor(clientID int64) bool {
	return p.IsAdmin() || p.UserID == clientID
}

// CanView the reservation's client, its specialist or an admin
func (p Principal) CanView(r *Reservation) bool {
	return p.IsAdmin() || r.InvolvesUser(p.UserID)
}

// CanCancel совпадает с правами на просмотр
func (p Principal) CanCancel(r *Reservation) bool {
	return p.CanView(r)
}

// CanChangeStatus only the reservation's specialist or an admin
func (p Principal) CanChangeStatus(r *Reservation) bool {
	return p.IsAdmin() || (p.Roles.Has(RoleSpecialist) && r.SpecialistID == p.UserID)
}

// CanManageSpecialist the specialist themselves or an admin
func (p Principal) CanManageSpecialist(specialistID int64) bool {
	return p.IsAdmin() || p.UserID == specialistID
}

type principalKey struct{}

// WithPrincipal stores the principal in a request-scoped context
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal set by the auth middleware
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
