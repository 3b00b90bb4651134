// Package identity models the caller resolved by the external auth layer and
// holds the authorization predicates every mutating operation consults.
package identity

import (
	"context"
	"strings"
)

// Role is the caller's role.
type Role string

const (
	RoleGuest  Role = "guest"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a role name to a Role. Unknown or empty names are guests.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleMember:
		return RoleMember
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleGuest
	}
}

// Principal is a resolved (identity, role) pair.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Guest is the anonymous principal.
var Guest = Principal{Role: RoleGuest}

// IsGuest reports whether p carries no usable identity.
func (p Principal) IsGuest() bool {
	return p.Role == RoleGuest || p.ID == ""
}

// CanCreate reports whether p may create questions, answers and comments.
func CanCreate(p Principal) bool {
	return !p.IsGuest()
}

// CanVote reports whether p may toggle upvotes and bookmarks.
func CanVote(p Principal) bool {
	return !p.IsGuest()
}

// CanAccept reports whether p may flip acceptance on a question written by
// questionAuthor. Role is irrelevant: admins are not authors.
func CanAccept(p Principal, questionAuthor string) bool {
	return !p.IsGuest() && p.ID == questionAuthor
}

// CanModify reports whether p may edit or delete content written by author.
func CanModify(p Principal, author string) bool {
	if p.IsGuest() {
		return false
	}
	return p.Role == RoleAdmin || p.ID == author
}

type ctxKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored in ctx, or Guest.
func FromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(ctxKey{}).(Principal); ok {
		return p
	}
	return Guest
}
