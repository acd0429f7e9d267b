// Package access maps a user's state to a role and decides which pages the
// role may open.
package access

import (
	"strings"

	"w3lottery/internal/models"
)

type Role string

const (
	RoleGuest    Role = "guest"
	RoleUser     Role = "user"
	RoleAdmin    Role = "admin"
	RoleVerifier Role = "verifier"
)

type Permission string

const (
	ViewResults     Permission = "viewResults"
	BuyTickets      Permission = "buyTickets"
	ViewHistory     Permission = "viewHistory"
	ManageLotteries Permission = "manageLotteries"
	ManageDraws     Permission = "manageDraws"
	VerifyKyc       Permission = "verifyKyc"
)

// Reason explains a denied check.
type Reason string

const (
	WalletRequired Reason = "walletRequired"
	KycRequired    Reason = "kycRequired"
	AdminRequired  Reason = "adminRequired"
	Unauthorized   Reason = "unauthorized"
	// SessionExpired is set when the backend rejects the session.
	SessionExpired Reason = "sessionExpired"
)

var permissions = map[Role][]Permission{
	RoleGuest:    {ViewResults},
	RoleUser:     {ViewResults, BuyTickets, ViewHistory},
	RoleAdmin:    {ViewResults, BuyTickets, ViewHistory, ManageLotteries, ManageDraws},
	RoleVerifier: {ViewResults, BuyTickets, ViewHistory, VerifyKyc},
}

// Rule is what a route requires.
type Rule struct {
	RequireWallet bool
	RequireKyc    bool
	RequireAdmin  bool
	Permissions   []Permission
}

// Routes is the access table. Paths not listed are open.
var Routes = map[string]Rule{
	"/":             {},
	"/results":      {Permissions: []Permission{ViewResults}},
	"/buy":          {RequireWallet: true, RequireKyc: true, Permissions: []Permission{BuyTickets}},
	"/history":      {RequireWallet: true, RequireKyc: true, Permissions: []Permission{ViewHistory}},
	"/admin/manage": {RequireWallet: true, RequireKyc: true, RequireAdmin: true, Permissions: []Permission{ManageLotteries, ManageDraws}},
	"/admin/user":   {RequireWallet: true, RequireKyc: true, RequireAdmin: true, Permissions: []Permission{ManageLotteries}},
	"/kyc":          {RequireWallet: true},
}

// RoleOf picks the role for a user state.
func RoleOf(st models.UserState) Role {
	switch {
	case !st.IsConnected:
		return RoleGuest
	case st.IsAdmin:
		return RoleAdmin
	case st.IsVerified:
		return RoleUser
	default:
		return RoleGuest
	}
}

// Has reports whether role holds p.
func (r Role) Has(p Permission) bool {
	for _, have := range permissions[r] {
		if have == p {
			return true
		}
	}
	return false
}

// Permissions returns the permissions of role.
func (r Role) Permissions() []Permission {
	return append([]Permission(nil), permissions[r]...)
}

// Result is the outcome of Check.
type Result struct {
	Allowed bool
	Reason  Reason
}

// RuleFor returns the rule of the closest listed prefix of path.
func RuleFor(path string) (Rule, bool) {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		path = "/"
	}
	for p := path; ; {
		if rule, ok := Routes[p]; ok {
			return rule, true
		}
		i := strings.LastIndex(p, "/")
		if i <= 0 {
			return Rule{}, false
		}
		p = p[:i]
	}
}

// Check decides whether st may open path.
func Check(path string, st models.UserState) Result {
	rule, ok := RuleFor(path)
	if !ok {
		return Result{Allowed: true}
	}
	if rule.RequireWallet && !st.IsConnected {
		return Result{Reason: WalletRequired}
	}
	if rule.RequireKyc && !st.IsVerified {
		return Result{Reason: KycRequired}
	}
	if rule.RequireAdmin && !st.IsAdmin {
		return Result{Reason: AdminRequired}
	}
	role := RoleOf(st)
	for _, p := range rule.Permissions {
		if !role.Has(p) {
			return Result{Reason: Unauthorized}
		}
	}
	return Result{Allowed: true}
}

// Redirect is where a denied user is sent.
func Redirect(st models.UserState) string {
	switch {
	case !st.IsConnected:
		return "/"
	case !st.IsVerified:
		return "/kyc"
	default:
		return "/"
	}
}
