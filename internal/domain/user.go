package domain

import "strings"

// UserRole enumerates supported roles.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// UserPlan enumerates billing plans.
type UserPlan string

const (
	UserPlanFree UserPlan = "free"
	UserPlanPro  UserPlan = "pro"
)

// FreeMonthlyCredits is the free plan's monthly analysis allowance.
const FreeMonthlyCredits = 5

// ParsePlan maps backend plan strings onto the two known plans. Anything that is
// not "pro" is treated as free.
func ParsePlan(v string) UserPlan {
	if strings.EqualFold(strings.TrimSpace(v), string(UserPlanPro)) {
		return UserPlanPro
	}
	return UserPlanFree
}

// User is the identity returned on login.
type User struct {
	ID    string
	Email string
	Name  string
}

// UserProfile is the client-held copy of the server-owned account state.
type UserProfile struct {
	Email            string
	Name             string
	Plan             UserPlan
	Role             UserRole
	CreditsRemaining int
	RiskProfile      RiskProfile
	Balance          Balance
	TradingStyle     TradingStyle
}

// IsFree reports whether the profile is on the free plan.
func (p UserProfile) IsFree() bool {
	return p.Plan != UserPlanPro
}

// PlanLabel is the header badge text: Pro, Admin or Free.
func PlanLabel(plan UserPlan, isAdmin bool) string {
	switch {
	case plan == UserPlanPro:
		return "Pro"
	case isAdmin:
		return "Admin"
	default:
		return "Free"
	}
}
