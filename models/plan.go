package models

// Subscription tiers and billing periods
const (
	TierIndividual = "individual"
	TierPro        = "pro"

	PeriodFree    = "free"
	PeriodTryOnce = "try_once"
	PeriodMonthly = "monthly"
	PeriodAnnual  = "annual"
	PeriodSeats   = "seats"
)

// Account roles relative to a team
const (
	RoleIndividual = "individual"
	RoleTeamAdmin  = "team_admin"
	RoleTeamMember = "team_member"
)

// Generation scopes, deciding which credit pool gets debited
const (
	GenerationTypePersonal = "personal"
	GenerationTypeTeam     = "team"
)

// CreditBalance holds the two credit pools visible to an account.
type CreditBalance struct {
	Individual int `json:"individual"`
	Team       int `json:"team"`
}

// PlanInfo is the derived, non-persisted view of an account's subscription.
type PlanInfo struct {
	Tier   string `json:"tier"`
	Period string `json:"period"`

	IsFreePlan          bool `json:"is_free_plan"`
	IsProUser           bool `json:"is_pro_user"`
	IsTeamAdmin         bool `json:"is_team_admin"`
	IsTeamMember        bool `json:"is_team_member"`
	HasTeamAccess       bool `json:"has_team_access"`
	HasIndividualAccess bool `json:"has_individual_access"`

	// GenerationType is personal, team, or empty when unresolved
	GenerationType string `json:"generation_type"`
}

// ResolvePlanInfo derives PlanInfo from the subscription, the account's team
// role ("" or RoleIndividual when not on a team), team membership, and the
// current credit balances. Absent data resolves to the most restrictive
// (free) interpretation; there are no error cases.
//
// Generation type precedence, first match wins:
//  1. team_admin / team_member role always generates into the team scope
//  2. a paid pro subscription generates into the team scope
//  3. a positive individual balance generates personally
//  4. team access with a positive team balance generates into the team scope
func ResolvePlanInfo(sub *Subscription, role string, onTeam bool, balance CreditBalance) PlanInfo {
	info := PlanInfo{Period: PeriodFree}
	if sub != nil {
		info.Tier = sub.Tier
		if sub.Period != "" {
			info.Period = sub.Period
		}
	}

	info.IsProUser = info.Tier == TierPro
	info.IsTeamAdmin = role == RoleTeamAdmin
	info.IsTeamMember = role == RoleTeamMember
	info.HasTeamAccess = onTeam || info.IsTeamAdmin || info.IsTeamMember
	info.HasIndividualAccess = info.Tier == TierIndividual || balance.Individual > 0

	// Intentionally broader than "no paid tier": a pro account still inside
	// its free trial period counts as free.
	info.IsFreePlan = info.Tier == "" || info.Period == PeriodFree

	switch {
	case info.IsTeamAdmin || info.IsTeamMember:
		info.GenerationType = GenerationTypeTeam
	case info.IsProUser && info.Period != PeriodFree:
		info.GenerationType = GenerationTypeTeam
	case balance.Individual > 0:
		info.GenerationType = GenerationTypePersonal
	case info.HasTeamAccess && balance.Team > 0:
		info.GenerationType = GenerationTypeTeam
	}

	return info
}

// PoolBalance returns the balance of the pool a generation type draws from.
func (b CreditBalance) PoolBalance(generationType string) int {
	if generationType == GenerationTypeTeam {
		return b.Team
	}
	return b.Individual
}
