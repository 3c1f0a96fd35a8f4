package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePlanInfoNilSubscriptionIsFree(t *testing.T) {
	info := ResolvePlanInfo(nil, RoleIndividual, false, CreditBalance{})

	assert.True(t, info.IsFreePlan)
	assert.False(t, info.IsProUser)
	assert.Empty(t, info.GenerationType)
	assert.Equal(t, PeriodFree, info.Period)
}

func TestResolvePlanInfoFreePlanBreadth(t *testing.T) {
	// Free plan is broader than "no paid tier": a pro subscription still on
	// its free period counts as free.
	tests := []struct {
		name string
		sub  *Subscription
		free bool
	}{
		{"no subscription", nil, true},
		{"empty tier", &Subscription{Period: PeriodMonthly}, true},
		{"pro on free period", &Subscription{Tier: TierPro, Period: PeriodFree}, true},
		{"individual try once", &Subscription{Tier: TierIndividual, Period: PeriodTryOnce}, false},
		{"pro on seats", &Subscription{Tier: TierPro, Period: PeriodSeats}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ResolvePlanInfo(tt.sub, RoleIndividual, false, CreditBalance{})
			assert.Equal(t, tt.free, info.IsFreePlan)
		})
	}
}

func TestResolvePlanInfoTeamRoleAlwaysGeneratesTeam(t *testing.T) {
	// Team roles take precedence regardless of tier or balances
	for _, role := range []string{RoleTeamAdmin, RoleTeamMember} {
		info := ResolvePlanInfo(
			&Subscription{Tier: TierIndividual, Period: PeriodMonthly},
			role, true,
			CreditBalance{Individual: 100, Team: 0},
		)
		assert.Equal(t, GenerationTypeTeam, info.GenerationType, "role %s", role)
		assert.True(t, info.HasTeamAccess)
	}
}

func TestResolvePlanInfoPaidProGeneratesTeam(t *testing.T) {
	info := ResolvePlanInfo(
		&Subscription{Tier: TierPro, Period: PeriodMonthly},
		RoleIndividual, false,
		CreditBalance{Individual: 50},
	)

	assert.True(t, info.IsProUser)
	assert.Equal(t, GenerationTypeTeam, info.GenerationType)
}

func TestResolvePlanInfoProOnFreePeriodFallsThrough(t *testing.T) {
	// A pro tier still inside the free period does not force the team scope;
	// the individual balance decides.
	info := ResolvePlanInfo(
		&Subscription{Tier: TierPro, Period: PeriodFree},
		RoleIndividual, false,
		CreditBalance{Individual: 20},
	)

	assert.Equal(t, GenerationTypePersonal, info.GenerationType)
}

func TestResolvePlanInfoIndividualBalanceGeneratesPersonal(t *testing.T) {
	info := ResolvePlanInfo(
		&Subscription{Tier: TierIndividual, Period: PeriodTryOnce},
		RoleIndividual, false,
		CreditBalance{Individual: 10},
	)

	assert.Equal(t, GenerationTypePersonal, info.GenerationType)
	assert.True(t, info.HasIndividualAccess)
}

func TestResolvePlanInfoTeamBalanceFallback(t *testing.T) {
	// No role, no paid pro, empty individual pool, but on a funded team
	info := ResolvePlanInfo(nil, "", true, CreditBalance{Team: 30})

	assert.Equal(t, GenerationTypeTeam, info.GenerationType)
}

func TestResolvePlanInfoNoFundsUnresolved(t *testing.T) {
	info := ResolvePlanInfo(nil, "", false, CreditBalance{})

	assert.Empty(t, info.GenerationType)
	assert.False(t, info.HasTeamAccess)
	assert.False(t, info.HasIndividualAccess)
}

func TestPoolBalance(t *testing.T) {
	b := CreditBalance{Individual: 15, Team: 40}

	assert.Equal(t, 40, b.PoolBalance(GenerationTypeTeam))
	assert.Equal(t, 15, b.PoolBalance(GenerationTypePersonal))
	assert.Equal(t, 15, b.PoolBalance(""))
}
