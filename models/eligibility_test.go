package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckEligibilityReady(t *testing.T) {
	out := CheckEligibility(EligibilityInput{
		SelfieCount:    3,
		Balance:        50,
		GenerationType: GenerationTypePersonal,
	})

	assert.Equal(t, EligibilityReady, out.State)
	assert.True(t, out.CanGenerate)
	assert.False(t, out.InsufficientCredits)
	assert.Empty(t, out.Message)
}

func TestCheckEligibilityInsufficientSelection(t *testing.T) {
	for _, count := range []int{0, 1} {
		out := CheckEligibility(EligibilityInput{
			SelfieCount:    count,
			Balance:        100,
			GenerationType: GenerationTypePersonal,
		})

		assert.Equal(t, EligibilityInsufficientSelection, out.State, "count %d", count)
		assert.False(t, out.CanGenerate)
		assert.Contains(t, out.Message, "at least 2")
	}
}

func TestCheckEligibilityInsufficientCreditsCoOccursWithReady(t *testing.T) {
	// Enough selfies but an empty pool: the state machine still says ready,
	// with the credit flag raised independently.
	out := CheckEligibility(EligibilityInput{
		SelfieCount:    2,
		Balance:        0,
		GenerationType: GenerationTypePersonal,
	})

	assert.Equal(t, EligibilityReady, out.State)
	assert.True(t, out.InsufficientCredits)
	assert.False(t, out.CanGenerate)
	assert.Equal(t, GenerationCost, out.CreditsRequired)
	assert.Equal(t, 0, out.CreditsCurrent)
}

func TestCheckEligibilityCreditsBoundary(t *testing.T) {
	out := CheckEligibility(EligibilityInput{
		SelfieCount:    2,
		Balance:        GenerationCost,
		GenerationType: GenerationTypePersonal,
	})
	assert.True(t, out.CanGenerate)
	assert.False(t, out.InsufficientCredits)

	out = CheckEligibility(EligibilityInput{
		SelfieCount:    2,
		Balance:        GenerationCost - 1,
		GenerationType: GenerationTypePersonal,
	})
	assert.False(t, out.CanGenerate)
	assert.True(t, out.InsufficientCredits)
}

func TestCheckEligibilityNeedsContext(t *testing.T) {
	out := CheckEligibility(EligibilityInput{
		SelfieCount:     5,
		Balance:         100,
		GenerationType:  GenerationTypeTeam,
		RequiresContext: true,
	})

	assert.Equal(t, EligibilityNeedsContext, out.State)
	assert.Contains(t, out.Message, "style")
}

func TestCheckEligibilityAvailableContextsSatisfyRequirement(t *testing.T) {
	// Having selectable contexts is enough; one need not be active yet
	out := CheckEligibility(EligibilityInput{
		SelfieCount:          5,
		Balance:              100,
		GenerationType:       GenerationTypeTeam,
		RequiresContext:      true,
		HasAvailableContexts: true,
	})

	assert.Equal(t, EligibilityReady, out.State)
	assert.True(t, out.CanGenerate)
}

func TestCheckEligibilitySelectionOutranksContext(t *testing.T) {
	out := CheckEligibility(EligibilityInput{
		SelfieCount:     1,
		Balance:         100,
		GenerationType:  GenerationTypeTeam,
		RequiresContext: true,
	})

	assert.Equal(t, EligibilityInsufficientSelection, out.State)
}

func TestCheckEligibilityUnresolvedTypeBlocksGeneration(t *testing.T) {
	out := CheckEligibility(EligibilityInput{
		SelfieCount:    3,
		Balance:        100,
		GenerationType: "",
	})

	assert.Equal(t, EligibilityReady, out.State)
	assert.False(t, out.CanGenerate)
}

func TestCheckEligibilityCreditMessageDoesNotMaskSelectionMessage(t *testing.T) {
	out := CheckEligibility(EligibilityInput{
		SelfieCount:    0,
		Balance:        0,
		GenerationType: GenerationTypePersonal,
	})

	assert.Equal(t, EligibilityInsufficientSelection, out.State)
	assert.True(t, out.InsufficientCredits)
	assert.Contains(t, out.Message, "at least 2")
}
