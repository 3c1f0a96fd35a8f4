package models

import "fmt"

// GenerationCost is the fixed credit price of one generation.
const GenerationCost = 10

// MinSelfieSelection is the minimum number of selected selfies required
// before the generate action becomes available.
const MinSelfieSelection = 2

// Eligibility states. insufficient-credits is not a state of its own: it is
// evaluated independently and can co-occur with ready ("ready but blocked
// by credits").
const (
	EligibilityInsufficientSelection = "insufficient-selection"
	EligibilityNeedsContext          = "needs-context"
	EligibilityReady                 = "ready"
)

// EligibilityInput captures everything the gate looks at.
type EligibilityInput struct {
	SelfieCount          int
	Balance              int // balance of the pool the resolved type draws from
	GenerationType       string
	RequiresContext      bool // team/pro scope must have a named style
	HasActiveContext     bool
	HasAvailableContexts bool
}

// Eligibility is the gate's verdict plus user-facing message parameters.
type Eligibility struct {
	State               string `json:"state"`
	CanGenerate         bool   `json:"can_generate"`
	InsufficientCredits bool   `json:"insufficient_credits"`
	CreditsRequired     int    `json:"credits_required"`
	CreditsCurrent      int    `json:"credits_current"`
	Message             string `json:"message,omitempty"`
}

// CheckEligibility decides whether the generate action is enabled and which
// messaging applies. Categories left at user-choice never block submission;
// they are resolved later by the rendering backend.
func CheckEligibility(in EligibilityInput) Eligibility {
	out := Eligibility{
		State:           EligibilityReady,
		CreditsRequired: GenerationCost,
		CreditsCurrent:  in.Balance,
	}

	switch {
	case in.SelfieCount < MinSelfieSelection:
		out.State = EligibilityInsufficientSelection
		out.Message = fmt.Sprintf("Select at least %d selfies to generate", MinSelfieSelection)
	case in.RequiresContext && !in.HasActiveContext && !in.HasAvailableContexts:
		out.State = EligibilityNeedsContext
		out.Message = "Create a style before generating"
	}

	// Evaluated independently of the state machine above
	if in.Balance < GenerationCost {
		out.InsufficientCredits = true
		if out.Message == "" {
			out.Message = fmt.Sprintf("Not enough credits: %d required, %d available", GenerationCost, in.Balance)
		}
	}

	out.CanGenerate = in.SelfieCount >= MinSelfieSelection &&
		in.Balance >= GenerationCost &&
		in.GenerationType != ""

	return out
}
