package models

import "gorm.io/gorm"

// Plan represents available credit packages and subscription tiers
type Plan struct {
	gorm.Model
	Name        string `gorm:"not null;uniqueIndex" json:"name"` // free, individual, pro
	Description string `json:"description"`

	// Generation credits included with the plan
	Credits int `gorm:"not null" json:"credits"`
	Price   int `gorm:"not null" json:"price"` // in cents

	// Features
	TeamEnabled     bool `gorm:"default:false" json:"team_enabled"`
	MaxTeamSeats    int  `gorm:"default:1" json:"max_team_seats"`
	CustomBranding  bool `gorm:"default:false" json:"custom_branding"`
	PriorityRender  bool `gorm:"default:false" json:"priority_render"`
	MaxSelfieUpload int  `gorm:"default:20" json:"max_selfie_upload"`

	// For display purposes
	DisplayPrice string `gorm:"-" json:"display_price"` // e.g. "$29"
	IsPopular    bool   `gorm:"default:false" json:"is_popular"`

	StripePriceID   string `json:"stripe_price_id"`
	BillingInterval string `json:"billing_interval" gorm:"default:'one_time'"` // one_time, monthly, annual
}

// Subscription links an account to its current plan tier and billing period
type Subscription struct {
	gorm.Model
	UserID uint  `gorm:"not null;index" json:"user_id"`
	PlanID *uint `json:"plan_id,omitempty"`

	Tier   string `gorm:"default:''" json:"tier"`       // "", individual, pro
	Period string `gorm:"default:'free'" json:"period"` // free, try_once, monthly, annual, seats

	StripeSubscriptionID *string `json:"stripe_subscription_id,omitempty"`

	// Relations
	User User  `json:"-"`
	Plan *Plan `json:"plan,omitempty"`
}

// CreditTransaction records credit purchases
type CreditTransaction struct {
	gorm.Model
	UserID uint  `gorm:"not null;index" json:"user_id"`
	TeamID *uint `gorm:"index" json:"team_id,omitempty"` // set when purchasing for the team pool
	PlanID *uint `json:"plan_id,omitempty"`

	// Credit changes; positive for purchases, negative for refunds
	Credits int `gorm:"not null" json:"credits"`

	// Financial information
	Amount        int    `json:"amount"` // in cents
	Currency      string `gorm:"default:'USD'" json:"currency"`
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `gorm:"default:'pending'" json:"payment_status"` // pending, succeeded, failed, refunded

	Description string `json:"description"`

	StripePaymentIntentID string `json:"stripe_payment_intent_id"`
	StripeChargeID        string `json:"stripe_charge_id"`
	ReceiptURL            string `json:"receipt_url,omitempty"`

	// Relations
	User User  `json:"-"`
	Plan *Plan `json:"plan,omitempty"`
}

// CreditUsage tracks per-generation credit consumption
type CreditUsage struct {
	gorm.Model
	UserID       uint  `gorm:"not null;index" json:"user_id"`
	TeamID       *uint `gorm:"index" json:"team_id,omitempty"`
	GenerationID *uint `json:"generation_id,omitempty"`

	Pool   string `gorm:"not null" json:"pool"`   // individual or team
	Amount int    `gorm:"not null" json:"amount"` // Always positive
	Action string `gorm:"not null" json:"action"` // generate, refund

	// Relations
	User       User        `json:"-"`
	Generation *Generation `json:"generation,omitempty"`
}

// CreateDefaultPlans seeds the plan table on first migration
func CreateDefaultPlans(db *gorm.DB) error {
	defaultPlans := []Plan{
		{
			Name:            "free",
			Description:     "Free plan with a single trial generation",
			Credits:         10,
			Price:           0,
			MaxSelfieUpload: 6,
		},
		{
			Name:            "individual",
			Description:     "Individual plan with 100 generation credits",
			Credits:         100,
			Price:           2900, // $29
			MaxSelfieUpload: 20,
			DisplayPrice:    "$29",
			IsPopular:       true,
		},
		{
			Name:            "pro",
			Description:     "Team plan with shared credits and branded styles",
			Credits:         500,
			Price:           9900, // $99
			TeamEnabled:     true,
			MaxTeamSeats:    25,
			CustomBranding:  true,
			PriorityRender:  true,
			MaxSelfieUpload: 50,
			DisplayPrice:    "$99",
			BillingInterval: "seats",
		},
	}
	for _, plan := range defaultPlans {
		if err := db.FirstOrCreate(&plan, "name = ?", plan.Name).Error; err != nil {
			return err
		}
	}
	return nil
}
