package controller

import (
	"encoding/json"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/charge"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"gorm.io/gorm"

	"portraitly/config"
	"portraitly/models"
	"portraitly/utils"
)

func InitStripe() {
	stripe.Key = config.AppConfig.StripeSecretKey
}

type PaymentRequest struct {
	PlanID  uint `json:"plan_id" validate:"required"`
	ForTeam bool `json:"for_team"`
}

// CreatePaymentIntent creates a Stripe Payment Intent for a credit purchase.
// Team purchases require a team-enabled plan and a team admin caller.
func CreatePaymentIntent(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// Get the plan from database
	var plan models.Plan
	if err := config.DB.First(&plan, req.PlanID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Plan not found",
		})
	}
	if plan.Price == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Plan is not purchasable",
		})
	}

	var teamID *uint
	if req.ForTeam {
		if !plan.TeamEnabled {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Plan does not support team purchases",
			})
		}
		teamID = TeamIDFor(user)
		if teamID == nil || !isTeamAdmin(user.ID, *teamID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Only team admins can purchase team credits",
			})
		}
	}

	// Create or get Stripe customer
	customerID, err := getOrCreateStripeCustomer(user)
	if err != nil {
		log.Printf("Failed to create Stripe customer for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process payment",
		})
	}

	// Create Payment Intent
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(plan.Price)),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		Customer: stripe.String(customerID),
		Metadata: map[string]string{
			"user_id": strconv.Itoa(int(user.ID)),
			"plan_id": strconv.Itoa(int(plan.ID)),
		},
		Description: stripe.String("Purchase of " + plan.Name + " plan"),
	}

	if plan.BillingInterval != "one_time" {
		params.SetupFutureUsage = stripe.String("off_session")
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		log.Printf("Failed to create payment intent: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process payment",
		})
	}

	// Create transaction record
	transaction := models.CreditTransaction{
		UserID:                user.ID,
		TeamID:                teamID,
		PlanID:                &plan.ID,
		Credits:               plan.Credits,
		Amount:                plan.Price,
		Currency:              "usd",
		PaymentStatus:         "requires_payment_method",
		StripePaymentIntentID: pi.ID,
		Description:           "Purchase of " + plan.Name + " plan",
	}

	if err := config.DB.Create(&transaction).Error; err != nil {
		log.Printf("Failed to create transaction: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process transaction",
		})
	}

	return c.JSON(fiber.Map{
		"clientSecret":   pi.ClientSecret,
		"transaction_id": transaction.ID,
		"amount":         plan.Price,
		"currency":       "usd",
	})
}

// HandlePaymentWebhook handles Stripe webhook events
func HandlePaymentWebhook(c *fiber.Ctx) error {
	event, err := utils.ConstructStripeEvent(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var paymentIntent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Error parsing payment intent",
			})
		}
		return handlePaymentIntentSucceeded(c, &paymentIntent)

	case "payment_intent.payment_failed":
		var paymentIntent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Error parsing payment intent",
			})
		}
		return handlePaymentIntentFailed(c, &paymentIntent)

	case "charge.succeeded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Error parsing charge",
			})
		}
		return handleChargeSucceeded(c, &charge)

	default:
		return c.SendStatus(fiber.StatusOK)
	}
}

// handlePaymentIntentSucceeded credits the purchased pool and upgrades the
// subscription tier when the plan calls for it.
func handlePaymentIntentSucceeded(c *fiber.Ctx, pi *stripe.PaymentIntent) error {
	var transaction models.CreditTransaction
	if err := config.DB.Where("stripe_payment_intent_id = ?", pi.ID).First(&transaction).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Transaction not found",
		})
	}

	// Webhooks can be redelivered; never credit twice
	if transaction.PaymentStatus == "succeeded" {
		return c.SendStatus(fiber.StatusOK)
	}

	transaction.PaymentStatus = "succeeded"
	if pi.PaymentMethod != nil {
		transaction.PaymentMethod = string(pi.PaymentMethod.Type)
	}

	if pi.LatestCharge != nil {
		ch, err := charge.Get(pi.LatestCharge.ID, nil)
		if err == nil {
			transaction.StripeChargeID = ch.ID
			transaction.ReceiptURL = ch.ReceiptURL
		}
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&transaction).Error; err != nil {
			return err
		}

		if transaction.TeamID != nil {
			if err := tx.Model(&models.Team{}).
				Where("id = ?", *transaction.TeamID).
				Update("credits", gorm.Expr("credits + ?", transaction.Credits)).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Model(&models.User{}).
				Where("id = ?", transaction.UserID).
				Update("credits", gorm.Expr("credits + ?", transaction.Credits)).Error; err != nil {
				return err
			}
		}

		return applyPlanUpgrade(tx, &transaction)
	})
	if err != nil {
		log.Printf("Failed to apply transaction %d: %v", transaction.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update credits",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// applyPlanUpgrade moves the buyer's subscription to the purchased tier.
func applyPlanUpgrade(tx *gorm.DB, transaction *models.CreditTransaction) error {
	if transaction.PlanID == nil {
		return nil
	}

	var plan models.Plan
	if err := tx.First(&plan, *transaction.PlanID).Error; err != nil {
		return err
	}

	tier := ""
	period := ""
	switch plan.Name {
	case "individual":
		tier = models.TierIndividual
		period = models.PeriodTryOnce
	case "pro":
		tier = models.TierPro
		period = models.PeriodSeats
	default:
		return nil
	}
	if plan.BillingInterval == "monthly" {
		period = models.PeriodMonthly
	} else if plan.BillingInterval == "annual" {
		period = models.PeriodAnnual
	}

	var sub models.Subscription
	err := tx.Where("user_id = ?", transaction.UserID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		sub = models.Subscription{UserID: transaction.UserID}
	}

	sub.PlanID = &plan.ID
	sub.Tier = tier
	sub.Period = period
	return tx.Save(&sub).Error
}

// handleChargeSucceeded handles charge.succeeded events
func handleChargeSucceeded(c *fiber.Ctx, ch *stripe.Charge) error {
	if ch.PaymentIntent == nil {
		return c.SendStatus(fiber.StatusOK)
	}

	var transaction models.CreditTransaction
	if err := config.DB.Where("stripe_payment_intent_id = ?", ch.PaymentIntent.ID).First(&transaction).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Transaction not found",
		})
	}

	transaction.StripeChargeID = ch.ID
	transaction.ReceiptURL = ch.ReceiptURL

	if err := config.DB.Save(&transaction).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update transaction",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// handlePaymentIntentFailed processes failed payments
func handlePaymentIntentFailed(c *fiber.Ctx, pi *stripe.PaymentIntent) error {
	var transaction models.CreditTransaction
	if err := config.DB.Where("stripe_payment_intent_id = ?", pi.ID).First(&transaction).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Transaction not found",
		})
	}

	transaction.PaymentStatus = "failed"
	if pi.LastPaymentError != nil {
		errorMessage := "Payment failed"
		if pi.LastPaymentError.Msg != "" {
			errorMessage = "Payment failed: " + pi.LastPaymentError.Msg
		}
		transaction.Description = errorMessage
	}

	if err := config.DB.Save(&transaction).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update transaction",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// getOrCreateStripeCustomer gets or creates a Stripe customer
func getOrCreateStripeCustomer(user *models.User) (string, error) {
	if user.StripeCustomerID != nil {
		return *user.StripeCustomerID, nil
	}

	var name string
	if user.Name != nil {
		name = *user.Name
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(name),
		Metadata: map[string]string{
			"user_id": strconv.Itoa(int(user.ID)),
		},
	}

	c, err := customer.New(params)
	if err != nil {
		return "", err
	}

	user.StripeCustomerID = &c.ID
	if err := config.DB.Save(user).Error; err != nil {
		return "", err
	}

	return c.ID, nil
}
