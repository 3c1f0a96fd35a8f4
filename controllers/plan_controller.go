package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"portraitly/config"
	"portraitly/models"
)

// ResolveAccountPlan loads everything the plan rules need for one account and
// derives its PlanInfo. Lookups that fail resolve to the free plan; the
// resolver itself never errors.
func ResolveAccountPlan(user *models.User) (models.PlanInfo, models.CreditBalance) {
	balance := models.CreditBalance{Individual: user.Credits}

	var sub *models.Subscription
	var found models.Subscription
	err := config.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		First(&found).Error
	if err == nil {
		sub = &found
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		// Treat a read failure like a missing subscription: the account
		// resolves to the free plan instead of losing access entirely.
		sub = nil
	}

	role := models.RoleIndividual
	onTeam := false
	var membership models.TeamMember
	if err := config.DB.Where("user_id = ?", user.ID).First(&membership).Error; err == nil {
		role = membership.Role
		onTeam = true

		var team models.Team
		if err := config.DB.First(&team, membership.TeamID).Error; err == nil {
			balance.Team = team.Credits
		}
	} else if user.TeamID != nil {
		// Membership row missing but the foreign key survives; count the
		// account as on-team so the pooled balance stays reachable.
		onTeam = true
		var team models.Team
		if err := config.DB.First(&team, *user.TeamID).Error; err == nil {
			balance.Team = team.Credits
		}
	}

	return models.ResolvePlanInfo(sub, role, onTeam, balance), balance
}

// TeamIDFor returns the team an account generates into, preferring the
// membership row over the denormalized user column.
func TeamIDFor(user *models.User) *uint {
	var membership models.TeamMember
	if err := config.DB.Where("user_id = ?", user.ID).First(&membership).Error; err == nil {
		return &membership.TeamID
	}
	return user.TeamID
}

// GetPlan returns the derived plan view for the authenticated account.
func GetPlan(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	info, balance := ResolveAccountPlan(user)
	return c.JSON(fiber.Map{
		"plan":    info,
		"credits": balance,
	})
}

// ListPlans returns the purchasable plan catalog.
func ListPlans(c *fiber.Ctx) error {
	var plans []models.Plan
	if err := config.DB.Order("price ASC").Find(&plans).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch plans",
		})
	}
	return c.JSON(fiber.Map{"plans": plans})
}
