package controller

import (
	"github.com/gofiber/fiber/v2"

	"portraitly/config"
	"portraitly/models"
)

// GetCreditBalance returns both credit pools visible to the account.
func GetCreditBalance(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	info, balance := ResolveAccountPlan(user)

	return c.JSON(fiber.Map{
		"credits":         balance,
		"generation_type": info.GenerationType,
		"generation_cost": models.GenerationCost,
	})
}

// ListCreditTransactions returns the account's purchase history.
func ListCreditTransactions(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	var transactions []models.CreditTransaction
	if err := config.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&transactions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch transactions",
		})
	}

	return c.JSON(fiber.Map{
		"transactions": transactions,
		"limit":        limit,
		"offset":       offset,
	})
}

// ListCreditUsage returns per-generation spend and refunds.
func ListCreditUsage(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	query := config.DB.Where("user_id = ?", user.ID)
	if c.Query("scope") == "team" {
		teamID := TeamIDFor(user)
		if teamID == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Account is not on a team",
			})
		}
		query = config.DB.Where("team_id = ?", *teamID)
	}

	var usage []models.CreditUsage
	if err := query.Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&usage).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch credit usage",
		})
	}

	return c.JSON(fiber.Map{
		"usage":  usage,
		"limit":  limit,
		"offset": offset,
	})
}
