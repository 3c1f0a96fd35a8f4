package controller

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"portraitly/config"
	"portraitly/models"
	"portraitly/utils"
)

type AppSettingRequest struct {
	Value string `json:"value" validate:"required,max=500"`
}

// GetAppSetting returns one admin-tunable setting by key.
func GetAppSetting(c *fiber.Ctx) error {
	key := c.Params("key")

	var setting models.AppSetting
	if err := config.DB.Where("key = ?", key).First(&setting).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Setting not found",
		})
	}

	return c.JSON(setting)
}

// SetAppSetting creates or updates a setting. The free_package_style_id key
// must point at an existing system context.
func SetAppSetting(c *fiber.Ctx) error {
	key := c.Params("key")

	var req AppSettingRequest
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

	if key == models.SettingFreePackageStyleID {
		var ctx models.Context
		if err := config.DB.Where("id = ? AND user_id IS NULL AND team_id IS NULL",
			utils.ParseUint(req.Value)).First(&ctx).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Value must reference a system context",
			})
		}
	}

	setting := models.AppSetting{Key: key, Value: req.Value}
	err := config.DB.Where("key = ?", key).
		Assign(models.AppSetting{Value: req.Value}).
		FirstOrCreate(&setting).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save setting",
		})
	}

	return c.JSON(setting)
}

// CreateSystemContext creates an unowned context usable as the free preset.
func CreateSystemContext(c *fiber.Ctx) error {
	var req ContextRequest
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

	ctx := models.Context{
		Name:         req.Name,
		PackageID:    req.PackageID,
		Settings:     req.Settings,
		CustomPrompt: req.CustomPrompt,
	}
	if err := config.DB.Create(&ctx).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create context",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(ctx)
}

// AdminStats returns coarse operational counters.
func AdminStats(c *fiber.Ctx) error {
	stats := fiber.Map{}

	counts := map[string]interface{}{
		"users":       &models.User{},
		"teams":       &models.Team{},
		"generations": &models.Generation{},
		"contexts":    &models.Context{},
	}
	for name, model := range counts {
		var n int64
		if err := config.DB.Model(model).Count(&n).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to gather stats",
			})
		}
		stats[name] = n
	}

	var inFlight int64
	config.DB.Model(&models.Generation{}).
		Where("status IN ?", []string{models.GenerationStatusPending, models.GenerationStatusProcessing}).
		Count(&inFlight)
	stats["generations_in_flight"] = inFlight

	var spent struct{ Total int64 }
	config.DB.Model(&models.CreditUsage{}).
		Select("COALESCE(SUM(CASE WHEN action = 'generate' THEN amount ELSE -amount END), 0) AS total").
		Scan(&spent)
	stats["credits_spent"] = spent.Total

	return c.JSON(stats)
}

// GrantCredits tops up a user's or team's pool without a payment.
func GrantCredits(c *fiber.Ctx) error {
	var req struct {
		UserID  *uint `json:"user_id"`
		TeamID  *uint `json:"team_id"`
		Credits int   `json:"credits" validate:"required,min=1"`
	}
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
	if (req.UserID == nil) == (req.TeamID == nil) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Exactly one of user_id or team_id is required",
		})
	}

	var result *gorm.DB
	if req.UserID != nil {
		result = config.DB.Model(&models.User{}).
			Where("id = ?", *req.UserID).
			Update("credits", gorm.Expr("credits + ?", req.Credits))
	} else {
		result = config.DB.Model(&models.Team{}).
			Where("id = ?", *req.TeamID).
			Update("credits", gorm.Expr("credits + ?", req.Credits))
	}
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to grant credits",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Account not found",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
