package controller

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/fiber/v2"

	"portraitly/config"
	"portraitly/models"
	"portraitly/styles"
	"portraitly/utils"
)

var (
	styleLoaderOnce sync.Once
	styleLoader     *utils.StyleLoader
)

func getStyleLoader() *utils.StyleLoader {
	styleLoaderOnce.Do(func() {
		styleLoader = utils.NewStyleLoader(config.DB, log.Default())
	})
	return styleLoader
}

type ContextRequest struct {
	Name         string          `json:"name" validate:"omitempty,max=100"`
	PackageID    string          `json:"package_id" validate:"omitempty,max=50"`
	Settings     json.RawMessage `json:"settings"`
	CustomPrompt string          `json:"custom_prompt" validate:"omitempty,max=2000"`
	Scope        string          `json:"scope" validate:"omitempty,oneof=personal team"`
}

// GetStyleData resolves the effective style for the authenticated account:
// the active context, its settings interpreted through the package, and the
// alternative contexts visible in the caller's scope.
func GetStyleData(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	info, _ := ResolveAccountPlan(user)

	scope := utils.StyleScope{
		UserID:         user.ID,
		TeamID:         TeamIDFor(user),
		GenerationType: info.GenerationType,
		IsFreePlan:     info.IsFreePlan,
	}

	data := getStyleLoader().FetchStyleData(scope)
	return c.JSON(data)
}

// ListPackages returns the static package catalog.
func ListPackages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"packages": styles.Packages()})
}

// GetContext returns one context with its deserialized settings. Access is
// limited to the caller's own contexts and their team's.
func GetContext(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid context ID",
		})
	}

	ctx, pkg, settings, err := getStyleLoader().LoadStyleByContextID(uint(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Context not found",
		})
	}
	if !canAccessContext(user, ctx) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied",
		})
	}

	return c.JSON(fiber.Map{
		"context":  ctx,
		"package":  pkg,
		"settings": settings,
	})
}

// CreateContext creates a personal or team style preset.
func CreateContext(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

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
	if req.PackageID != "" && !styles.KnownPackage(req.PackageID) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown package",
		})
	}

	ctx := models.Context{
		Name:         req.Name,
		PackageID:    req.PackageID,
		Settings:     req.Settings,
		CustomPrompt: req.CustomPrompt,
	}

	if req.Scope == "team" {
		teamID := TeamIDFor(user)
		if teamID == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Account is not on a team",
			})
		}
		if !isTeamAdmin(user.ID, *teamID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Only team admins can manage team styles",
			})
		}
		ctx.TeamID = teamID
		if ctx.PackageID == "" {
			ctx.PackageID = styles.PackageTeamPro
		}
	} else {
		ctx.UserID = &user.ID
		if ctx.PackageID == "" {
			ctx.PackageID = styles.PackageHeadshot
		}
	}

	if err := config.DB.Create(&ctx).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create context",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"context":  ctx,
		"settings": styles.DeserializeSettings(ctx.PackageID, ctx.Settings),
	})
}

// UpdateContext edits an existing preset.
func UpdateContext(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid context ID",
		})
	}

	var ctx models.Context
	if err := config.DB.First(&ctx, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Context not found",
		})
	}
	if !canManageContext(user, &ctx) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied",
		})
	}

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
	if req.PackageID != "" && !styles.KnownPackage(req.PackageID) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown package",
		})
	}

	if req.Name != "" {
		ctx.Name = req.Name
	}
	if req.PackageID != "" {
		ctx.PackageID = req.PackageID
	}
	if req.Settings != nil {
		ctx.Settings = req.Settings
	}
	if req.CustomPrompt != "" {
		ctx.CustomPrompt = req.CustomPrompt
	}

	if err := config.DB.Save(&ctx).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update context",
		})
	}

	return c.JSON(fiber.Map{
		"context":  ctx,
		"settings": styles.DeserializeSettings(ctx.PackageID, ctx.Settings),
	})
}

// DeleteContext removes a preset, clearing any active pointer to it first.
func DeleteContext(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid context ID",
		})
	}

	var ctx models.Context
	if err := config.DB.First(&ctx, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Context not found",
		})
	}
	if !canManageContext(user, &ctx) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied",
		})
	}

	if ctx.IsTeam() {
		config.DB.Model(&models.Team{}).
			Where("id = ? AND active_context_id = ?", *ctx.TeamID, ctx.ID).
			Update("active_context_id", nil)
	} else {
		config.DB.Model(&models.User{}).
			Where("id = ? AND active_context_id = ?", user.ID, ctx.ID).
			Update("active_context_id", nil)
	}

	if err := config.DB.Delete(&ctx).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete context",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ActivateContext marks a preset as the active one in its scope.
func ActivateContext(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid context ID",
		})
	}

	var ctx models.Context
	if err := config.DB.First(&ctx, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Context not found",
		})
	}
	if !canAccessContext(user, &ctx) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied",
		})
	}

	if ctx.IsTeam() {
		if !isTeamAdmin(user.ID, *ctx.TeamID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Only team admins can change the team style",
			})
		}
		if err := config.DB.Model(&models.Team{}).
			Where("id = ?", *ctx.TeamID).
			Update("active_context_id", ctx.ID).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to activate context",
			})
		}
	} else {
		if err := config.DB.Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("active_context_id", ctx.ID).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to activate context",
			})
		}
	}

	return c.JSON(fiber.Map{"active_context_id": ctx.ID})
}

// DeactivateContext clears the active pointer in the context's scope, but
// only when it currently references this context.
func DeactivateContext(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid context ID",
		})
	}

	var ctx models.Context
	if err := config.DB.First(&ctx, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Context not found",
		})
	}
	if !canAccessContext(user, &ctx) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied",
		})
	}

	if ctx.IsTeam() {
		if !isTeamAdmin(user.ID, *ctx.TeamID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Only team admins can change the team style",
			})
		}
		if err := config.DB.Model(&models.Team{}).
			Where("id = ? AND active_context_id = ?", *ctx.TeamID, ctx.ID).
			Update("active_context_id", nil).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to deactivate context",
			})
		}
	} else {
		if err := config.DB.Model(&models.User{}).
			Where("id = ? AND active_context_id = ?", user.ID, ctx.ID).
			Update("active_context_id", nil).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to deactivate context",
			})
		}
	}

	return c.SendStatus(fiber.StatusOK)
}

// canAccessContext allows reads on own, team-shared, and system contexts.
func canAccessContext(user *models.User, ctx *models.Context) bool {
	if ctx.UserID == nil && ctx.TeamID == nil {
		// System free-package context is readable by everyone
		return true
	}
	if ctx.IsPersonal() {
		return *ctx.UserID == user.ID
	}
	teamID := TeamIDFor(user)
	return teamID != nil && *teamID == *ctx.TeamID
}

// canManageContext allows writes on own contexts and, for admins, team ones.
func canManageContext(user *models.User, ctx *models.Context) bool {
	if ctx.IsPersonal() {
		return *ctx.UserID == user.ID
	}
	if ctx.IsTeam() {
		return isTeamAdmin(user.ID, *ctx.TeamID)
	}
	// System contexts are managed through the admin endpoints only
	return user.IsAdmin
}

func isTeamAdmin(userID, teamID uint) bool {
	var membership models.TeamMember
	err := config.DB.Where("user_id = ? AND team_id = ? AND role = ?",
		userID, teamID, models.RoleTeamAdmin).First(&membership).Error
	return err == nil
}
