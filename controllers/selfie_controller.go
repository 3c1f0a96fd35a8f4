package controller

import (
	"github.com/gofiber/fiber/v2"

	"portraitly/config"
	"portraitly/models"
	"portraitly/utils"
)

type CreateSelfieRequest struct {
	StorageKey string `json:"storage_key" validate:"required"`
	Filename   string `json:"filename" validate:"omitempty,max=255"`
	SizeBytes  int64  `json:"size_bytes" validate:"omitempty,min=0"`
}

type SelectSelfiesRequest struct {
	SelfieIDs []uint `json:"selfie_ids" validate:"required,min=1"`
	Selected  bool   `json:"selected"`
}

// ListSelfies returns all of the account's uploaded selfies, newest first.
func ListSelfies(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var selfies []models.Selfie
	if err := config.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&selfies).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch selfies",
		})
	}

	selected := 0
	for _, s := range selfies {
		if s.Selected {
			selected++
		}
	}

	return c.JSON(fiber.Map{
		"selfies":        selfies,
		"selected_count": selected,
		"min_selection":  models.MinSelfieSelection,
	})
}

// CreateSelfie registers an uploaded image by its storage key.
func CreateSelfie(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateSelfieRequest
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

	selfie := models.Selfie{
		UserID:     user.ID,
		StorageKey: req.StorageKey,
		Filename:   req.Filename,
		SizeBytes:  req.SizeBytes,
	}
	if err := config.DB.Create(&selfie).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save selfie",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(selfie)
}

// SelectSelfies toggles membership in the account's current selection subset.
func SelectSelfies(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req SelectSelfiesRequest
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

	result := config.DB.Model(&models.Selfie{}).
		Where("user_id = ? AND id IN ?", user.ID, req.SelfieIDs).
		Update("selected", req.Selected)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update selection",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No matching selfies found",
		})
	}

	var count int64
	config.DB.Model(&models.Selfie{}).
		Where("user_id = ? AND selected = ?", user.ID, true).
		Count(&count)

	return c.JSON(fiber.Map{
		"updated":        result.RowsAffected,
		"selected_count": count,
	})
}

// ListSelectedSelfies returns only the current selection subset.
func ListSelectedSelfies(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var selfies []models.Selfie
	if err := config.DB.Where("user_id = ? AND selected = ?", user.ID, true).
		Order("created_at DESC").
		Find(&selfies).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch selected selfies",
		})
	}

	return c.JSON(fiber.Map{
		"selfies": selfies,
		"count":   len(selfies),
	})
}

// DeleteSelfie removes a selfie record. The stored object is cleaned up by a
// separate storage lifecycle, not here.
func DeleteSelfie(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid selfie ID",
		})
	}

	result := config.DB.Where("user_id = ?", user.ID).Delete(&models.Selfie{}, id)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete selfie",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Selfie not found",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
