package controller

import (
	"log"
	"time"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"portraitly/config"
	"portraitly/models"
	"portraitly/utils"
)

const inviteTTL = 7 * 24 * time.Hour

type CreateTeamRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type InviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=team_admin team_member"`
}

// CreateTeam creates a team workspace with the caller as its admin.
func CreateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateTeamRequest
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

	if TeamIDFor(user) != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Account is already on a team",
		})
	}

	team := models.Team{Name: req.Name}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		member := models.TeamMember{
			TeamID: team.ID,
			UserID: user.ID,
			Role:   models.RoleTeamAdmin,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("team_id", team.ID).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create team",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(team)
}

// GetTeam returns the caller's team with its members.
func GetTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	teamID := TeamIDFor(user)
	if teamID == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Account is not on a team",
		})
	}

	var team models.Team
	if err := config.DB.Preload("Members").First(&team, *teamID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Team not found",
		})
	}

	return c.JSON(team)
}

// InviteTeamMember emails an invitation token to a prospective member.
func InviteTeamMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	teamID := TeamIDFor(user)
	if teamID == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Account is not on a team",
		})
	}
	if !isTeamAdmin(user.ID, *teamID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only team admins can invite members",
		})
	}

	var req InviteRequest
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
	if err := checkmail.ValidateFormat(req.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid email address",
		})
	}

	// Refuse when the address already belongs to a member
	var existing models.User
	if err := config.DB.Where("email = ? AND team_id = ?", req.Email, *teamID).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "User is already a team member",
		})
	}

	token, err := utils.GenerateToken(32)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create invite",
		})
	}

	role := req.Role
	if role == "" {
		role = models.RoleTeamMember
	}

	invite := models.TeamInvite{
		TeamID:    *teamID,
		InviterID: user.ID,
		Email:     req.Email,
		Token:     token,
		Role:      role,
		ExpiresAt: time.Now().Add(inviteTTL),
	}
	if err := config.DB.Create(&invite).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create invite",
		})
	}

	var team models.Team
	config.DB.First(&team, *teamID)

	inviterName := user.Email
	if user.Name != nil && *user.Name != "" {
		inviterName = *user.Name
	}

	if err := utils.SendTeamInviteEmail(req.Email, team.Name, inviterName, token); err != nil {
		// The invite row survives; the admin can resend the link manually
		log.Printf("Failed to send invite email to %s: %v", req.Email, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"invite_id":  invite.ID,
		"email":      invite.Email,
		"expires_at": invite.ExpiresAt,
	})
}

// AcceptTeamInvite redeems an invite token for the authenticated account.
func AcceptTeamInvite(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invite token is required",
		})
	}

	var invite models.TeamInvite
	if err := config.DB.Where("token = ?", token).First(&invite).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invite not found",
		})
	}
	if invite.AcceptedAt != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Invite already accepted",
		})
	}
	if time.Now().After(invite.ExpiresAt) {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "Invite has expired",
		})
	}
	if user.Email != invite.Email {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Invite was issued for a different email address",
		})
	}
	if TeamIDFor(user) != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Account is already on a team",
		})
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		member := models.TeamMember{
			TeamID: invite.TeamID,
			UserID: user.ID,
			Role:   invite.Role,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("team_id", invite.TeamID).Error; err != nil {
			return err
		}
		now := time.Now()
		return tx.Model(&invite).Update("accepted_at", &now).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to accept invite",
		})
	}

	return c.JSON(fiber.Map{
		"team_id": invite.TeamID,
		"role":    invite.Role,
	})
}

// RemoveTeamMember removes a member from the caller's team.
func RemoveTeamMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	teamID := TeamIDFor(user)
	if teamID == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Account is not on a team",
		})
	}

	memberID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid member ID",
		})
	}

	// Admins can remove anyone; members can only remove themselves
	if !isTeamAdmin(user.ID, *teamID) && uint(memberID) != user.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only team admins can remove other members",
		})
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("team_id = ? AND user_id = ?", *teamID, memberID).
			Delete(&models.TeamMember{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.User{}).
			Where("id = ? AND team_id = ?", memberID, *teamID).
			Update("team_id", nil).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Member not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to remove member",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
