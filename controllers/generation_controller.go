package controller

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"portraitly/config"
	"portraitly/models"
	"portraitly/styles"
	"portraitly/utils"
)

var (
	errInsufficientCredits  = errors.New("insufficient credits")
	errGenerationInProgress = errors.New("generation already in progress")
)

// AccountMode tells the client whether to route the user into the pro
// (team) experience after a submission.
type AccountMode struct {
	IsPro       bool   `json:"is_pro"`
	RedirectURL string `json:"redirect_url"`
}

// CreateGenerationRequest is entirely optional: absent fields resolve from
// the account's active context and current selfie selection.
type CreateGenerationRequest struct {
	ContextID     *uint                 `json:"context_id"`
	StyleSettings *styles.StyleSettings `json:"style_settings"`
	Prompt        string                `json:"prompt" validate:"omitempty,max=2000"`
	SelfieIDs     []uint                `json:"selfie_ids"`
}

// inFlightLatch serializes submissions per account within this process. Two
// concurrent requests from one double click contend here; whichever loses
// gets the conflict response without ever reaching the database.
type inFlightLatch struct {
	mu   sync.Mutex
	held map[uint]struct{}
}

func (l *inFlightLatch) TryAcquire(userID uint) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[userID]; ok {
		return false
	}
	l.held[userID] = struct{}{}
	return true
}

func (l *inFlightLatch) Release(userID uint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, userID)
}

var submitLatch = &inFlightLatch{held: make(map[uint]struct{})}

// GetEligibility reports whether the generate action is currently enabled
// for the account, with message parameters for the disabled states.
func GetEligibility(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	in, _, _ := evaluateEligibility(user)
	return c.JSON(models.CheckEligibility(in))
}

// CreateGeneration submits a generation. The eligibility gate is re-checked
// server-side; the client's own gating is advisory only.
func CreateGeneration(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateGenerationRequest
	if len(c.Body()) > 0 {
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
	}

	in, info, selfieKeys := evaluateEligibility(user)

	// An explicit selfie subset narrows the stored selection
	if len(req.SelfieIDs) > 0 {
		var selfies []models.Selfie
		if err := config.DB.Where("user_id = ? AND id IN ?", user.ID, req.SelfieIDs).
			Find(&selfies).Error; err != nil || len(selfies) != len(req.SelfieIDs) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "One or more selfies not found",
			})
		}
		selfieKeys = selfieKeys[:0]
		for _, s := range selfies {
			selfieKeys = append(selfieKeys, s.StorageKey)
		}
	}

	// The gate runs against the selfies actually submitted, which may differ
	// from the stored selection when the request named an explicit subset
	eligibility := submissionGate(in, len(selfieKeys))
	if !eligibility.CanGenerate {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":       "Generation is not available",
			"eligibility": eligibility,
		})
	}

	// One in-flight generation per account. The latch stops double clicks
	// before they hit the database; the locked re-count in the transaction
	// below covers requests landing on other instances.
	if !submitLatch.TryAcquire(user.ID) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A generation is already in progress",
		})
	}
	defer submitLatch.Release(user.ID)

	// Resolve the style snapshot at submission time
	scope := utils.StyleScope{
		UserID:         user.ID,
		TeamID:         TeamIDFor(user),
		GenerationType: info.GenerationType,
		IsFreePlan:     info.IsFreePlan,
	}
	styleData := getStyleLoader().FetchStyleData(scope)

	packageID := styleData.SelectedPackageID
	settings := styleData.Settings
	prompt := ""
	var contextID *uint
	if styleData.ActiveContext != nil {
		prompt = styleData.ActiveContext.CustomPrompt
		contextID = &styleData.ActiveContext.ID
	}

	// An explicit context overrides the resolved active one
	if req.ContextID != nil {
		ctx, _, ctxSettings, err := getStyleLoader().LoadStyleByContextID(*req.ContextID)
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
		packageID = ctxSettings.PackageID
		settings = ctxSettings
		prompt = ctx.CustomPrompt
		contextID = &ctx.ID
	}
	// Explicit settings beat both the resolved snapshot and the context
	if req.StyleSettings != nil {
		overridePkg, overrideSettings, ok := normalizeSubmittedSettings(req.StyleSettings)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown style package",
			})
		}
		packageID = overridePkg
		settings = overrideSettings
	}
	if req.Prompt != "" {
		prompt = req.Prompt
	}

	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to snapshot style settings",
		})
	}

	var teamID *uint
	if info.GenerationType == models.GenerationTypeTeam {
		teamID = TeamIDFor(user)
	}

	generation := models.Generation{
		UserID:         user.ID,
		TeamID:         teamID,
		ContextID:      contextID,
		PackageID:      packageID,
		Settings:       settingsJSON,
		Prompt:         prompt,
		GenerationType: info.GenerationType,
		CreditsCharged: models.GenerationCost,
		SelfieKeys:     selfieKeys,
		Status:         models.GenerationStatusPending,
	}

	// Debit the pool and record the generation atomically. The conditional
	// update re-checks the balance under the transaction, so two concurrent
	// submissions cannot both spend the last credits.
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		// Lock the account row so concurrent submissions queue here, then
		// re-count in-flight work under the lock.
		var owner models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&owner, user.ID).Error; err != nil {
			return err
		}
		var inFlight int64
		if err := tx.Model(&models.Generation{}).
			Where("user_id = ? AND status IN ?", user.ID,
				[]string{models.GenerationStatusPending, models.GenerationStatusProcessing}).
			Count(&inFlight).Error; err != nil {
			return err
		}
		if inFlight > 0 {
			return errGenerationInProgress
		}

		var debit *gorm.DB
		if info.GenerationType == models.GenerationTypeTeam {
			debit = tx.Model(&models.Team{}).
				Where("id = ? AND credits >= ?", *teamID, models.GenerationCost).
				Updates(map[string]interface{}{
					"credits":          gorm.Expr("credits - ?", models.GenerationCost),
					"credits_consumed": gorm.Expr("credits_consumed + ?", models.GenerationCost),
				})
		} else {
			debit = tx.Model(&models.User{}).
				Where("id = ? AND credits >= ?", user.ID, models.GenerationCost).
				Updates(map[string]interface{}{
					"credits":          gorm.Expr("credits - ?", models.GenerationCost),
					"credits_consumed": gorm.Expr("credits_consumed + ?", models.GenerationCost),
				})
		}
		if debit.Error != nil {
			return debit.Error
		}
		if debit.RowsAffected == 0 {
			return errInsufficientCredits
		}

		if err := tx.Create(&generation).Error; err != nil {
			return err
		}

		usage := models.CreditUsage{
			UserID:       user.ID,
			TeamID:       teamID,
			GenerationID: &generation.ID,
			Pool:         info.GenerationType,
			Amount:       models.GenerationCost,
			Action:       "generate",
		}
		return tx.Create(&usage).Error
	})
	if err != nil {
		if errors.Is(err, errGenerationInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A generation is already in progress",
			})
		}
		if errors.Is(err, errInsufficientCredits) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error": "Not enough credits",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to submit generation",
		})
	}

	mode := AccountMode{IsPro: info.IsProUser || info.GenerationType == models.GenerationTypeTeam}
	if mode.IsPro {
		mode.RedirectURL = config.AppConfig.AppBaseURL + "/team/generations"
	} else {
		mode.RedirectURL = config.AppConfig.AppBaseURL + "/generations"
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":      true,
		"generation":   generation,
		"account_mode": mode,
	})
}

// ListGenerations returns the account's generation history, newest first.
func ListGenerations(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	var generations []models.Generation
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

	var total int64
	query.Model(&models.Generation{}).Count(&total)

	if err := query.Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&generations).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch generations",
		})
	}

	return c.JSON(fiber.Map{
		"generations": generations,
		"total":       total,
		"limit":       limit,
		"offset":      offset,
	})
}

// GetGeneration returns a single generation with its current status.
func GetGeneration(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid generation ID",
		})
	}

	var generation models.Generation
	if err := config.DB.First(&generation, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Generation not found",
		})
	}

	if generation.UserID != user.ID {
		teamID := TeamIDFor(user)
		if generation.TeamID == nil || teamID == nil || *generation.TeamID != *teamID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied",
			})
		}
	}

	return c.JSON(generation)
}

// submissionGate re-checks the gate against the selfie set actually being
// submitted, which may be narrower than the stored selection.
func submissionGate(in models.EligibilityInput, selfieCount int) models.Eligibility {
	in.SelfieCount = selfieCount
	return models.CheckEligibility(in)
}

// normalizeSubmittedSettings runs client-supplied settings through their
// package so unknown categories and out-of-range values degrade exactly
// like stored blobs do. Unknown packages are rejected rather than silently
// mapped to the free package.
func normalizeSubmittedSettings(override *styles.StyleSettings) (string, styles.StyleSettings, bool) {
	if !styles.KnownPackage(override.PackageID) {
		return "", styles.StyleSettings{}, false
	}
	blob, err := json.Marshal(override)
	if err != nil {
		return "", styles.StyleSettings{}, false
	}
	return override.PackageID, styles.DeserializeSettings(override.PackageID, blob), true
}

// evaluateEligibility assembles the gate's input for one account and returns
// it alongside the resolved plan and the selected selfie keys.
func evaluateEligibility(user *models.User) (models.EligibilityInput, models.PlanInfo, []string) {
	info, balance := ResolveAccountPlan(user)

	var selfies []models.Selfie
	config.DB.Where("user_id = ? AND selected = ?", user.ID, true).
		Order("created_at DESC").
		Find(&selfies)

	keys := make([]string, 0, len(selfies))
	for _, s := range selfies {
		keys = append(keys, s.StorageKey)
	}

	scope := utils.StyleScope{
		UserID:         user.ID,
		TeamID:         TeamIDFor(user),
		GenerationType: info.GenerationType,
		IsFreePlan:     info.IsFreePlan,
	}
	styleData := getStyleLoader().FetchStyleData(scope)

	in := models.EligibilityInput{
		SelfieCount:          len(keys),
		Balance:              balance.PoolBalance(info.GenerationType),
		GenerationType:       info.GenerationType,
		RequiresContext:      info.GenerationType == models.GenerationTypeTeam && !info.IsFreePlan,
		HasActiveContext:     styleData.ActiveContext != nil,
		HasAvailableContexts: len(styleData.Contexts) > 0,
	}

	return in, info, keys
}
