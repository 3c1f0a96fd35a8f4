package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"portraitly/models"
	"portraitly/styles"
	"portraitly/utils"
)

const (
	// activePollInterval is how often in-flight backend tasks are polled.
	activePollInterval = 3 * time.Second

	// completionWindow keeps the worker on the fast interval briefly after
	// the last task settles, so back-to-back submissions stay responsive.
	completionWindow = 6 * time.Second

	// idlePollInterval is the scan rate when nothing is in flight.
	idlePollInterval = 30 * time.Second
)

// GenerationWorker drives pending generations through the asynchronous
// rendering backend: it submits unsubmitted rows, polls in-flight tasks, and
// settles results. All status updates are fenced on the in-flight states so a
// stale poll can never overwrite a settled generation.
type GenerationWorker struct {
	DB     *gorm.DB
	Client *utils.GenerationClient
	Logger *logrus.Logger
}

func NewGenerationWorker(db *gorm.DB, client *utils.GenerationClient, logger *logrus.Logger) *GenerationWorker {
	return &GenerationWorker{
		DB:     db,
		Client: client,
		Logger: logger,
	}
}

func (gw *GenerationWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(5 * time.Second)

	gw.Logger.Info("Generation worker started")

	lastActive := time.Time{}
	timer := time.NewTimer(activePollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			gw.Logger.Info("Generation worker shutting down...")
			return
		case <-timer.C:
			busy := gw.tick(ctx)
			if busy {
				lastActive = time.Now()
			}

			interval := idlePollInterval
			if busy || time.Since(lastActive) < completionWindow {
				interval = activePollInterval
			}
			timer.Reset(interval)
		}
	}
}

// tick runs one pass and reports whether any generation is still in flight.
func (gw *GenerationWorker) tick(ctx context.Context) bool {
	gw.submitPending(ctx)
	return gw.pollInFlight(ctx)
}

// submitPending pushes unsubmitted generations to the rendering backend.
func (gw *GenerationWorker) submitPending(ctx context.Context) {
	var pending []models.Generation
	if err := gw.DB.Where("status = ? AND backend_task_id = ''", models.GenerationStatusPending).
		Order("created_at ASC").
		Limit(10).
		Find(&pending).Error; err != nil {
		gw.Logger.WithError(err).Error("Failed to fetch pending generations")
		return
	}

	for _, generation := range pending {
		if err := gw.submit(ctx, generation); err != nil {
			gw.Logger.WithError(err).WithField("generation_id", generation.ID).
				Error("Failed to submit generation")
			sentry.CaptureException(fmt.Errorf("submit generation %d: %w", generation.ID, err))
			gw.fail(generation, "Submission to the rendering backend failed")
		}
	}
}

func (gw *GenerationWorker) submit(ctx context.Context, generation models.Generation) error {
	var settings styles.StyleSettings
	if len(generation.Settings) > 0 {
		if err := json.Unmarshal(generation.Settings, &settings); err != nil {
			return fmt.Errorf("decode settings snapshot: %w", err)
		}
	}

	req := utils.SubmitRequest{
		StyleSettings:  settings,
		Prompt:         generation.Prompt,
		SelfieKeys:     generation.SelfieKeys,
		GenerationType: generation.GenerationType,
		Priority:       generation.GenerationType == models.GenerationTypeTeam,
	}
	if generation.ContextID != nil {
		req.ContextID = fmt.Sprintf("%d", *generation.ContextID)
	}

	taskID, err := gw.Client.CreateTask(ctx, req)
	if err != nil {
		return err
	}

	now := time.Now()
	result := gw.DB.Model(&models.Generation{}).
		Where("id = ? AND status IN ?", generation.ID,
			[]string{models.GenerationStatusPending, models.GenerationStatusProcessing}).
		Updates(map[string]interface{}{
			"backend_task_id": taskID,
			"status":          models.GenerationStatusProcessing,
			"submitted_at":    &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// The row settled between the read and the update; the backend task
		// is orphaned but harmless.
		gw.Logger.WithField("generation_id", generation.ID).
			Warn("Generation settled before submission could be recorded")
	}
	return nil
}

// pollInFlight refreshes every generation with an outstanding backend task.
func (gw *GenerationWorker) pollInFlight(ctx context.Context) bool {
	var inFlight []models.Generation
	if err := gw.DB.Where("status IN ? AND backend_task_id <> ''",
		[]string{models.GenerationStatusPending, models.GenerationStatusProcessing}).
		Find(&inFlight).Error; err != nil {
		gw.Logger.WithError(err).Error("Failed to fetch in-flight generations")
		return false
	}

	for _, generation := range inFlight {
		status, err := gw.Client.TaskStatus(ctx, generation.BackendTaskID)
		if err != nil {
			gw.Logger.WithError(err).WithFields(logrus.Fields{
				"generation_id": generation.ID,
				"task_id":       generation.BackendTaskID,
			}).Warn("Failed to poll backend task")
			continue
		}

		switch status.State {
		case utils.TaskStateSuccess:
			gw.complete(generation, status.ResultURLs)
		case utils.TaskStateFailed:
			reason := status.FailReason
			if reason == "" {
				reason = "Rendering failed"
			}
			sentry.CaptureMessage(fmt.Sprintf("generation %d failed: %s", generation.ID, reason))
			gw.fail(generation, reason)
		}
	}

	return len(inFlight) > 0
}

// complete settles a generation as successful. The status fence means a
// result observed after a concurrent failure or retry is discarded.
func (gw *GenerationWorker) complete(generation models.Generation, resultURLs []string) {
	now := time.Now()
	urls, err := json.Marshal(resultURLs)
	if err != nil {
		gw.Logger.WithError(err).Error("Failed to encode result URLs")
		return
	}

	result := gw.DB.Model(&models.Generation{}).
		Where("id = ? AND status IN ?", generation.ID,
			[]string{models.GenerationStatusPending, models.GenerationStatusProcessing}).
		Updates(map[string]interface{}{
			"status":       models.GenerationStatusCompleted,
			"result_urls":  string(urls),
			"completed_at": &now,
		})
	if result.Error != nil {
		gw.Logger.WithError(result.Error).WithField("generation_id", generation.ID).
			Error("Failed to complete generation")
		return
	}
	if result.RowsAffected == 0 {
		return
	}

	gw.Logger.WithFields(logrus.Fields{
		"generation_id": generation.ID,
		"results":       len(resultURLs),
	}).Info("Generation completed")

	gw.notifyCompletion(generation)
}

func (gw *GenerationWorker) notifyCompletion(generation models.Generation) {
	var user models.User
	if err := gw.DB.First(&user, generation.UserID).Error; err != nil {
		return
	}
	if err := utils.SendGenerationCompleteEmail(user.Email, generation.ID); err != nil {
		gw.Logger.WithError(err).WithField("user_id", user.ID).
			Warn("Failed to send completion email")
	}
}

// fail settles a generation as failed and refunds the charged credits.
func (gw *GenerationWorker) fail(generation models.Generation, reason string) {
	err := gw.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Generation{}).
			Where("id = ? AND status IN ?", generation.ID,
				[]string{models.GenerationStatusPending, models.GenerationStatusProcessing}).
			Updates(map[string]interface{}{
				"status":        models.GenerationStatusFailed,
				"error_message": reason,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Already settled elsewhere; do not refund twice
			return nil
		}

		return gw.refund(tx, generation)
	})
	if err != nil {
		gw.Logger.WithError(err).WithField("generation_id", generation.ID).
			Error("Failed to settle failed generation")
		sentry.CaptureException(fmt.Errorf("settle generation %d: %w", generation.ID, err))
	}
}

func (gw *GenerationWorker) refund(tx *gorm.DB, generation models.Generation) error {
	if generation.CreditsCharged <= 0 {
		return nil
	}

	var refundErr error
	if generation.GenerationType == models.GenerationTypeTeam && generation.TeamID != nil {
		refundErr = tx.Model(&models.Team{}).
			Where("id = ?", *generation.TeamID).
			Updates(map[string]interface{}{
				"credits":          gorm.Expr("credits + ?", generation.CreditsCharged),
				"credits_consumed": gorm.Expr("credits_consumed - ?", generation.CreditsCharged),
			}).Error
	} else {
		refundErr = tx.Model(&models.User{}).
			Where("id = ?", generation.UserID).
			Updates(map[string]interface{}{
				"credits":          gorm.Expr("credits + ?", generation.CreditsCharged),
				"credits_consumed": gorm.Expr("credits_consumed - ?", generation.CreditsCharged),
			}).Error
	}
	if refundErr != nil {
		return refundErr
	}

	usage := models.CreditUsage{
		UserID:       generation.UserID,
		TeamID:       generation.TeamID,
		GenerationID: &generation.ID,
		Pool:         generation.GenerationType,
		Amount:       generation.CreditsCharged,
		Action:       "refund",
	}
	return tx.Create(&usage).Error
}
