package worker

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"portraitly/models"
)

func newTestWorker(t *testing.T) *GenerationWorker {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "worker.db")), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Team{},
		&models.User{},
		&models.Context{},
		&models.Generation{},
		&models.CreditUsage{},
	))

	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewGenerationWorker(db, nil, log)
}

func seedUser(t *testing.T, db *gorm.DB, credits, consumed int) models.User {
	t.Helper()
	user := models.User{
		Email:           "member@example.com",
		PasswordHash:    "irrelevant",
		Credits:         credits,
		CreditsConsumed: consumed,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedGeneration(t *testing.T, db *gorm.DB, generation models.Generation) models.Generation {
	t.Helper()
	if generation.PackageID == "" {
		generation.PackageID = "headshot1"
	}
	require.NoError(t, db.Create(&generation).Error)
	return generation
}

func TestFailRefundsChargedCredits(t *testing.T) {
	gw := newTestWorker(t)
	user := seedUser(t, gw.DB, 0, models.GenerationCost)
	generation := seedGeneration(t, gw.DB, models.Generation{
		UserID:         user.ID,
		GenerationType: models.GenerationTypePersonal,
		CreditsCharged: models.GenerationCost,
		Status:         models.GenerationStatusProcessing,
		BackendTaskID:  "task-1",
	})

	gw.fail(generation, "Rendering failed")

	var settled models.Generation
	require.NoError(t, gw.DB.First(&settled, generation.ID).Error)
	assert.Equal(t, models.GenerationStatusFailed, settled.Status)
	assert.Equal(t, "Rendering failed", settled.ErrorMessage)

	var refunded models.User
	require.NoError(t, gw.DB.First(&refunded, user.ID).Error)
	assert.Equal(t, models.GenerationCost, refunded.Credits)
	assert.Equal(t, 0, refunded.CreditsConsumed)

	var usages []models.CreditUsage
	require.NoError(t, gw.DB.Find(&usages).Error)
	require.Len(t, usages, 1)
	assert.Equal(t, "refund", usages[0].Action)
	assert.Equal(t, models.GenerationTypePersonal, usages[0].Pool)
	assert.Equal(t, models.GenerationCost, usages[0].Amount)
	require.NotNil(t, usages[0].GenerationID)
	assert.Equal(t, generation.ID, *usages[0].GenerationID)
}

func TestFailRefundsTeamPool(t *testing.T) {
	gw := newTestWorker(t)
	user := seedUser(t, gw.DB, 5, 0)
	team := models.Team{Name: "Acme", Credits: 0, CreditsConsumed: models.GenerationCost}
	require.NoError(t, gw.DB.Create(&team).Error)

	generation := seedGeneration(t, gw.DB, models.Generation{
		UserID:         user.ID,
		TeamID:         &team.ID,
		GenerationType: models.GenerationTypeTeam,
		CreditsCharged: models.GenerationCost,
		Status:         models.GenerationStatusPending,
		BackendTaskID:  "task-2",
	})

	gw.fail(generation, "backend unavailable")

	var refunded models.Team
	require.NoError(t, gw.DB.First(&refunded, team.ID).Error)
	assert.Equal(t, models.GenerationCost, refunded.Credits)
	assert.Equal(t, 0, refunded.CreditsConsumed)

	// Personal pool stays untouched on a team refund
	var untouched models.User
	require.NoError(t, gw.DB.First(&untouched, user.ID).Error)
	assert.Equal(t, 5, untouched.Credits)

	var usage models.CreditUsage
	require.NoError(t, gw.DB.First(&usage).Error)
	assert.Equal(t, models.GenerationTypeTeam, usage.Pool)
	require.NotNil(t, usage.TeamID)
	assert.Equal(t, team.ID, *usage.TeamID)
}

func TestFailLeavesSettledGenerationAlone(t *testing.T) {
	gw := newTestWorker(t)
	user := seedUser(t, gw.DB, 0, 0)
	generation := seedGeneration(t, gw.DB, models.Generation{
		UserID:         user.ID,
		GenerationType: models.GenerationTypePersonal,
		CreditsCharged: models.GenerationCost,
		Status:         models.GenerationStatusCompleted,
		BackendTaskID:  "task-3",
	})

	// A stale poll result arriving after settlement must not flip the
	// status or issue a refund
	gw.fail(generation, "late failure report")

	var settled models.Generation
	require.NoError(t, gw.DB.First(&settled, generation.ID).Error)
	assert.Equal(t, models.GenerationStatusCompleted, settled.Status)
	assert.Empty(t, settled.ErrorMessage)

	var untouched models.User
	require.NoError(t, gw.DB.First(&untouched, user.ID).Error)
	assert.Equal(t, 0, untouched.Credits)

	var usageCount int64
	require.NoError(t, gw.DB.Model(&models.CreditUsage{}).Count(&usageCount).Error)
	assert.Zero(t, usageCount)
}

func TestFailTwiceRefundsOnce(t *testing.T) {
	gw := newTestWorker(t)
	user := seedUser(t, gw.DB, 0, models.GenerationCost)
	generation := seedGeneration(t, gw.DB, models.Generation{
		UserID:         user.ID,
		GenerationType: models.GenerationTypePersonal,
		CreditsCharged: models.GenerationCost,
		Status:         models.GenerationStatusProcessing,
		BackendTaskID:  "task-4",
	})

	gw.fail(generation, "first report")
	gw.fail(generation, "second report")

	var refunded models.User
	require.NoError(t, gw.DB.First(&refunded, user.ID).Error)
	assert.Equal(t, models.GenerationCost, refunded.Credits)

	var usageCount int64
	require.NoError(t, gw.DB.Model(&models.CreditUsage{}).Count(&usageCount).Error)
	assert.EqualValues(t, 1, usageCount)

	var settled models.Generation
	require.NoError(t, gw.DB.First(&settled, generation.ID).Error)
	assert.Equal(t, "first report", settled.ErrorMessage)
}

func TestCompleteSettlesInFlightGeneration(t *testing.T) {
	gw := newTestWorker(t)
	generation := seedGeneration(t, gw.DB, models.Generation{
		UserID:         9999, // no such account, so no completion email goes out
		GenerationType: models.GenerationTypePersonal,
		CreditsCharged: models.GenerationCost,
		Status:         models.GenerationStatusProcessing,
		BackendTaskID:  "task-5",
	})

	gw.complete(generation, []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"})

	var settled models.Generation
	require.NoError(t, gw.DB.First(&settled, generation.ID).Error)
	assert.Equal(t, models.GenerationStatusCompleted, settled.Status)
	assert.Equal(t, []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"}, settled.ResultURLs)
	require.NotNil(t, settled.CompletedAt)
}

func TestCompleteDiscardsLateResult(t *testing.T) {
	gw := newTestWorker(t)
	generation := seedGeneration(t, gw.DB, models.Generation{
		UserID:         9999,
		GenerationType: models.GenerationTypePersonal,
		CreditsCharged: models.GenerationCost,
		Status:         models.GenerationStatusFailed,
		BackendTaskID:  "task-6",
	})

	gw.complete(generation, []string{"https://cdn.example.com/late.png"})

	var settled models.Generation
	require.NoError(t, gw.DB.First(&settled, generation.ID).Error)
	assert.Equal(t, models.GenerationStatusFailed, settled.Status)
	assert.Empty(t, settled.ResultURLs)
	assert.Nil(t, settled.CompletedAt)
}
