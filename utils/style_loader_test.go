package utils

import (
	"errors"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portraitly/models"
	"portraitly/styles"
)

type fakeContextStore struct {
	contexts map[uint]*models.Context
	personal map[uint][]models.Context
	team     map[uint][]models.Context
	users    map[uint]*models.User
	teams    map[uint]*models.Team
	settings map[string]string

	settingErr error
}

func (f *fakeContextStore) ContextByID(id uint) (*models.Context, error) {
	if ctx, ok := f.contexts[id]; ok {
		return ctx, nil
	}
	return nil, errors.New("record not found")
}

func (f *fakeContextStore) ListPersonalContexts(userID uint) ([]models.Context, error) {
	return f.personal[userID], nil
}

func (f *fakeContextStore) ListTeamContexts(teamID uint) ([]models.Context, error) {
	return f.team[teamID], nil
}

func (f *fakeContextStore) UserByID(id uint) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("record not found")
}

func (f *fakeContextStore) TeamByID(id uint) (*models.Team, error) {
	if tm, ok := f.teams[id]; ok {
		return tm, nil
	}
	return nil, errors.New("record not found")
}

func (f *fakeContextStore) AppSetting(key string) (string, error) {
	if f.settingErr != nil {
		return "", f.settingErr
	}
	return f.settings[key], nil
}

func newTestLoader(store *fakeContextStore) *StyleLoader {
	return &StyleLoader{
		Store:  store,
		Logger: log.New(io.Discard, "", 0),
	}
}

func ctxWithID(id uint) models.Context {
	ctx := models.Context{PackageID: styles.PackageHeadshot}
	ctx.ID = id
	return ctx
}

func TestFetchStyleDataFreePlanUsesDefaultsWhenUnconfigured(t *testing.T) {
	loader := newTestLoader(&fakeContextStore{settings: map[string]string{}})

	data := loader.FetchStyleData(StyleScope{UserID: 1, IsFreePlan: true})

	assert.Equal(t, styles.PackageFree, data.SelectedPackageID)
	assert.Nil(t, data.ActiveContext)
	require.NotNil(t, data.Settings.Background)
	assert.Equal(t, styles.BackgroundOffice, data.Settings.Background.Type)
}

func TestFetchStyleDataFreePlanLoadsConfiguredSystemContext(t *testing.T) {
	system := models.Context{
		Name:      "Company default",
		PackageID: styles.PackageFree,
		Settings:  []byte(`{"stylePreset": "casual"}`),
	}
	system.ID = 7

	loader := newTestLoader(&fakeContextStore{
		contexts: map[uint]*models.Context{7: &system},
		settings: map[string]string{models.SettingFreePackageStyleID: "7"},
	})

	data := loader.FetchStyleData(StyleScope{UserID: 1, IsFreePlan: true})

	require.NotNil(t, data.ActiveContext)
	assert.Equal(t, uint(7), data.ActiveContext.ID)
	require.NotNil(t, data.Settings.Style)
	assert.Equal(t, styles.PresetCasual, data.Settings.Style.Preset)
}

func TestFetchStyleDataFreePlanIgnoresPersonalContexts(t *testing.T) {
	// A free-plan account with personal contexts still resolves the system
	// preset, not its own.
	loader := newTestLoader(&fakeContextStore{
		personal: map[uint][]models.Context{1: {ctxWithID(3)}},
		settings: map[string]string{},
	})

	data := loader.FetchStyleData(StyleScope{UserID: 1, IsFreePlan: true})

	assert.Equal(t, styles.PackageFree, data.SelectedPackageID)
	assert.Empty(t, data.Contexts)
}

func TestFetchStyleDataFreePlanSurvivesSettingReadError(t *testing.T) {
	loader := newTestLoader(&fakeContextStore{settingErr: errors.New("db down")})

	data := loader.FetchStyleData(StyleScope{UserID: 1, IsFreePlan: true})

	assert.Equal(t, styles.PackageFree, data.SelectedPackageID)
	assert.Nil(t, data.ActiveContext)
}

func TestFetchStyleDataPersonalActiveContext(t *testing.T) {
	active := models.Context{
		Name:      "My look",
		PackageID: styles.PackageHeadshot,
		Settings:  []byte(`{"stylePreset": "modern"}`),
	}
	active.ID = 11
	activeID := uint(11)

	user := &models.User{ActiveContextID: &activeID}
	user.ID = 1

	loader := newTestLoader(&fakeContextStore{
		contexts: map[uint]*models.Context{11: &active},
		users:    map[uint]*models.User{1: user},
		personal: map[uint][]models.Context{1: {active}},
	})

	data := loader.FetchStyleData(StyleScope{
		UserID:         1,
		GenerationType: models.GenerationTypePersonal,
	})

	require.NotNil(t, data.ActiveContext)
	assert.Equal(t, uint(11), data.ActiveContext.ID)
	assert.Equal(t, styles.PackageHeadshot, data.SelectedPackageID)
	require.NotNil(t, data.Settings.Style)
	assert.Equal(t, styles.PresetModern, data.Settings.Style.Preset)
	require.Len(t, data.Contexts, 1)
	assert.Equal(t, "My look", data.Contexts[0].Name)
}

func TestFetchStyleDataPersonalMissingActiveDegradesToDefaults(t *testing.T) {
	danglingID := uint(99)
	user := &models.User{ActiveContextID: &danglingID}
	user.ID = 1

	loader := newTestLoader(&fakeContextStore{
		users: map[uint]*models.User{1: user},
	})

	data := loader.FetchStyleData(StyleScope{
		UserID:         1,
		GenerationType: models.GenerationTypePersonal,
	})

	assert.Nil(t, data.ActiveContext)
	assert.Equal(t, styles.PackageHeadshot, data.SelectedPackageID)
}

func TestFetchStyleDataTeamBrokenRelationFallsBackToPointLookup(t *testing.T) {
	active := models.Context{
		Name:      "Brand look",
		PackageID: styles.PackageTeamPro,
		Settings:  []byte(`{"logoUrl": "/api/files/get?key=logos/acme.png"}`),
	}
	active.ID = 21
	activeID := uint(21)
	teamID := uint(5)
	active.TeamID = &teamID

	// The eager-loaded relation came back nil even though the FK is set
	team := &models.Team{ActiveContextID: &activeID, ActiveContext: nil}
	team.ID = 5

	loader := newTestLoader(&fakeContextStore{
		contexts: map[uint]*models.Context{21: &active},
		teams:    map[uint]*models.Team{5: team},
		team:     map[uint][]models.Context{5: {active}},
	})

	data := loader.FetchStyleData(StyleScope{
		UserID:         1,
		TeamID:         &teamID,
		GenerationType: models.GenerationTypeTeam,
	})

	require.NotNil(t, data.ActiveContext)
	assert.Equal(t, uint(21), data.ActiveContext.ID)
	require.NotNil(t, data.Settings.Branding)
	assert.Equal(t, styles.BrandingInclude, data.Settings.Branding.Type)
	assert.Equal(t, "logos/acme.png", data.Settings.Branding.LogoKey)
}

func TestFetchStyleDataTeamNoActiveContext(t *testing.T) {
	teamID := uint(5)
	team := &models.Team{}
	team.ID = 5

	loader := newTestLoader(&fakeContextStore{
		teams: map[uint]*models.Team{5: team},
		team:  map[uint][]models.Context{5: {ctxWithID(31)}},
	})

	data := loader.FetchStyleData(StyleScope{
		UserID:         1,
		TeamID:         &teamID,
		GenerationType: models.GenerationTypeTeam,
	})

	assert.Nil(t, data.ActiveContext)
	assert.Equal(t, styles.PackageTeamPro, data.SelectedPackageID)
	assert.Len(t, data.Contexts, 1)
}

func TestLoadStyleByContextIDMissingIsError(t *testing.T) {
	loader := newTestLoader(&fakeContextStore{})

	_, _, _, err := loader.LoadStyleByContextID(42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context 42")
}

func TestLoadStyleByContextID(t *testing.T) {
	ctx := models.Context{
		PackageID: styles.PackageHeadshot,
		Settings:  []byte(`{"stylePreset": "classic"}`),
	}
	ctx.ID = 12

	loader := newTestLoader(&fakeContextStore{
		contexts: map[uint]*models.Context{12: &ctx},
	})

	got, pkg, settings, err := loader.LoadStyleByContextID(12)
	require.NoError(t, err)
	assert.Equal(t, uint(12), got.ID)
	assert.Equal(t, styles.PackageHeadshot, pkg.ID)
	require.NotNil(t, settings.Style)
	assert.Equal(t, styles.PresetClassic, settings.Style.Preset)
}

func TestFallbackContextName(t *testing.T) {
	// 0-based position in a createdAt-descending list; the ordinal counts
	// down from the list size.
	assert.Equal(t, "Personal Style 5", FallbackContextName("", 0, 5, "Personal"))
	assert.Equal(t, "Personal Style 3", FallbackContextName("unnamed", 2, 5, "Personal"))
	assert.Equal(t, "Team Style 1", FallbackContextName("", 4, 5, "Team"))
	assert.Equal(t, "Kept", FallbackContextName("Kept", 1, 5, "Personal"))
}

func TestSummarizeAppliesFallbackNames(t *testing.T) {
	mk := func(id uint, name string) models.Context {
		ctx := models.Context{Name: name, PackageID: styles.PackageHeadshot}
		ctx.ID = id
		return ctx
	}
	contexts := []models.Context{
		mk(30, ""),        // newest
		mk(20, "Named"),   //
		mk(10, "unnamed"), // oldest
	}

	out := Summarize(contexts, "Personal")
	require.Len(t, out, 3)
	assert.Equal(t, "Personal Style 3", out[0].Name)
	assert.Equal(t, "Named", out[1].Name)
	assert.Equal(t, "Personal Style 1", out[2].Name)

	for i, want := range []uint{30, 20, 10} {
		assert.Equal(t, want, out[i].ID, fmt.Sprintf("index %d", i))
	}
}
