package utils

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"portraitly/models"
	"portraitly/styles"
)

// ContextStore abstracts the point lookups the style loader performs, so the
// resolution rules stay testable without a live database.
type ContextStore interface {
	ContextByID(id uint) (*models.Context, error)
	ListPersonalContexts(userID uint) ([]models.Context, error)
	ListTeamContexts(teamID uint) ([]models.Context, error)
	UserByID(id uint) (*models.User, error)
	TeamByID(id uint) (*models.Team, error)
	AppSetting(key string) (string, error)
}

// GormContextStore is the production ContextStore.
type GormContextStore struct {
	DB *gorm.DB
}

func (s *GormContextStore) ContextByID(id uint) (*models.Context, error) {
	var ctx models.Context
	if err := s.DB.First(&ctx, id).Error; err != nil {
		return nil, err
	}
	return &ctx, nil
}

func (s *GormContextStore) ListPersonalContexts(userID uint) ([]models.Context, error) {
	var contexts []models.Context
	err := s.DB.Where("user_id = ? AND team_id IS NULL", userID).
		Order("created_at DESC").
		Find(&contexts).Error
	return contexts, err
}

func (s *GormContextStore) ListTeamContexts(teamID uint) ([]models.Context, error) {
	var contexts []models.Context
	err := s.DB.Where("team_id = ? AND user_id IS NULL", teamID).
		Order("created_at DESC").
		Find(&contexts).Error
	return contexts, err
}

func (s *GormContextStore) UserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormContextStore) TeamByID(id uint) (*models.Team, error) {
	var team models.Team
	if err := s.DB.Preload("ActiveContext").First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *GormContextStore) AppSetting(key string) (string, error) {
	var setting models.AppSetting
	if err := s.DB.Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return setting.Value, nil
}

// StyleScope identifies whose style is being resolved.
type StyleScope struct {
	UserID         uint
	TeamID         *uint
	GenerationType string // models.GenerationTypePersonal or ...Team
	IsFreePlan     bool
}

// ContextSummary is a list entry with its resolved display name.
type ContextSummary struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	PackageID string `json:"package_id"`
}

// StyleData is the resolved style for a scope: the active context (if any),
// its deserialized settings, and the alternatives visible to the caller.
type StyleData struct {
	SelectedPackageID string               `json:"selected_package_id"`
	ActiveContext     *models.Context      `json:"active_context"`
	Settings          styles.StyleSettings `json:"settings"`
	Contexts          []ContextSummary     `json:"contexts"`
}

// StyleLoader resolves active contexts and their settings for a scope.
type StyleLoader struct {
	Store  ContextStore
	Logger *log.Logger
}

func NewStyleLoader(db *gorm.DB, logger *log.Logger) *StyleLoader {
	return &StyleLoader{Store: &GormContextStore{DB: db}, Logger: logger}
}

// FetchStyleData resolves the style for the given scope. Read failures
// degrade to package defaults rather than erroring: the generation flow must
// keep working when style data is unavailable.
func (sl *StyleLoader) FetchStyleData(scope StyleScope) *StyleData {
	if scope.IsFreePlan {
		return sl.fetchFreePackageStyle()
	}

	if scope.GenerationType == models.GenerationTypeTeam && scope.TeamID != nil {
		return sl.fetchTeamStyle(*scope.TeamID)
	}

	return sl.fetchPersonalStyle(scope.UserID)
}

// fetchFreePackageStyle resolves the admin-configured system preset.
// Free-plan accounts ignore any personal or team contexts.
func (sl *StyleLoader) fetchFreePackageStyle() *StyleData {
	data := &StyleData{
		SelectedPackageID: styles.PackageFree,
		Settings:          styles.GetPackage(styles.PackageFree).Deserialize(nil),
	}

	value, err := sl.Store.AppSetting(models.SettingFreePackageStyleID)
	if err != nil {
		sl.Logger.Printf("Failed to read free package setting: %v", err)
		return data
	}
	if value == "" {
		return data
	}

	ctx, err := sl.Store.ContextByID(ParseUint(value))
	if err != nil {
		sl.Logger.Printf("Configured free package context %s not found: %v", value, err)
		return data
	}

	data.ActiveContext = ctx
	data.SelectedPackageID = packageIDFor(ctx, styles.PackageFree)
	data.Settings = styles.DeserializeSettings(data.SelectedPackageID, ctx.Settings)
	return data
}

func (sl *StyleLoader) fetchTeamStyle(teamID uint) *StyleData {
	data := &StyleData{
		SelectedPackageID: styles.PackageTeamPro,
		Settings:          styles.GetPackage(styles.PackageTeamPro).Deserialize(nil),
	}

	team, err := sl.Store.TeamByID(teamID)
	if err != nil {
		sl.Logger.Printf("Failed to load team %d: %v", teamID, err)
		return data
	}

	active := team.ActiveContext
	if active == nil && team.ActiveContextID != nil {
		// The eager-loaded relation can come back empty even though the
		// foreign key is set; retry with a direct point lookup before
		// concluding there is no active context.
		active, err = sl.Store.ContextByID(*team.ActiveContextID)
		if err != nil {
			sl.Logger.Printf("Active context %d for team %d not found: %v", *team.ActiveContextID, teamID, err)
			active = nil
		}
	}

	if active != nil {
		data.ActiveContext = active
		data.SelectedPackageID = packageIDFor(active, styles.PackageTeamPro)
		data.Settings = styles.DeserializeSettings(data.SelectedPackageID, active.Settings)
	}

	contexts, err := sl.Store.ListTeamContexts(teamID)
	if err != nil {
		sl.Logger.Printf("Failed to list team contexts for team %d: %v", teamID, err)
		return data
	}
	data.Contexts = Summarize(contexts, "Team")
	return data
}

func (sl *StyleLoader) fetchPersonalStyle(userID uint) *StyleData {
	data := &StyleData{
		SelectedPackageID: styles.PackageHeadshot,
		Settings:          styles.GetPackage(styles.PackageHeadshot).Deserialize(nil),
	}

	user, err := sl.Store.UserByID(userID)
	if err != nil {
		sl.Logger.Printf("Failed to load user %d: %v", userID, err)
		return data
	}

	if user.ActiveContextID != nil {
		active, err := sl.Store.ContextByID(*user.ActiveContextID)
		if err != nil {
			sl.Logger.Printf("Active context %d for user %d not found: %v", *user.ActiveContextID, userID, err)
		} else {
			data.ActiveContext = active
			data.SelectedPackageID = packageIDFor(active, styles.PackageHeadshot)
			data.Settings = styles.DeserializeSettings(data.SelectedPackageID, active.Settings)
		}
	}

	contexts, err := sl.Store.ListPersonalContexts(userID)
	if err != nil {
		sl.Logger.Printf("Failed to list contexts for user %d: %v", userID, err)
		return data
	}
	data.Contexts = Summarize(contexts, "Personal")
	return data
}

// LoadStyleByContextID resolves one specific context with its package and
// deserialized settings. Unlike FetchStyleData this is a hard lookup: the
// caller asked for a concrete id, so a missing row is an error.
func (sl *StyleLoader) LoadStyleByContextID(id uint) (*models.Context, styles.Package, styles.StyleSettings, error) {
	ctx, err := sl.Store.ContextByID(id)
	if err != nil {
		return nil, styles.Package{}, styles.StyleSettings{}, fmt.Errorf("context %d: %w", id, err)
	}
	pkg := styles.GetPackage(ctx.PackageID)
	return ctx, pkg, pkg.Deserialize(ctx.Settings), nil
}

// Summarize converts a createdAt-descending context list to summaries,
// substituting generated fallback names for empty or placeholder names.
func Summarize(contexts []models.Context, scopeLabel string) []ContextSummary {
	out := make([]ContextSummary, 0, len(contexts))
	total := len(contexts)
	for i, ctx := range contexts {
		out = append(out, ContextSummary{
			ID:        ctx.ID,
			Name:      FallbackContextName(ctx.Name, i, total, scopeLabel),
			PackageID: ctx.PackageID,
		})
	}
	return out
}

// FallbackContextName substitutes a deterministic generated name for empty
// or "unnamed" context names. index is the 0-based position in a
// createdAt-descending list; the ordinal counts down from the list size, so
// the 3rd-oldest of 5 becomes "Personal Style 3".
func FallbackContextName(name string, index, total int, scopeLabel string) string {
	if name != "" && name != "unnamed" {
		return name
	}
	return fmt.Sprintf("%s Style %d", scopeLabel, total-index)
}

// packageIDFor prefers the context's own package, falling back to the
// scope's default when the context predates package ids.
func packageIDFor(ctx *models.Context, fallback string) string {
	if ctx.PackageID != "" && styles.KnownPackage(ctx.PackageID) {
		return ctx.PackageID
	}
	return fallback
}
