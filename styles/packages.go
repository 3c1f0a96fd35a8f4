package styles

// Package ids
const (
	PackageFree     = "freepackage"
	PackageHeadshot = "headshot1"
	PackageTeamPro  = "teampro"
)

// Package is a static, code-defined configuration describing which style
// categories a tier may edit, their defaults, and how persisted settings
// blobs are interpreted. Packages are never persisted.
type Package struct {
	ID    string `json:"id"`
	Label string `json:"label"`

	VisibleCategories []string      `json:"visible_categories"`
	DefaultSettings   StyleSettings `json:"default_settings"`
}

var packageRegistry = map[string]Package{
	PackageFree: {
		ID:    PackageFree,
		Label: "Starter headshots",
		VisibleCategories: []string{
			CategoryBackground, CategoryStyle, CategoryExpression, CategoryLighting,
		},
		DefaultSettings: StyleSettings{
			PackageID:  PackageFree,
			Background: &BackgroundSetting{Type: BackgroundOffice},
			Style:      &StyleSetting{Preset: PresetCorporate},
			Expression: settingPtr(UserChoice()),
			Lighting:   settingPtr(UserChoice()),
		},
	},
	PackageHeadshot: {
		ID:    PackageHeadshot,
		Label: "Professional headshots",
		VisibleCategories: []string{
			CategoryBackground, CategoryStyle, CategoryPose, CategoryClothing,
			CategoryClothingColors, CategoryExpression, CategoryLighting, CategoryShotType,
		},
		DefaultSettings: StyleSettings{
			PackageID:      PackageHeadshot,
			Background:     &BackgroundSetting{Type: BackgroundOffice},
			Style:          &StyleSetting{Preset: PresetCorporate},
			Pose:           settingPtr(UserChoice()),
			Clothing:       settingPtr(UserChoice()),
			ClothingColors: settingPtr(UserChoice()),
			Expression:     settingPtr(UserChoice()),
			Lighting:       settingPtr(UserChoice()),
			ShotType:       settingPtr(UserChoice()),
		},
	},
	PackageTeamPro: {
		ID:    PackageTeamPro,
		Label: "Team headshots",
		VisibleCategories: []string{
			CategoryBackground, CategoryBranding, CategoryStyle, CategoryPose,
			CategoryClothing, CategoryClothingColors, CategoryExpression,
			CategoryLighting, CategoryShotType, CategoryCustomClothing,
		},
		DefaultSettings: StyleSettings{
			PackageID:      PackageTeamPro,
			Background:     &BackgroundSetting{Type: BackgroundOffice},
			Branding:       &BrandingSetting{Type: BrandingExclude},
			Style:          &StyleSetting{Preset: PresetCorporate},
			Pose:           settingPtr(UserChoice()),
			Clothing:       settingPtr(UserChoice()),
			ClothingColors: settingPtr(UserChoice()),
			Expression:     settingPtr(UserChoice()),
			Lighting:       settingPtr(UserChoice()),
			ShotType:       settingPtr(UserChoice()),
			CustomClothing: settingPtr(UserChoice()),
		},
	},
}

// GetPackage looks up a package by id. Unknown or empty ids fall back to the
// free package so callers always receive a usable configuration.
func GetPackage(id string) Package {
	if pkg, ok := packageRegistry[id]; ok {
		return pkg
	}
	return packageRegistry[PackageFree]
}

// KnownPackage reports whether id names a registered package.
func KnownPackage(id string) bool {
	_, ok := packageRegistry[id]
	return ok
}

// Packages returns all registered packages, for listing endpoints.
func Packages() []Package {
	out := make([]Package, 0, len(packageRegistry))
	for _, id := range []string{PackageFree, PackageHeadshot, PackageTeamPro} {
		out = append(out, packageRegistry[id])
	}
	return out
}

func (p Package) visible(category string) bool {
	for _, c := range p.VisibleCategories {
		if c == category {
			return true
		}
	}
	return false
}

func settingPtr(s Setting) *Setting {
	return &s
}
