package styles

// Setting kinds. A user-choice setting is deliberately unresolved: the end
// user (or the rendering backend) decides at generation time.
const (
	KindFixed      = "fixed"
	KindUserChoice = "user-choice"
)

// Setting is the closed tagged union used for the generic style categories.
type Setting struct {
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
}

// Fixed builds a concrete setting.
func Fixed(value string) Setting {
	return Setting{Kind: KindFixed, Value: value}
}

// UserChoice builds the deferred-to-user sentinel.
func UserChoice() Setting {
	return Setting{Kind: KindUserChoice}
}

// IsUserChoice reports whether the setting is the deferred sentinel.
func (s Setting) IsUserChoice() bool {
	return s.Kind == KindUserChoice
}

// Background types
const (
	BackgroundCustom = "custom"
	BackgroundOffice = "office"
)

// Branding types
const (
	BrandingInclude = "include"
	BrandingExclude = "exclude"
)

// Style presets (closed enum)
const (
	PresetCorporate = "corporate"
	PresetCasual    = "casual"
	PresetCreative  = "creative"
	PresetModern    = "modern"
	PresetClassic   = "classic"
	PresetArtistic  = "artistic"
)

var validPresets = map[string]struct{}{
	PresetCorporate: {},
	PresetCasual:    {},
	PresetCreative:  {},
	PresetModern:    {},
	PresetClassic:   {},
	PresetArtistic:  {},
}

// ValidPreset reports whether p is one of the closed style presets.
func ValidPreset(p string) bool {
	_, ok := validPresets[p]
	return ok
}

// BackgroundSetting describes the generated portrait's backdrop.
type BackgroundSetting struct {
	Type   string `json:"type"` // custom, office
	Key    string `json:"key,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

// BrandingSetting describes company logo placement.
type BrandingSetting struct {
	Type    string `json:"type"` // include, exclude
	LogoKey string `json:"logoKey,omitempty"`
}

// StyleSetting holds the overall render preset.
type StyleSetting struct {
	Preset string `json:"preset"`
}

// Category names as they appear in persisted settings blobs
const (
	CategoryBackground     = "background"
	CategoryBranding       = "branding"
	CategoryStyle          = "style"
	CategoryPose           = "pose"
	CategoryClothing       = "clothing"
	CategoryClothingColors = "clothingColors"
	CategoryExpression     = "expression"
	CategoryLighting       = "lighting"
	CategoryShotType       = "shotType"
	CategoryCustomClothing = "customClothing"
)

// StyleSettings is the normalized in-memory representation of a resolved
// style. A category is present only when the owning package declares it
// visible; absent categories fall back to package defaults.
type StyleSettings struct {
	PackageID string `json:"packageId"`

	Background *BackgroundSetting `json:"background,omitempty"`
	Branding   *BrandingSetting   `json:"branding,omitempty"`
	Style      *StyleSetting      `json:"style,omitempty"`

	Pose           *Setting `json:"pose,omitempty"`
	Clothing       *Setting `json:"clothing,omitempty"`
	ClothingColors *Setting `json:"clothingColors,omitempty"`
	Expression     *Setting `json:"expression,omitempty"`
	Lighting       *Setting `json:"lighting,omitempty"`
	ShotType       *Setting `json:"shotType,omitempty"`
	CustomClothing *Setting `json:"customClothing,omitempty"`
}

// generic returns the pointer slot for a generic (tagged union) category.
func (s *StyleSettings) generic(category string) **Setting {
	switch category {
	case CategoryPose:
		return &s.Pose
	case CategoryClothing:
		return &s.Clothing
	case CategoryClothingColors:
		return &s.ClothingColors
	case CategoryExpression:
		return &s.Expression
	case CategoryLighting:
		return &s.Lighting
	case CategoryShotType:
		return &s.ShotType
	case CategoryCustomClothing:
		return &s.CustomClothing
	}
	return nil
}
