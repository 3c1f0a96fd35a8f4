package styles

import (
	"encoding/json"
	"net/url"
)

// fileProxyPath is the path of the upload proxy whose key query parameter
// identifies the stored object.
const fileProxyPath = "/api/files/get"

// rawSettings is the persisted, package-specific settings blob. Older
// contexts carry the flat legacy fields instead of the structured objects.
type rawSettings struct {
	Background json.RawMessage `json:"background"`
	Branding   json.RawMessage `json:"branding"`
	Style      json.RawMessage `json:"style"`

	Pose           json.RawMessage `json:"pose"`
	Clothing       json.RawMessage `json:"clothing"`
	ClothingColors json.RawMessage `json:"clothingColors"`
	Expression     json.RawMessage `json:"expression"`
	Lighting       json.RawMessage `json:"lighting"`
	ShotType       json.RawMessage `json:"shotType"`
	CustomClothing json.RawMessage `json:"customClothing"`

	// Legacy flat fields, migrated on read
	BackgroundURL    string `json:"backgroundUrl"`
	LogoURL          string `json:"logoUrl"`
	BackgroundPrompt string `json:"backgroundPrompt"`
	StylePreset      string `json:"stylePreset"`
}

func (r *rawSettings) generic(category string) json.RawMessage {
	switch category {
	case CategoryPose:
		return r.Pose
	case CategoryClothing:
		return r.Clothing
	case CategoryClothingColors:
		return r.ClothingColors
	case CategoryExpression:
		return r.Expression
	case CategoryLighting:
		return r.Lighting
	case CategoryShotType:
		return r.ShotType
	case CategoryCustomClothing:
		return r.CustomClothing
	}
	return nil
}

// DeserializeSettings interprets a raw settings blob through the package it
// belongs to. Unknown package ids fall back to the free package.
func DeserializeSettings(packageID string, blob []byte) StyleSettings {
	return GetPackage(packageID).Deserialize(blob)
}

// Deserialize converts a persisted settings blob into normalized
// StyleSettings. It is pure and total: any malformed or missing field
// degrades to the package's default for that field rather than erroring.
func (p Package) Deserialize(blob []byte) StyleSettings {
	out := p.DefaultSettings.clone()
	out.PackageID = p.ID

	var raw rawSettings
	if len(blob) == 0 || json.Unmarshal(blob, &raw) != nil {
		return out
	}

	if p.visible(CategoryBackground) {
		out.Background = raw.background(p)
	}
	if p.visible(CategoryBranding) {
		out.Branding = raw.branding(p)
	}
	if p.visible(CategoryStyle) {
		out.Style = raw.style()
	}

	for _, category := range p.VisibleCategories {
		slot := out.generic(category)
		if slot == nil {
			continue // structured category, handled above
		}
		if s, ok := parseGenericSetting(raw.generic(category)); ok {
			setting := s
			*slot = &setting
		}
	}

	return out
}

// background resolves the structured background object, synthesizing it from
// the legacy backgroundUrl/backgroundPrompt fields when absent.
func (r *rawSettings) background(p Package) *BackgroundSetting {
	if len(r.Background) > 0 {
		var bg BackgroundSetting
		if err := json.Unmarshal(r.Background, &bg); err == nil {
			if bg.Type == "" {
				if bg.Key != "" {
					bg.Type = BackgroundCustom
				} else {
					bg.Type = BackgroundOffice
				}
			}
			return &bg
		}
	}

	if r.BackgroundURL == "" && r.BackgroundPrompt == "" {
		if def := p.DefaultSettings.Background; def != nil {
			bg := *def
			return &bg
		}
		return &BackgroundSetting{Type: BackgroundOffice}
	}

	bg := &BackgroundSetting{
		Type:   BackgroundOffice,
		Prompt: r.BackgroundPrompt,
	}
	if r.BackgroundURL != "" {
		bg.Type = BackgroundCustom
		bg.Key = ExtractFileKey(r.BackgroundURL)
	}
	return bg
}

// branding resolves the structured branding object, synthesizing it from the
// legacy logoUrl field when absent.
func (r *rawSettings) branding(p Package) *BrandingSetting {
	if len(r.Branding) > 0 {
		var br BrandingSetting
		if err := json.Unmarshal(r.Branding, &br); err == nil {
			if br.Type == "" {
				br.Type = BrandingExclude
			}
			return &br
		}
	}

	if r.LogoURL == "" {
		if def := p.DefaultSettings.Branding; def != nil {
			br := *def
			return &br
		}
		return &BrandingSetting{Type: BrandingExclude}
	}

	return &BrandingSetting{
		Type:    BrandingInclude,
		LogoKey: ExtractFileKey(r.LogoURL),
	}
}

// style resolves the render preset, falling back to the legacy stylePreset
// field. Anything outside the closed enum degrades to corporate.
func (r *rawSettings) style() *StyleSetting {
	preset := r.StylePreset
	if len(r.Style) > 0 {
		var st StyleSetting
		if err := json.Unmarshal(r.Style, &st); err == nil && st.Preset != "" {
			preset = st.Preset
		}
	}
	if !ValidPreset(preset) {
		preset = PresetCorporate
	}
	return &StyleSetting{Preset: preset}
}

// parseGenericSetting accepts either a tagged-union object or a bare string
// (treated as a fixed value). Malformed entries report ok=false so the caller
// keeps the package default.
func parseGenericSetting(raw json.RawMessage) (Setting, bool) {
	if len(raw) == 0 {
		return Setting{}, false
	}

	var s Setting
	if err := json.Unmarshal(raw, &s); err == nil && (s.Kind == KindFixed || s.Kind == KindUserChoice) {
		if s.Kind == KindUserChoice {
			s.Value = ""
		}
		return s, true
	}

	var value string
	if err := json.Unmarshal(raw, &value); err == nil && value != "" {
		return Fixed(value), true
	}

	return Setting{}, false
}

// ExtractFileKey parses a file-proxy URL of shape /api/files/get?key=... and
// returns the decoded key. Malformed URLs and foreign paths yield "" rather
// than an error, so the deserializer never crashes on dirty legacy data.
func ExtractFileKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if u.Path != fileProxyPath {
		return ""
	}
	return u.Query().Get("key")
}

// clone deep-copies the settings so deserialization never aliases the
// registry's default values.
func (s StyleSettings) clone() StyleSettings {
	out := s
	if s.Background != nil {
		bg := *s.Background
		out.Background = &bg
	}
	if s.Branding != nil {
		br := *s.Branding
		out.Branding = &br
	}
	if s.Style != nil {
		st := *s.Style
		out.Style = &st
	}
	for _, category := range []string{
		CategoryPose, CategoryClothing, CategoryClothingColors, CategoryExpression,
		CategoryLighting, CategoryShotType, CategoryCustomClothing,
	} {
		src := s.generic(category)
		dst := out.generic(category)
		if src != nil && *src != nil {
			v := **src
			*dst = &v
		}
	}
	return out
}
