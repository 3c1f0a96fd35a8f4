package styles

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeserializeEmptyBlobReturnsDefaults(t *testing.T) {
	got := DeserializeSettings(PackageHeadshot, nil)

	assert.Equal(t, PackageHeadshot, got.PackageID)
	require.NotNil(t, got.Background)
	assert.Equal(t, BackgroundOffice, got.Background.Type)
	require.NotNil(t, got.Style)
	assert.Equal(t, PresetCorporate, got.Style.Preset)
	require.NotNil(t, got.Pose)
	assert.True(t, got.Pose.IsUserChoice())
}

func TestDeserializeMalformedBlobReturnsDefaults(t *testing.T) {
	got := DeserializeSettings(PackageHeadshot, []byte("{not json"))

	assert.Equal(t, PackageHeadshot, got.PackageID)
	require.NotNil(t, got.Background)
	assert.Equal(t, BackgroundOffice, got.Background.Type)
}

func TestDeserializeUnknownPackageFallsBackToFree(t *testing.T) {
	got := DeserializeSettings("no-such-package", nil)
	assert.Equal(t, PackageFree, got.PackageID)

	got = DeserializeSettings("", nil)
	assert.Equal(t, PackageFree, got.PackageID)
}

func TestDeserializeStructuredSettings(t *testing.T) {
	blob := []byte(`{
		"background": {"type": "custom", "key": "bg/wall.jpg"},
		"style": {"preset": "creative"},
		"pose": {"kind": "fixed", "value": "standing"},
		"lighting": {"kind": "user-choice"}
	}`)

	got := DeserializeSettings(PackageHeadshot, blob)

	require.NotNil(t, got.Background)
	assert.Equal(t, BackgroundCustom, got.Background.Type)
	assert.Equal(t, "bg/wall.jpg", got.Background.Key)

	require.NotNil(t, got.Style)
	assert.Equal(t, PresetCreative, got.Style.Preset)

	require.NotNil(t, got.Pose)
	assert.Equal(t, Fixed("standing"), *got.Pose)

	require.NotNil(t, got.Lighting)
	assert.True(t, got.Lighting.IsUserChoice())
	assert.Empty(t, got.Lighting.Value)
}

func TestDeserializeBareStringBecomesFixed(t *testing.T) {
	blob := []byte(`{"clothing": "navy suit"}`)

	got := DeserializeSettings(PackageHeadshot, blob)

	require.NotNil(t, got.Clothing)
	assert.Equal(t, Fixed("navy suit"), *got.Clothing)
}

func TestDeserializeUserChoiceDropsValue(t *testing.T) {
	blob := []byte(`{"expression": {"kind": "user-choice", "value": "smiling"}}`)

	got := DeserializeSettings(PackageHeadshot, blob)

	require.NotNil(t, got.Expression)
	assert.True(t, got.Expression.IsUserChoice())
	assert.Empty(t, got.Expression.Value)
}

func TestDeserializeInvalidGenericKeepsDefault(t *testing.T) {
	blob := []byte(`{"pose": {"kind": "something-else", "value": "x"}, "clothing": 42}`)

	got := DeserializeSettings(PackageHeadshot, blob)

	require.NotNil(t, got.Pose)
	assert.True(t, got.Pose.IsUserChoice())
	require.NotNil(t, got.Clothing)
	assert.True(t, got.Clothing.IsUserChoice())
}

func TestDeserializeLegacyBackgroundURL(t *testing.T) {
	blob := []byte(`{"backgroundUrl": "/api/files/get?key=abc%2Fdef.jpg"}`)

	got := DeserializeSettings(PackageHeadshot, blob)

	require.NotNil(t, got.Background)
	assert.Equal(t, BackgroundCustom, got.Background.Type)
	assert.Equal(t, "abc/def.jpg", got.Background.Key)
}

func TestDeserializeLegacyBackgroundPromptOnly(t *testing.T) {
	blob := []byte(`{"backgroundPrompt": "sunny rooftop"}`)

	got := DeserializeSettings(PackageHeadshot, blob)

	require.NotNil(t, got.Background)
	assert.Equal(t, BackgroundOffice, got.Background.Type)
	assert.Equal(t, "sunny rooftop", got.Background.Prompt)
	assert.Empty(t, got.Background.Key)
}

func TestDeserializeLegacyLogoURL(t *testing.T) {
	blob := []byte(`{"logoUrl": "/api/files/get?key=logos/acme.png"}`)

	got := DeserializeSettings(PackageTeamPro, blob)

	require.NotNil(t, got.Branding)
	assert.Equal(t, BrandingInclude, got.Branding.Type)
	assert.Equal(t, "logos/acme.png", got.Branding.LogoKey)
}

func TestDeserializeLegacyStylePreset(t *testing.T) {
	blob := []byte(`{"stylePreset": "modern"}`)

	got := DeserializeSettings(PackageHeadshot, blob)

	require.NotNil(t, got.Style)
	assert.Equal(t, PresetModern, got.Style.Preset)
}

func TestDeserializeStructuredStyleWinsOverLegacy(t *testing.T) {
	blob := []byte(`{"style": {"preset": "classic"}, "stylePreset": "modern"}`)

	got := DeserializeSettings(PackageHeadshot, blob)

	require.NotNil(t, got.Style)
	assert.Equal(t, PresetClassic, got.Style.Preset)
}

func TestDeserializeInvalidPresetDegradesToCorporate(t *testing.T) {
	blob := []byte(`{"stylePreset": "vaporwave"}`)

	got := DeserializeSettings(PackageHeadshot, blob)

	require.NotNil(t, got.Style)
	assert.Equal(t, PresetCorporate, got.Style.Preset)
}

func TestDeserializeHiddenCategoryIgnored(t *testing.T) {
	// The free package does not expose branding or pose
	blob := []byte(`{
		"branding": {"type": "include", "logoKey": "logos/x.png"},
		"pose": {"kind": "fixed", "value": "standing"}
	}`)

	got := DeserializeSettings(PackageFree, blob)

	assert.Nil(t, got.Branding)
	assert.Nil(t, got.Pose)
}

func TestDeserializeIsIdempotent(t *testing.T) {
	blob := []byte(`{
		"backgroundUrl": "/api/files/get?key=bg.jpg",
		"stylePreset": "casual",
		"pose": "seated"
	}`)

	first := DeserializeSettings(PackageHeadshot, blob)

	reserialized, err := json.Marshal(first)
	require.NoError(t, err)
	second := DeserializeSettings(PackageHeadshot, reserialized)

	assert.Equal(t, first, second)
}

func TestDeserializeDoesNotAliasDefaults(t *testing.T) {
	got := DeserializeSettings(PackageHeadshot, nil)
	got.Background.Type = BackgroundCustom
	got.Style.Preset = PresetArtistic

	fresh := DeserializeSettings(PackageHeadshot, nil)
	assert.Equal(t, BackgroundOffice, fresh.Background.Type)
	assert.Equal(t, PresetCorporate, fresh.Style.Preset)
}

func TestExtractFileKey(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain key", "/api/files/get?key=selfies/1.jpg", "selfies/1.jpg"},
		{"encoded slash", "/api/files/get?key=abc%2Fdef.jpg", "abc/def.jpg"},
		{"absolute url", "https://app.example.com/api/files/get?key=x.png", "x.png"},
		{"missing key", "/api/files/get", ""},
		{"foreign path", "/api/other?key=x.png", ""},
		{"malformed url", "http://%zz", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFileKey(tt.url))
		})
	}
}

func TestPackageVisibility(t *testing.T) {
	free := GetPackage(PackageFree)
	assert.True(t, free.visible(CategoryBackground))
	assert.False(t, free.visible(CategoryBranding))

	pro := GetPackage(PackageTeamPro)
	assert.True(t, pro.visible(CategoryBranding))
	assert.True(t, pro.visible(CategoryCustomClothing))
}

func TestPackagesListsAllRegistered(t *testing.T) {
	pkgs := Packages()
	require.Len(t, pkgs, 3)
	assert.Equal(t, PackageFree, pkgs[0].ID)
	assert.Equal(t, PackageHeadshot, pkgs[1].ID)
	assert.Equal(t, PackageTeamPro, pkgs[2].ID)
}
