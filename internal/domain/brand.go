package domain

// Logo is a single brand logo definition. URL points at the source asset,
// which may be a vector that needs rasterizing before it can condition a
// vision model.
type Logo struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	MIME    string `json:"mime"`
	Variant string `json:"variant,omitempty"`
}

// Palette holds the brand color system as hex strings.
type Palette struct {
	Primary   []string          `json:"primary"`
	Secondary []string          `json:"secondary,omitempty"`
	Accent    []string          `json:"accent,omitempty"`
	Neutral   []string          `json:"neutral,omitempty"`
	Semantic  map[string]string `json:"semantic,omitempty"`
}

// LogoRules captures placement and sizing constraints for logo usage.
type LogoRules struct {
	Placement  string `json:"placement,omitempty"`
	MinSizePx  int    `json:"min_size_px,omitempty"`
	ClearSpace string `json:"clear_space,omitempty"`
}

// CompressedTwin is the size-bounded summary of a brand's visual identity
// used for generation prompts, as opposed to the full guideline text used for
// auditing.
type CompressedTwin struct {
	Palette      Palette   `json:"palette"`
	FontFamilies []string  `json:"font_families,omitempty"`
	Dos          []string  `json:"dos,omitempty"`
	Donts        []string  `json:"donts,omitempty"`
	LogoRules    LogoRules `json:"logo_rules"`
	Tone         string    `json:"tone,omitempty"`
}

// BrandContext bundles everything the pipeline needs to know about a brand.
// It is read-only for the duration of a job and safe to share across
// concurrent jobs for the same brand.
type BrandContext struct {
	BrandID        string         `json:"brand_id"`
	Name           string         `json:"name"`
	FullGuidelines string         `json:"full_guidelines"`
	CompressedTwin CompressedTwin `json:"compressed_twin"`
	Logos          []Logo         `json:"logos,omitempty"`
}
