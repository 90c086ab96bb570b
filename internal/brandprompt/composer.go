package brandprompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"brandguard/internal/domain"
)

// ComposeInput carries everything the composer merges into one generation
// request. OriginalPrompt is always the user's unmodified wording; UserPrompt
// may have been rewritten by an optimization pass.
type ComposeInput struct {
	UserPrompt     string
	OriginalPrompt string
	BrandName      string
	Twin           domain.CompressedTwin
	LogoCount      int
	Correction     string
}

// Compose builds the structured generation prompt: brand colors, typography,
// explicit do/don't lists, logo constraints and a general composition rule.
// The original request wording is forwarded verbatim because text-intent
// decisions downstream must not act on the rewritten prompt.
func Compose(in ComposeInput) string {
	var b strings.Builder

	brand := strings.TrimSpace(in.BrandName)
	if brand != "" {
		titler := cases.Title(language.Und, cases.NoLower)
		fmt.Fprintf(&b, "Create an on-brand visual asset for %s.\n", titler.String(brand))
	} else {
		b.WriteString("Create an on-brand visual asset.\n")
	}

	prompt := strings.TrimSpace(in.UserPrompt)
	if prompt == "" {
		prompt = strings.TrimSpace(in.OriginalPrompt)
	}
	fmt.Fprintf(&b, "\nRequest: %s\n", prompt)

	writePalette(&b, in.Twin.Palette)

	if len(in.Twin.FontFamilies) > 0 {
		fmt.Fprintf(&b, "Typography: use %s.\n", strings.Join(in.Twin.FontFamilies, ", "))
	}

	writeList(&b, "Do", in.Twin.Dos)
	writeList(&b, "Don't", in.Twin.Donts)

	if in.LogoCount > 0 {
		writeLogoRules(&b, in.Twin.LogoRules, in.LogoCount)
	}

	b.WriteString("Composition: follow a 60-30-10 balance of dominant, secondary and accent colors.\n")
	if tone := strings.TrimSpace(in.Twin.Tone); tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", tone)
	}

	if !wantsLiteralText(in.OriginalPrompt) {
		b.WriteString("Do not render literal text unless the request explicitly asks for it.\n")
	}

	if correction := strings.TrimSpace(in.Correction); correction != "" {
		fmt.Fprintf(&b, "\nCorrections from compliance review:\n%s\n", correction)
	}

	if original := strings.TrimSpace(in.OriginalPrompt); original != "" && original != prompt {
		fmt.Fprintf(&b, "\nOriginal request, verbatim: %q\n", original)
	}

	return b.String()
}

func writePalette(b *strings.Builder, p domain.Palette) {
	writeColors(b, "Primary colors", p.Primary)
	writeColors(b, "Secondary colors", p.Secondary)
	writeColors(b, "Accent colors", p.Accent)
	writeColors(b, "Neutral colors", p.Neutral)
	if len(p.Semantic) > 0 {
		pairs := make([]string, 0, len(p.Semantic))
		for name, hex := range p.Semantic {
			pairs = append(pairs, fmt.Sprintf("%s=%s", name, hex))
		}
		fmt.Fprintf(b, "Semantic colors: %s.\n", strings.Join(pairs, ", "))
	}
}

func writeColors(b *strings.Builder, label string, colors []string) {
	if len(colors) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s.\n", label, strings.Join(colors, ", "))
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func writeLogoRules(b *strings.Builder, rules domain.LogoRules, count int) {
	fmt.Fprintf(b, "Logos: incorporate the %d attached brand logo image(s) faithfully.\n", count)
	if rules.Placement != "" {
		fmt.Fprintf(b, "Logo placement: %s.\n", rules.Placement)
	}
	if rules.MinSizePx > 0 {
		fmt.Fprintf(b, "Logo minimum size: %dpx on the shortest edge.\n", rules.MinSizePx)
	}
	if rules.ClearSpace != "" {
		fmt.Fprintf(b, "Logo clear space: %s.\n", rules.ClearSpace)
	}
}

// wantsLiteralText consults the unmodified request wording for signs the user
// wants actual text rendered in the asset.
func wantsLiteralText(original string) bool {
	lowered := strings.ToLower(original)
	for _, marker := range []string{"text", "headline", "caption", "slogan", "tagline", "that says", "saying", "words", "\"", "'"} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
