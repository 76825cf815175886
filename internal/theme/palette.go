package theme

import "strings"

// DefaultDescription is used when a request carries no color hint
const DefaultDescription = "modern blue gradient"

// Palette is the primary/accent color pair used by generated pages
type Palette struct {
	Family  string
	Primary string
	Accent  string
}

// Default is returned when no family keyword matches
var Default = Palette{Family: "default", Primary: "#4F46E5", Accent: "#818CF8"}

// families are checked in order; the first keyword found wins
var families = []Palette{
	{Family: "blue", Primary: "#4F46E5", Accent: "#818CF8"},
	{Family: "purple", Primary: "#9333EA", Accent: "#C084FC"},
	{Family: "green", Primary: "#10B981", Accent: "#34D399"},
	{Family: "red", Primary: "#EF4444", Accent: "#F87171"},
}

// Resolve derives a palette from a free-text color hint by case-insensitive
// substring match against the known families.
func Resolve(hint string) Palette {
	hint = strings.ToLower(hint)
	if hint == "" {
		return Default
	}
	for _, p := range families {
		if strings.Contains(hint, p.Family) {
			return p
		}
	}
	return Default
}

// Describe returns the theme text embedded in prompts
func Describe(hint string) string {
	if strings.TrimSpace(hint) == "" {
		return DefaultDescription
	}
	return hint
}
