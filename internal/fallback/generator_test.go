package fallback

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartgenesis/api/internal/models"
	"github.com/smartgenesis/api/internal/sanitizer"
)

func acmeRequest() models.GenerationRequest {
	return models.GenerationRequest{
		Name:     "Acme",
		Industry: "Retail",
		Audience: "Shoppers",
		Color:    "blue",
		Sections: []string{"About", "Contact"},
	}
}

func marker(section string) string {
	return fmt.Sprintf("'data-section': '%s'", section)
}

func TestGenerateIsDeterministic(t *testing.T) {
	first, err := Generate(acmeRequest())
	require.NoError(t, err)
	second, err := Generate(acmeRequest())
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("fallback output changed between calls (-first +second):\n%s", diff)
	}
}

func TestGenerateAcmeBlue(t *testing.T) {
	code, err := Generate(acmeRequest())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(code, "function App() {"))
	assert.Contains(t, code, "'About Acme'")
	assert.Contains(t, code, marker("About"))
	assert.Contains(t, code, marker("Contact"))
	assert.Contains(t, code, "const primaryColor = '#4F46E5';")
	assert.Contains(t, code, "const accentColor = '#818CF8';")
	assert.Contains(t, code, "contact@acme.com")

	for _, forbidden := range []string{"import", "export", "require("} {
		assert.NotContains(t, code, forbidden)
	}
}

func TestGenerateSectionMembership(t *testing.T) {
	for _, requested := range [][]string{
		{},
		{"About"},
		{"Gallery", "Services"},
		{"About", "Services", "Products", "Testimonials", "Gallery", "Contact"},
		{"Pricing", "Contact"},
	} {
		t.Run(strings.Join(requested, "+"), func(t *testing.T) {
			req := acmeRequest()
			req.Sections = requested

			code, err := Generate(req)
			require.NoError(t, err)

			for _, section := range models.KnownSections {
				if req.HasSection(section) {
					assert.Contains(t, code, marker(section))
				} else {
					assert.NotContains(t, code, marker(section))
				}
			}
			assert.NotContains(t, code, "Pricing")
		})
	}
}

func TestGenerateMatchIsExact(t *testing.T) {
	req := acmeRequest()
	req.Sections = []string{"about", "CONTACT"}

	code, err := Generate(req)
	require.NoError(t, err)
	assert.NotContains(t, code, marker("About"))
	assert.NotContains(t, code, marker("Contact"))
}

func TestGenerateBlocksFollowRenderOrder(t *testing.T) {
	req := acmeRequest()
	req.Sections = []string{"Contact", "Gallery", "About"}

	assert.Equal(t, []string{"About", "Gallery", "Contact"}, Blocks(req))

	code, err := Generate(req)
	require.NoError(t, err)
	about := strings.Index(code, marker("About"))
	gallery := strings.Index(code, marker("Gallery"))
	contact := strings.Index(code, marker("Contact"))
	assert.Less(t, about, gallery)
	assert.Less(t, gallery, contact)
}

func TestGeneratePalettes(t *testing.T) {
	tests := []struct {
		color   string
		primary string
		accent  string
	}{
		{"", "#4F46E5", "#818CF8"},
		{"royal purple", "#9333EA", "#C084FC"},
		{"Forest GREEN", "#10B981", "#34D399"},
		{"crimson red", "#EF4444", "#F87171"},
		{"beige", "#4F46E5", "#818CF8"},
	}

	for _, tt := range tests {
		t.Run(tt.color, func(t *testing.T) {
			req := acmeRequest()
			req.Color = tt.color

			code, err := Generate(req)
			require.NoError(t, err)
			assert.Contains(t, code, "const primaryColor = '"+tt.primary+"';")
			assert.Contains(t, code, "const accentColor = '"+tt.accent+"';")
		})
	}
}

func TestGenerateEscapesUserText(t *testing.T) {
	req := acmeRequest()
	req.Name = "Joe's </script> Diner"
	req.Audience = `people who say "hi"`

	code, err := Generate(req)
	require.NoError(t, err)

	assert.Contains(t, code, `'Joe\'s \u003C/script\u003E Diner'`)
	assert.Contains(t, code, `people who say \"hi\"`)
	assert.NotContains(t, code, "</script>")
	assert.Contains(t, code, `contact@joe\'s\u003C/script\u003Ediner.com`)
}

func TestGenerateSatisfiesSanitizedContract(t *testing.T) {
	req := acmeRequest()
	req.Sections = models.KnownSections

	code, err := Generate(req)
	require.NoError(t, err)

	cleaned, err := sanitizer.Sanitize(code)
	require.NoError(t, err)
	if diff := cmp.Diff(code, cleaned); diff != "" {
		t.Fatalf("sanitizer altered fallback output (-fallback +sanitized):\n%s", diff)
	}
}
