// Package fallback produces website code locally when the remote backend is
// unavailable or local mode is requested. Output already satisfies the
// sanitized-code contract and is never passed through the sanitizer.
package fallback

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/smartgenesis/api/internal/models"
	"github.com/smartgenesis/api/internal/prompt"
	"github.com/smartgenesis/api/internal/theme"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var appTemplate = template.Must(
	template.New("app.js.tmpl").
		Funcs(sprig.TxtFuncMap()).
		ParseFS(templateFS, "templates/app.js.tmpl"),
)

type appData struct {
	FunctionName string
	Name         string
	Industry     string
	Audience     string
	Palette      theme.Palette
	Blocks       []string
}

// Blocks returns the sections of req that produce a block, in render order.
// Unknown names are ignored.
func Blocks(req models.GenerationRequest) []string {
	blocks := make([]string, 0, len(models.KnownSections))
	for _, s := range models.KnownSections {
		if req.HasSection(s) {
			blocks = append(blocks, s)
		}
	}
	return blocks
}

// Generate renders the local page for req. Equal requests yield identical
// output.
func Generate(req models.GenerationRequest) (string, error) {
	data := appData{
		FunctionName: prompt.FunctionName,
		Name:         req.Name,
		Industry:     req.Industry,
		Audience:     req.Audience,
		Palette:      theme.Resolve(req.Color),
		Blocks:       Blocks(req),
	}

	var buf bytes.Buffer
	if err := appTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render fallback page: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
