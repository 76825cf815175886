// Package prompt renders validated generation requests into backend instructions.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/smartgenesis/api/internal/models"
	"github.com/smartgenesis/api/internal/theme"
)

// FunctionName is the top-level function every generated artifact defines
const FunctionName = "App"

// SystemInstruction is sent alongside every composed prompt
const SystemInstruction = "You are an expert React developer who creates clean, modern, and professional website code. You always follow instructions precisely and generate production-ready code."

//go:embed templates/*.tmpl
var templateFS embed.FS

var promptTemplate = template.Must(
	template.New("prompt.tmpl").
		Funcs(sprig.TxtFuncMap()).
		ParseFS(templateFS, "templates/prompt.tmpl"),
)

type promptData struct {
	Name         string
	Industry     string
	Audience     string
	Color        string
	DefaultTheme string
	Sections     []string
	Palette      theme.Palette
	FunctionName string
}

// Compose renders the instruction for req. It performs no I/O and is
// deterministic: equal requests yield byte-identical prompts.
func Compose(req models.GenerationRequest) (string, error) {
	sections := req.Sections
	if len(sections) == 0 {
		sections = models.DefaultSections
	}

	data := promptData{
		Name:         req.Name,
		Industry:     req.Industry,
		Audience:     req.Audience,
		Color:        req.Color,
		DefaultTheme: theme.DefaultDescription,
		Sections:     sections,
		Palette:      theme.Resolve(theme.Describe(req.Color)),
		FunctionName: FunctionName,
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
