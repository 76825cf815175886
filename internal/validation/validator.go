package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/smartgenesis/api/internal/models"
)

// Error reports the first constraint a request violated
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "Invalid input: " + e.Message
}

func newError(field, message string) *Error {
	return &Error{Field: field, Message: message}
}

// IsValidationError reports whether err carries a *Error
func IsValidationError(err error) bool {
	var verr *Error
	return errors.As(err, &verr)
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// boundMessages maps struct field + tag to the message shown to the caller
var boundMessages = map[string]string{
	"Name.max":     "Business name is too long (max %s characters)",
	"Industry.max": "Industry is too long (max %s characters)",
	"Audience.max": "Target audience is too long (max %s characters)",
	"Color.max":    "Color theme is too long (max %s characters)",
	"Sections.max": "Too many sections (max %s)",
}

var fieldNames = map[string]string{
	"Name":     "name",
	"Industry": "industry",
	"Audience": "audience",
	"Color":    "color",
	"Sections": "sections",
}

// Decode turns a JSON body into a candidate for Validate. Malformed JSON,
// including anything after the first value, is a client error like any other
// constraint violation.
func Decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	var candidate any
	if err := dec.Decode(&candidate); err != nil {
		return nil, newError("", "request body must be valid JSON")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, newError("", "request body must be valid JSON")
	}
	return candidate, nil
}

// Parse decodes a JSON body and validates it
func Parse(body []byte) (models.GenerationRequest, error) {
	candidate, err := Decode(body)
	if err != nil {
		return models.GenerationRequest{}, err
	}
	return Validate(candidate)
}

// Validate checks a candidate request and returns the typed request when every
// constraint holds. candidate may be a decoded JSON value (map[string]any) or
// a models.GenerationRequest. Checks run in a fixed order and stop at the
// first violation.
func Validate(candidate any) (models.GenerationRequest, error) {
	switch v := candidate.(type) {
	case models.GenerationRequest:
		return validateTyped(v)
	case *models.GenerationRequest:
		if v == nil {
			return models.GenerationRequest{}, newError("", "data must be an object")
		}
		return validateTyped(*v)
	case map[string]any:
		return validateDocument(v)
	default:
		return models.GenerationRequest{}, newError("", "data must be an object")
	}
}

func validateTyped(req models.GenerationRequest) (models.GenerationRequest, error) {
	if err := checkRequired(req.Name, req.Industry, req.Audience); err != nil {
		return models.GenerationRequest{}, err
	}
	out := req
	out.Sections = append([]string{}, req.Sections...)
	if err := checkBounds(out); err != nil {
		return models.GenerationRequest{}, err
	}
	return out, nil
}

func validateDocument(doc map[string]any) (models.GenerationRequest, error) {
	name, _ := doc["name"].(string)
	industry, _ := doc["industry"].(string)
	audience, _ := doc["audience"].(string)
	if err := checkRequired(name, industry, audience); err != nil {
		return models.GenerationRequest{}, err
	}

	rawSections, ok := doc["sections"].([]any)
	if !ok {
		return models.GenerationRequest{}, newError("sections", "Sections must be an array")
	}
	sections := make([]string, 0, len(rawSections))
	for _, item := range rawSections {
		s, ok := item.(string)
		if !ok {
			return models.GenerationRequest{}, newError("sections", "Sections must contain only text entries")
		}
		sections = append(sections, s)
	}

	var color string
	if raw, present := doc["color"]; present && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return models.GenerationRequest{}, newError("color", "Color theme must be a string")
		}
		color = s
	}

	req := models.GenerationRequest{
		Name:     name,
		Industry: industry,
		Audience: audience,
		Color:    color,
		Sections: sections,
	}
	if err := checkBounds(req); err != nil {
		return models.GenerationRequest{}, err
	}
	return req, nil
}

func checkRequired(name, industry, audience string) error {
	if strings.TrimSpace(name) == "" {
		return newError("name", "Business name is required")
	}
	if strings.TrimSpace(industry) == "" {
		return newError("industry", "Industry is required")
	}
	if strings.TrimSpace(audience) == "" {
		return newError("audience", "Target audience is required")
	}
	return nil
}

// checkBounds applies the struct tags on models.GenerationRequest. Fields are
// reported in declaration order, which is the documented check order.
func checkBounds(req models.GenerationRequest) error {
	err := structValidator.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate request: %w", err)
	}

	first := fieldErrs[0]
	key := first.StructField() + "." + first.Tag()
	field := fieldNames[first.StructField()]
	if format, ok := boundMessages[key]; ok {
		return newError(field, fmt.Sprintf(format, first.Param()))
	}
	return newError(field, fmt.Sprintf("%s failed %s constraint", field, first.Tag()))
}
