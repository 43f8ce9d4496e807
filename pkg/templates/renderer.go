// Package templates renders the prompts sent to the model by each workflow step.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed *.tpl.md
var templateFS embed.FS

// TemplateData holds the values a prompt template may reference.
type TemplateData struct {
	UserRequest   string `json:"user_request"`
	LatestMessage string `json:"latest_message,omitempty"`
	CurrentCode   string `json:"current_code,omitempty"`
}

// StateTemplate names an embedded prompt template.
type StateTemplate string

const (
	// RouterSystemTemplate instructs the router to answer plan or end.
	RouterSystemTemplate StateTemplate = "router_system.tpl.md"
	// RouterRequestTemplate carries the user request and the latest turn.
	RouterRequestTemplate StateTemplate = "router_request.tpl.md"
	// RouterDecideTemplate is the closing question put to the router.
	RouterDecideTemplate StateTemplate = "router_decide.tpl.md"

	// PlannerSystemTemplate asks for three fenced blocks and embeds the current code.
	PlannerSystemTemplate StateTemplate = "planner_system.tpl.md"
	// PlannerRequestTemplate carries the user request.
	PlannerRequestTemplate StateTemplate = "planner_request.tpl.md"
)

// Renderer holds the parsed prompt templates.
type Renderer struct {
	templates map[StateTemplate]*template.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[StateTemplate]*template.Template),
	}

	templateNames := []StateTemplate{
		RouterSystemTemplate,
		RouterRequestTemplate,
		RouterDecideTemplate,
		PlannerSystemTemplate,
		PlannerRequestTemplate,
	}

	for _, name := range templateNames {
		content, err := templateFS.ReadFile(string(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		tmpl, err := template.New(string(name)).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		r.templates[name] = tmpl
	}

	return r, nil
}

// MustNewRenderer is NewRenderer for package-level initialization. The
// templates are embedded, so a failure here is a build defect.
func MustNewRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Render renders the named template. Trailing whitespace is trimmed.
func (r *Renderer) Render(templateName StateTemplate, data *TemplateData) (string, error) {
	tmpl, exists := r.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", templateName, err)
	}

	return strings.TrimRight(buf.String(), "\n"), nil
}

// GetAvailableTemplates returns the names of all loaded templates.
func (r *Renderer) GetAvailableTemplates() []StateTemplate {
	templates := make([]StateTemplate, 0, len(r.templates))
	for name := range r.templates {
		templates = append(templates, name)
	}
	return templates
}
