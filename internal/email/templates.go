package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type digestEmailData struct {
	baseEmailData
	Projects []digestProject
}

type digestProject struct {
	ProjectID    string
	Status       string
	Leads14d     int
	Qualified14d int
	Visits14d    int
	Proposals30d int
	Units        []digestUnit
}

type digestUnit struct {
	Code                string
	Status              string
	LeadToVisitRate     int
	VisitToProposalRate int
	Gap                 string
}

func renderEmailTemplate(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
