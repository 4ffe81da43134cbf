package view

import (
	"fmt"
	"html/template"
	"net/http"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/slooze/slooze-web/internal/shared"
	"github.com/slooze/slooze-web/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Data        any
}

// FormatMinor renders an amount in minor units as rupees with two decimals
// and no grouping.
func FormatMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("₹%s%d.%02d", sign, minor/100, minor%100)
}

// RoleLabel turns an API role such as "MANAGER" into "Manager".
func RoleLabel(role string) string {
	return cases.Title(language.English).String(role)
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatMinor": FormatMinor,
		"roleLabel":   RoleLabel,
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}
