package export

import (
	"bytes"
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var profileTemplate = template.Must(template.New("profile.html").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.UTC().Format(layout)
	},
}).ParseFS(templateFS, "templates/profile.html"))

// RenderHTML renders the summary page. All values are escaped.
func RenderHTML(summary Summary) (string, error) {
	var buf bytes.Buffer
	if err := profileTemplate.Execute(&buf, summary); err != nil {
		return "", err
	}
	return buf.String(), nil
}
