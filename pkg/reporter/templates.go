package reporter

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/backport-tags/pkg/finder"
	"github.com/backport-tags/pkg/ui"
)

var bulletsTmpl = template.Must(template.New("bullets").Parse(`# Tags containing {{ .Repo.Slug }}#{{ .PR }}
{{ if .Title }}
_{{ .Title }}_
{{ end }}
{{ range .Tags }}- {{ . }}
{{ end }}`))

func renderMarkdown(res *finder.Result) (string, error) {
	var buf bytes.Buffer
	if err := bulletsTmpl.Execute(&buf, res); err != nil {
		return "", fmt.Errorf("render tag list: %w", err)
	}
	return buf.String(), nil
}

func noTagsMessage(res *finder.Result) string {
	return fmt.Sprintf("%s No tag contains %s#%d or its backports yet.", ui.IconWarn, res.Repo.Slug(), res.PR)
}
