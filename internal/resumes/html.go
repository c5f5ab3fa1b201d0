package resumes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"resume-builder/internal/dialog"
	"resume-builder/internal/sessions"
)

const defaultTitle = "Professional Resume"

type documentView struct {
	Title       string
	Template    string
	AccentColor string
	FontSize    string
	Personal    *dialog.PersonalInfo
	Summary     *dialog.Summary
	Work        *dialog.WorkExperience
	Education   *dialog.Education
	Skills      *dialog.Skills
}

var fontSizes = map[string]string{
	"small":  "13px",
	"medium": "15px",
	"large":  "17px",
}

// renderHTML turns a session's canonical section data into the immutable
// HTML snapshot stored on the resume record. Sections the session never
// filled in are simply omitted.
func renderHTML(sess *sessions.Session) (string, string, error) {
	view := documentView{
		Title:       defaultTitle,
		Template:    "modern",
		AccentColor: "#1f6feb",
		FontSize:    fontSizes["medium"],
	}

	if raw, ok := sess.Section(dialog.SectionTemplate); ok {
		var choice dialog.TemplateChoice
		if err := json.Unmarshal(raw, &choice); err == nil {
			if choice.TemplateID != "" {
				view.Template = choice.TemplateID
			}
			if choice.AccentColor != "" {
				view.AccentColor = choice.AccentColor
			}
			if size, ok := fontSizes[choice.FontScale]; ok {
				view.FontSize = size
			}
		}
	}

	if raw, ok := sess.Section(dialog.SectionPersonal); ok {
		var p dialog.PersonalInfo
		if err := json.Unmarshal(raw, &p); err != nil {
			return "", "", fmt.Errorf("decode personal section: %w", err)
		}
		view.Personal = &p
		if p.FullName != "" {
			view.Title = p.FullName + " - Resume"
		}
	}
	if raw, ok := sess.Section(dialog.SectionSummary); ok {
		var s dialog.Summary
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", "", fmt.Errorf("decode summary section: %w", err)
		}
		view.Summary = &s
	}
	if raw, ok := sess.Section(dialog.SectionWorkExperience); ok {
		var w dialog.WorkExperience
		if err := json.Unmarshal(raw, &w); err != nil {
			return "", "", fmt.Errorf("decode work experience section: %w", err)
		}
		view.Work = &w
	}
	if raw, ok := sess.Section(dialog.SectionEducation); ok {
		var e dialog.Education
		if err := json.Unmarshal(raw, &e); err != nil {
			return "", "", fmt.Errorf("decode education section: %w", err)
		}
		view.Education = &e
	}
	if raw, ok := sess.Section(dialog.SectionSkills); ok {
		var sk dialog.Skills
		if err := json.Unmarshal(raw, &sk); err != nil {
			return "", "", fmt.Errorf("decode skills section: %w", err)
		}
		view.Skills = &sk
	}

	var buf bytes.Buffer
	if err := resumeTemplate.Execute(&buf, view); err != nil {
		return "", "", fmt.Errorf("render resume: %w", err)
	}
	return view.Title, buf.String(), nil
}

var resumeTemplate = template.Must(template.New("resume").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  :root { --accent: {{.AccentColor}}; }
  body { font-family: Georgia, 'Times New Roman', serif; font-size: {{.FontSize}}; color: #1a1a1a; margin: 0; }
  body.modern, body.compact { font-family: 'Helvetica Neue', Arial, sans-serif; }
  .page { max-width: 760px; margin: 0 auto; padding: 48px 40px; }
  .compact .page { padding: 28px 32px; }
  header h1 { margin: 0 0 4px; color: var(--accent); }
  .minimal header h1 { color: #1a1a1a; }
  header .contact { color: #555; }
  section { margin-top: 24px; }
  section h2 { font-size: 1.05em; text-transform: uppercase; letter-spacing: 0.06em; border-bottom: 2px solid var(--accent); padding-bottom: 4px; }
  .minimal section h2 { border-bottom: 1px solid #ddd; }
  .entry { margin-top: 12px; }
  .entry .heading { font-weight: bold; }
  .entry .meta { color: #666; font-size: 0.92em; }
  ul { margin: 6px 0 0; padding-left: 20px; }
  .skill-group { margin-top: 6px; }
  .skill-group .name { font-weight: bold; }
</style>
</head>
<body class="{{.Template}}">
<div class="page">
<header>
{{- if .Personal}}
  <h1>{{.Personal.FullName}}</h1>
  {{- if .Personal.Headline}}<div class="headline">{{.Personal.Headline}}</div>{{end}}
  <div class="contact">
    {{- .Personal.Email}}{{if .Personal.Phone}} &middot; {{.Personal.Phone}}{{end}}{{if .Personal.Location}} &middot; {{.Personal.Location}}{{end -}}
  </div>
  {{- range .Personal.Links}}
  <div class="contact"><a href="{{.URL}}">{{.Label}}</a></div>
  {{- end}}
{{- else}}
  <h1>{{.Title}}</h1>
{{- end}}
</header>
{{- if .Summary}}
<section>
  <h2>Summary</h2>
  <p>{{.Summary.Text}}</p>
</section>
{{- end}}
{{- if .Work}}
<section>
  <h2>Experience</h2>
  {{- range .Work.Positions}}
  <div class="entry">
    <div class="heading">{{.Title}}, {{.Company}}</div>
    <div class="meta">{{.StartDate}} &ndash; {{if .EndDate}}{{.EndDate}}{{else}}Present{{end}}{{if .Location}} &middot; {{.Location}}{{end}}</div>
    {{- if .Highlights}}
    <ul>
      {{- range .Highlights}}
      <li>{{.}}</li>
      {{- end}}
    </ul>
    {{- end}}
  </div>
  {{- end}}
</section>
{{- end}}
{{- if .Education}}
<section>
  <h2>Education</h2>
  {{- range .Education.Schools}}
  <div class="entry">
    <div class="heading">{{.Institution}}</div>
    <div class="meta">{{.Degree}}{{if .Field}}, {{.Field}}{{end}}{{if .EndYear}} &middot; {{.EndYear}}{{end}}</div>
    {{- if .Notes}}<div>{{.Notes}}</div>{{end}}
  </div>
  {{- end}}
</section>
{{- end}}
{{- if .Skills}}
<section>
  <h2>Skills</h2>
  {{- range .Skills.Groups}}
  <div class="skill-group"><span class="name">{{.Name}}:</span>
    {{- range $i, $item := .Items}}{{if $i}}, {{end}} {{$item}}{{end}}
  </div>
  {{- end}}
</section>
{{- end}}
</div>
</body>
</html>
`))
