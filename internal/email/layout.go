package email

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"unicode/utf8"
)

type Colors struct {
	Primary    string
	Secondary  string
	Background string
	Text       string
}

var DefaultColors = Colors{
	Primary:    "#007bff",
	Secondary:  "#6c757d",
	Background: "#f8f9fa",
	Text:       "#212529",
}

// cssColor accepts hex, rgb[a]() and hsl[a]() notations and named colors.
var cssColor = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|(rgb|rgba|hsl|hsla)\([0-9.,%\s]+\)|[a-zA-Z]+)$`)

type cssColors struct {
	Primary    template.CSS
	Secondary  template.CSS
	Background template.CSS
	Text       template.CSS
}

func colorOrDefault(v, def string) template.CSS {
	v = strings.TrimSpace(v)
	if !cssColor.MatchString(v) {
		v = def
	}
	return template.CSS(v)
}

// css returns the colors safe for the style block; a missing or malformed
// value falls back to DefaultColors.
func (c Colors) css() cssColors {
	return cssColors{
		Primary:    colorOrDefault(c.Primary, DefaultColors.Primary),
		Secondary:  colorOrDefault(c.Secondary, DefaultColors.Secondary),
		Background: colorOrDefault(c.Background, DefaultColors.Background),
		Text:       colorOrDefault(c.Text, DefaultColors.Text),
	}
}

// Layout is the shared header and footer around every named template.
type Layout struct {
	SiteName    string
	Title       string
	HeaderTitle string
	Year        int
	Colors      Colors
}

func (l Layout) withDefaults() Layout {
	if l.HeaderTitle == "" {
		l.HeaderTitle = l.SiteName
	}
	if l.Title == "" {
		l.Title = l.SiteName
	}
	return l
}

var layoutHTML = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body { font-family: 'Helvetica Neue', Arial, sans-serif; line-height: 1.6; color: {{.CSS.Text}}; background-color: {{.CSS.Background}}; margin: 0; padding: 0; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; background-color: #ffffff; border: 1px solid #e4e4e4; border-radius: 5px; }
        .header { background-color: {{.CSS.Primary}}; padding: 20px; text-align: center; color: white; border-radius: 5px 5px 0 0; }
        .content { padding: 20px; }
        .button { display: inline-block; background-color: {{.CSS.Primary}}; color: white !important; text-decoration: none; padding: 10px 20px; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; text-align: center; font-size: 12px; color: {{.CSS.Secondary}}; border-top: 1px solid #e4e4e4; padding-top: 20px; }
        a { color: {{.CSS.Primary}}; text-decoration: underline; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.HeaderTitle}}</h1>
        </div>
        <div class="content">
{{.Content}}
        </div>
        <div class="footer">
            <p>&copy; {{.Year}} {{.SiteName}}. All rights reserved.</p>
            <p>This is an automatically generated email, please do not reply.</p>
        </div>
    </div>
</body>
</html>
`))

func (l Layout) HTML(content template.HTML) (string, error) {
	l = l.withDefaults()
	var buf bytes.Buffer
	err := layoutHTML.Execute(&buf, struct {
		Layout
		CSS     cssColors
		Content template.HTML
	}{l, l.Colors.css(), content})
	if err != nil {
		return "", fmt.Errorf("render layout: %w", err)
	}
	return buf.String(), nil
}

func (l Layout) Text(content string) string {
	var b strings.Builder
	b.WriteString(l.SiteName)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", utf8.RuneCountInString(l.SiteName)))
	b.WriteString("\n\n")
	b.WriteString(content)
	fmt.Fprintf(&b, "\n\n--\n© %d %s. All rights reserved.\n", l.Year, l.SiteName)
	b.WriteString("This is an automatically generated email, please do not reply.")
	return b.String()
}
