package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	TemplateMagicLinkLogin           = "magic-link-login"
	TemplateMagicLinkRegister        = "magic-link-register"
	TemplateAdminLogin               = "admin-login"
	TemplateNewsletterSubscription   = "newsletter-subscription"
	TemplateNewsletterUnsubscription = "newsletter-unsubscription"

	DefaultValidityMinutes = 15
)

var ErrTemplateNotFound = errors.New("email template not found")

// Vars are the inputs of a named template. Token is the magic link token for
// the auth templates and the (un)subscribe token for the newsletter ones.
type Vars struct {
	SiteName        string
	Email           string
	Token           string
	UserName        string
	ValidityMinutes int
	LinkPath        string
	ButtonText      string
	Colors          Colors
	// Year overrides the footer year, which otherwise comes from Templates.Now.
	Year int
}

type Rendered struct {
	HTML    string `json:"html"`
	Text    string `json:"text"`
	Subject string `json:"subject"`
}

// Templates renders the named templates against one base URL.
type Templates struct {
	URL URLConfig
	Now func() time.Time
}

var registry = map[string]func(Templates, Vars) (Rendered, error){
	TemplateMagicLinkLogin:           Templates.MagicLinkLogin,
	TemplateMagicLinkRegister:        Templates.MagicLinkRegister,
	TemplateAdminLogin:               Templates.AdminLogin,
	TemplateNewsletterSubscription:   Templates.NewsletterSubscription,
	TemplateNewsletterUnsubscription: Templates.NewsletterUnsubscription,
}

func TemplateNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t Templates) Render(name string, v Vars) (Rendered, error) {
	fn, ok := registry[name]
	if !ok {
		return Rendered{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return fn(t, v)
}

func (t Templates) layout(v Vars, headerTitle, subject string) Layout {
	year := v.Year
	if year == 0 {
		now := time.Now
		if t.Now != nil {
			now = t.Now
		}
		year = now().Year()
	}
	return Layout{
		SiteName:    v.SiteName,
		Title:       subject,
		HeaderTitle: headerTitle,
		Year:        year,
		Colors:      v.Colors,
	}
}

func (t Templates) link(path, defaultPath, query string) string {
	if path == "" {
		path = defaultPath
	}
	return t.URL.BaseURL() + path + "?" + query
}

func greeting(v Vars) string {
	if v.UserName != "" {
		return "Hello " + v.UserName + ","
	}
	return "Hello,"
}

func validity(v Vars) int {
	if v.ValidityMinutes > 0 {
		return v.ValidityMinutes
	}
	return DefaultValidityMinutes
}

type bodyData struct {
	Vars
	Greeting string
	Link     string
	Button   string
	Validity int
}

func compose(l Layout, body *template.Template, data any, text string) (Rendered, error) {
	var buf bytes.Buffer
	if err := body.Execute(&buf, data); err != nil {
		return Rendered{}, fmt.Errorf("render %s: %w", body.Name(), err)
	}
	html, err := l.HTML(template.HTML(buf.String()))
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{HTML: html, Text: l.Text(text), Subject: l.Title}, nil
}

var magicLinkHTML = template.Must(template.New("magic-link").Parse(`
        <p>{{.Greeting}}</p>
        <p>{{.Intro}}</p>
        <p style="text-align: center;">
            <a href="{{.Link}}" class="button">{{.Button}}</a>
        </p>
        <p>If the button does not work, copy this link into your browser:</p>
        <p style="word-break: break-all; background-color: #f5f5f5; padding: 10px; border-radius: 4px;">{{.Link}}</p>
        <p>The link is valid for {{.Validity}} minutes and can only be used once.</p>
        <p>{{.Ignore}}</p>
        <p>Best regards,<br>
        The {{.SiteName}} team</p>
`))

type magicLinkData struct {
	bodyData
	Intro  string
	Ignore string
}

func (t Templates) magicLink(v Vars, kind, subject, header, button, intro, ignore string) (Rendered, error) {
	link := t.link(v.LinkPath, "/auth/verify", "token="+url.QueryEscape(v.Token)+"&type="+kind)
	if v.ButtonText != "" {
		button = v.ButtonText
	}
	l := t.layout(v, header, subject)
	data := bodyData{Vars: v, Greeting: greeting(v), Link: link, Button: button, Validity: validity(v)}

	text := fmt.Sprintf("%s\n\n%s\n\n%s\n\nThe link is valid for %d minutes and can only be used once.\n\n%s\n\nBest regards,\nThe %s team",
		data.Greeting, intro, link, data.Validity, ignore, v.SiteName)
	return compose(l, magicLinkHTML, magicLinkData{bodyData: data, Intro: intro, Ignore: ignore}, text)
}

func (t Templates) MagicLinkLogin(v Vars) (Rendered, error) {
	return t.magicLink(v, "login",
		"Your login link for "+v.SiteName,
		"Log in to "+v.SiteName,
		"Log in to "+v.SiteName,
		"Here is your personal login link for "+v.SiteName+":",
		"If you did not request a login, you can ignore this email.")
}

func (t Templates) MagicLinkRegister(v Vars) (Rendered, error) {
	return t.magicLink(v, "register",
		"Registration at "+v.SiteName,
		"Welcome to "+v.SiteName,
		"Register at "+v.SiteName,
		"Thank you for registering at "+v.SiteName+"! Use the link below to activate your account:",
		"If you did not sign up, you can ignore this email.")
}

var adminLoginHTML = template.Must(template.New("admin-login").Parse(`
        <div style="background-color: #fef8e8; border-left: 4px solid #f0ad4e; padding: 12px; margin-bottom: 20px;">
            <p style="margin: 0; color: #9b6516; font-weight: bold;">Admin area security notice</p>
            <p style="margin: 8px 0 0; color: #9b6516;">This link grants administrator rights. Do not share it.</p>
        </div>
        <p>{{.Greeting}}</p>
        <p>Here is your personal login link for the <strong>{{.SiteName}} Control Center</strong>:</p>
        <p style="text-align: center;">
            <a href="{{.Link}}" class="button" style="background-color: #d9534f !important;">{{.Button}}</a>
        </p>
        <p>If the button does not work, copy this link into your browser:</p>
        <p style="word-break: break-all; background-color: #f5f5f5; padding: 10px; border-radius: 4px;">{{.Link}}</p>
        <p>The link is valid for {{.Validity}} minutes and can only be used once.</p>
        <p>If you did not request a login, ignore this email and notify the administrator immediately.</p>
        <p>Kind regards,<br>
        The {{.SiteName}} team</p>
`))

func (t Templates) AdminLogin(v Vars) (Rendered, error) {
	subject := "Admin login for " + v.SiteName + " Control Center"
	button := "Control Center Login"
	if v.ButtonText != "" {
		button = v.ButtonText
	}
	link := t.link(v.LinkPath, "/cc/auth/verify", "token="+url.QueryEscape(v.Token)+"&type=login")
	data := bodyData{Vars: v, Greeting: greeting(v), Link: link, Button: button, Validity: validity(v)}

	var text strings.Builder
	text.WriteString("ADMIN AREA SECURITY NOTICE\nThis link grants administrator rights. Do not share it.\n\n")
	fmt.Fprintf(&text, "%s\n\nHere is your personal login link for the %s Control Center:\n\n%s\n\n", data.Greeting, v.SiteName, link)
	fmt.Fprintf(&text, "The link is valid for %d minutes and can only be used once.\n\n", data.Validity)
	text.WriteString("If you did not request a login, ignore this email and notify the administrator immediately.\n\n")
	fmt.Fprintf(&text, "Kind regards,\nThe %s team", v.SiteName)

	return compose(t.layout(v, "Control Center Login", subject), adminLoginHTML, data, text.String())
}

var subscriptionHTML = template.Must(template.New("newsletter-subscription").Parse(`
        <p>{{.Greeting}}</p>
        <p>Thank you for subscribing to the {{.SiteName}} newsletter!</p>
        <p>From now on you will regularly receive news about our latest offers, products and events.</p>
{{- if .Link}}
        <p>If you want to unsubscribe, follow this link:</p>
        <p><a href="{{.Link}}">Unsubscribe from the newsletter</a></p>
{{- end}}
        <p>Best regards,<br>
        The {{.SiteName}} team</p>
`))

// NewsletterSubscription only includes an unsubscribe link when v.Token is set.
func (t Templates) NewsletterSubscription(v Vars) (Rendered, error) {
	subject := "Newsletter subscription at " + v.SiteName
	var link string
	if v.Token != "" {
		link = t.link(v.LinkPath, "/newsletter/unsubscribe", "token="+url.QueryEscape(v.Token)+"&email="+url.QueryEscape(v.Email))
	}
	data := bodyData{Vars: v, Greeting: greeting(v), Link: link}

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n\nThank you for subscribing to the %s newsletter!\n\n", data.Greeting, v.SiteName)
	text.WriteString("From now on you will regularly receive news about our latest offers, products and events.\n")
	if link != "" {
		fmt.Fprintf(&text, "\nIf you want to unsubscribe, visit this link:\n\n%s\n", link)
	}
	fmt.Fprintf(&text, "\nBest regards,\nThe %s team", v.SiteName)

	return compose(t.layout(v, v.SiteName+" Newsletter", subject), subscriptionHTML, data, text.String())
}

var unsubscriptionHTML = template.Must(template.New("newsletter-unsubscription").Parse(`
        <p>{{.Greeting}}</p>
        <p>We have received and confirmed your unsubscription from the {{.SiteName}} newsletter.</p>
        <p>You will not receive any further newsletter emails from us.</p>
        <p>If you change your mind, you can subscribe again at any time:</p>
        <p style="text-align: center;">
            <a href="{{.Link}}" class="button">Subscribe again</a>
        </p>
        <p>Thank you for your interest in {{.SiteName}}.</p>
        <p>Best regards,<br>
        The {{.SiteName}} team</p>
`))

func (t Templates) NewsletterUnsubscription(v Vars) (Rendered, error) {
	subject := "Newsletter unsubscription at " + v.SiteName
	path := v.LinkPath
	if path == "" {
		path = "/newsletter/subscribe"
	}
	link := t.URL.BaseURL() + path
	if v.Token != "" {
		link += "?token=" + url.QueryEscape(v.Token) + "&email=" + url.QueryEscape(v.Email)
	}
	data := bodyData{Vars: v, Greeting: greeting(v), Link: link}

	text := fmt.Sprintf("%s\n\nWe have received and confirmed your unsubscription from the %s newsletter.\n\n"+
		"You will not receive any further newsletter emails from us.\n\n"+
		"If you change your mind, you can subscribe again at any time:\n%s\n\n"+
		"Thank you for your interest in %s.\n\nBest regards,\nThe %s team",
		data.Greeting, v.SiteName, link, v.SiteName, v.SiteName)

	return compose(t.layout(v, "Unsubscribed from the "+v.SiteName+" newsletter", subject), unsubscriptionHTML, data, text)
}

// GenerateLoginEmail builds a plain login message addressed to addr.
func (t Templates) GenerateLoginEmail(addr, token, siteName string) (Message, error) {
	msg := Message{To: []string{addr}, Subject: "Your " + siteName + " Login Link"}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	r, err := t.MagicLinkLogin(Vars{SiteName: siteName, Email: addr, Token: token})
	if err != nil {
		return Message{}, err
	}
	msg.HTML = r.HTML
	msg.Text = r.Text
	return msg, nil
}

// Message addresses a rendered template to the given recipients.
func (r Rendered) Message(to ...string) Message {
	return Message{To: to, Subject: r.Subject, HTML: r.HTML, Text: r.Text}
}
