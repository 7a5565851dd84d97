package mailing

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"
)

// Template names.
const (
	TemplateVerification      = "verification"
	TemplatePasswordReset     = "password_reset"
	TemplateApplicationStatus = "application_status"
	TemplateNewMessage        = "new_message"
)

type emailTemplate struct {
	subject *liquid.Template
	html    *liquid.Template
	text    *liquid.Template
}

// Templates holds the parsed email templates.
type Templates struct {
	engine    *liquid.Engine
	templates map[string]*emailTemplate
}

// Rendered is the output of one template.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// NewTemplates parses the built-in templates.
func NewTemplates() (*Templates, error) {
	engine := liquid.NewEngine()
	registerFilters(engine)

	t := &Templates{engine: engine, templates: map[string]*emailTemplate{}}
	for name, src := range builtinTemplates {
		if err := t.Add(name, src.subject, src.html, src.text); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Add parses and registers a template, replacing any with the same name.
func (t *Templates) Add(name, subject, html, text string) error {
	parse := func(part, src string) (*liquid.Template, error) {
		tpl, err := t.engine.ParseString(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s %s: %w", name, part, err)
		}
		return tpl, nil
	}
	var et emailTemplate
	var err error
	if et.subject, err = parse("subject", subject); err != nil {
		return err
	}
	if et.html, err = parse("html", html); err != nil {
		return err
	}
	if et.text, err = parse("text", text); err != nil {
		return err
	}
	t.templates[name] = &et
	return nil
}

// Render fills the named template with vars.
func (t *Templates) Render(name string, vars map[string]any) (*Rendered, error) {
	et, ok := t.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown email template %q", name)
	}
	var out Rendered
	var err error
	if out.Subject, err = et.subject.RenderString(vars); err != nil {
		return nil, fmt.Errorf("render %s subject: %w", name, err)
	}
	if out.HTML, err = et.html.RenderString(vars); err != nil {
		return nil, fmt.Errorf("render %s html: %w", name, err)
	}
	if out.Text, err = et.text.RenderString(vars); err != nil {
		return nil, fmt.Errorf("render %s text: %w", name, err)
	}
	out.Subject = strings.TrimSpace(out.Subject)
	return &out, nil
}

func registerFilters(engine *liquid.Engine) {
	// {{ first_name | default: "there" }}
	engine.RegisterFilter("default", func(value any, fallback string) any {
		if value == nil {
			return fallback
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return fallback
		}
		return value
	})

	// {{ status | humanize }} turns "not_looking" into "Not looking".
	engine.RegisterFilter("humanize", func(s string) string {
		s = strings.ReplaceAll(s, "_", " ")
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	})

	engine.RegisterFilter("truncate", func(s string, length int) string {
		r := []rune(s)
		if len(r) <= length {
			return s
		}
		if length <= 3 {
			return string(r[:length])
		}
		return string(r[:length-3]) + "..."
	})
}

type templateSource struct {
	subject, html, text string
}

const layoutHead = `<!doctype html><html><body style="font-family:Arial,sans-serif;color:#1f2933;max-width:560px;margin:0 auto;padding:24px">`
const layoutFoot = `<p style="color:#7b8794;font-size:12px;margin-top:32px">PMO Network</p></body></html>`

var builtinTemplates = map[string]templateSource{
	TemplateVerification: {
		subject: `Confirm your email address`,
		html: layoutHead + `<p>Hi {{ name | default: "there" | escape }},</p>
<p>Please confirm your email address to finish setting up your PMO Network account.</p>
<p><a href="{{ link }}" style="background:#1d4ed8;color:#fff;padding:10px 16px;border-radius:4px;text-decoration:none">Confirm email</a></p>
<p>This link expires in {{ ttl_hours }} hours.</p>` + layoutFoot,
		text: `Hi {{ name | default: "there" }},

Please confirm your email address to finish setting up your PMO Network account:
{{ link }}

This link expires in {{ ttl_hours }} hours.
`,
	},
	TemplatePasswordReset: {
		subject: `Reset your password`,
		html: layoutHead + `<p>Hi {{ name | default: "there" | escape }},</p>
<p>We received a request to reset your password.</p>
<p><a href="{{ link }}" style="background:#1d4ed8;color:#fff;padding:10px 16px;border-radius:4px;text-decoration:none">Choose a new password</a></p>
<p>The link expires in {{ ttl_minutes }} minutes. If you did not ask for this, ignore this email.</p>` + layoutFoot,
		text: `Hi {{ name | default: "there" }},

We received a request to reset your password. Choose a new one here:
{{ link }}

The link expires in {{ ttl_minutes }} minutes. If you did not ask for this, ignore this email.
`,
	},
	TemplateApplicationStatus: {
		subject: `Your application for {{ job_title }}: {{ status | humanize }}`,
		html: layoutHead + `<p>Hi {{ name | default: "there" | escape }},</p>
<p>Your application for <strong>{{ job_title | escape }}</strong>{% if company != "" %} at {{ company | escape }}{% endif %} is now <strong>{{ status | humanize }}</strong>.</p>
{% if note != "" %}<blockquote style="border-left:3px solid #cbd2d9;padding-left:12px">{{ note | escape }}</blockquote>{% endif %}
<p><a href="{{ link }}">View your application</a></p>` + layoutFoot,
		text: `Hi {{ name | default: "there" }},

Your application for {{ job_title }}{% if company != "" %} at {{ company }}{% endif %} is now {{ status | humanize }}.
{% if note != "" %}
{{ note }}
{% endif %}
View your application: {{ link }}
`,
	},
	TemplateNewMessage: {
		subject: `{{ sender_name | default: "Someone" }} sent you a message`,
		html: layoutHead + `<p>Hi {{ name | default: "there" | escape }},</p>
<p>{{ sender_name | default: "Someone" | escape }} sent you a message{% if subject != "" %} about <strong>{{ subject | escape }}</strong>{% endif %}:</p>
<blockquote style="border-left:3px solid #cbd2d9;padding-left:12px">{{ preview | truncate: 280 | escape }}</blockquote>
<p><a href="{{ link }}">Reply on PMO Network</a></p>` + layoutFoot,
		text: `Hi {{ name | default: "there" }},

{{ sender_name | default: "Someone" }} sent you a message:

{{ preview | truncate: 280 }}

Reply on PMO Network: {{ link }}
`,
	},
}
