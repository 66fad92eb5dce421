package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

// Template names for every notification the service sends.
const (
	TemplateRegistrationSubmitted = "registration_submitted"
	TemplateRegistrationDecided   = "registration_decided"
	TemplateEventSubmitted        = "event_submitted"
	TemplateEventDecided          = "event_decided"
	TemplateEventCancelled        = "event_cancelled"
	TemplateAssignmentCreated     = "assignment_created"
	TemplateAssignmentCancelled   = "assignment_cancelled"
	TemplateHonorDecided          = "honor_decided"
	TemplateHonorPaid             = "honor_paid"
)

// ErrUnknownTemplate is returned by Render for an unregistered name.
var ErrUnknownTemplate = errors.New("unknown email template")

type mailTemplate struct {
	subject *texttemplate.Template
	body    *template.Template
}

const layout = `<div style="font-family:sans-serif;max-width:560px">{{template "content" .}}` +
	`<p style="color:#888;font-size:12px">Referee Desk</p></div>`

var templates = map[string]mailTemplate{
	TemplateRegistrationSubmitted: mustParse(
		`New registration: {{.Name}}`,
		`<p>{{.Name}} ({{.Email}}) registered as {{.Role}} and is waiting for approval.</p>`),
	TemplateRegistrationDecided: mustParse(
		`Your registration was {{.Decision}}`,
		`<p>Hello {{.Name}},</p><p>Your registration was {{.Decision}}.</p>{{if .Note}}<p>Note: {{.Note}}</p>{{end}}`),
	TemplateEventSubmitted: mustParse(
		`Event submitted: {{.Title}}`,
		`<p>{{.Submitter}} submitted <strong>{{.Title}}</strong> at {{.Venue}} ({{.Start}} to {{.End}}).</p>`),
	TemplateEventDecided: mustParse(
		`Event {{.Decision}}: {{.Title}}`,
		`<p>Your event <strong>{{.Title}}</strong> was {{.Decision}}.</p>{{if .Note}}<p>Note: {{.Note}}</p>{{end}}`),
	TemplateEventCancelled: mustParse(
		`Event cancelled: {{.Title}}`,
		`<p><strong>{{.Title}}</strong> ({{.Start}} to {{.End}}) was cancelled and your assignment is void.</p>{{if .Note}}<p>Reason: {{.Note}}</p>{{end}}`),
	TemplateAssignmentCreated: mustParse(
		`New assignment: {{.Title}}`,
		`<p>You were assigned as {{.Role}} referee for <strong>{{.Title}}</strong> at {{.Venue}} ({{.Start}} to {{.End}}). Please confirm or decline.</p>`),
	TemplateAssignmentCancelled: mustParse(
		`Assignment cancelled: {{.Title}}`,
		`<p>Your assignment for <strong>{{.Title}}</strong> was cancelled.</p>`),
	TemplateHonorDecided: mustParse(
		`Honor claim {{.Decision}}: {{.Title}}`,
		`<p>Your honor claim of {{.Amount}} for <strong>{{.Title}}</strong> was {{.Decision}}.</p>{{if .Note}}<p>Reason: {{.Note}}</p>{{end}}`),
	TemplateHonorPaid: mustParse(
		`Honor paid: {{.Title}}`,
		`<p>Your honor of {{.Amount}} for <strong>{{.Title}}</strong> has been paid.</p>`),
}

func mustParse(subject, body string) mailTemplate {
	b := template.Must(template.New("layout").Parse(layout))
	template.Must(b.New("content").Parse(body))
	return mailTemplate{
		subject: texttemplate.Must(texttemplate.New("subject").Parse(subject)),
		body:    b,
	}
}

// Data carries the fields a template may reference. Unused fields stay empty.
type Data struct {
	Name      string
	Email     string
	Role      string
	Decision  string
	Note      string
	Title     string
	Venue     string
	Start     string
	End       string
	Submitter string
	Amount    string
}

// Render produces the plain-text subject line and HTML body for a named template.
func Render(name string, data Data) (subject, html string, err error) {
	t, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	var sb, hb bytes.Buffer
	if err := t.subject.Execute(&sb, data); err != nil {
		return "", "", err
	}
	if err := t.body.Execute(&hb, data); err != nil {
		return "", "", err
	}
	return sb.String(), hb.String(), nil
}
