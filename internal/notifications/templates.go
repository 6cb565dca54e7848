package notifications

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// Template names one rendered email per recipient role and event.
type Template string

const (
	TemplateBookingReceivedOwner Template = "booking_received_owner"
	TemplateBookingReceivedStaff Template = "booking_received_staff"
	TemplateConfirmedVet         Template = "confirmed_vet"
	TemplateConfirmedOwner       Template = "confirmed_owner"
	TemplateCancelledOwner       Template = "cancelled_owner"
	TemplateCancelledStaff       Template = "cancelled_staff"
	TemplateRejectedOwner        Template = "rejected_owner"
	TemplateReminderOwner        Template = "reminder_owner"
)

// templateData is the view model every template renders against.
type templateData struct {
	ClinicName    string
	RecipientName string
	OwnerName     string
	OwnerEmail    string
	PetName       string
	VetName       string
	Purpose       string
	Remarks       string
	Date          string
	Status        string
	AppointmentID string
	Link          string
}

type emailTemplate struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

type rendered struct {
	Subject string
	HTML    string
	Text    string
}

const htmlLayoutHead = `<!DOCTYPE html><html><body style="font-family:sans-serif;color:#222">`
const htmlLayoutFoot = `<p style="color:#777;font-size:12px">{{.ClinicName}}</p></body></html>`

var templateSources = map[Template][3]string{
	TemplateBookingReceivedOwner: {
		`{{if eq .Status "confirmed"}}Your appointment for {{.PetName}} is booked and confirmed{{else}}We received your booking for {{.PetName}}{{end}}`,
		`<p>Hi {{.RecipientName}},</p>
{{if eq .Status "confirmed"}}<p>The clinic booked an appointment for <strong>{{.PetName}}</strong> on {{.Date}}. It is already confirmed.</p>{{else}}<p>Your appointment request for <strong>{{.PetName}}</strong> on {{.Date}} has been received and is waiting for confirmation.</p>{{end}}
<p>Purpose: {{.Purpose}}</p>
<p><a href="{{.Link}}">View appointment</a></p>`,
		`Hi {{.RecipientName}},

{{if eq .Status "confirmed"}}The clinic booked an appointment for {{.PetName}} on {{.Date}}. It is already confirmed.{{else}}Your appointment request for {{.PetName}} on {{.Date}} has been received and is waiting for confirmation.{{end}}
Purpose: {{.Purpose}}

View appointment: {{.Link}}`,
	},
	TemplateBookingReceivedStaff: {
		`New booking: {{.PetName}} on {{.Date}}`,
		`<p>Hi {{.RecipientName}},</p>
<p>{{.OwnerName}} ({{.OwnerEmail}}) booked an appointment for <strong>{{.PetName}}</strong> on {{.Date}}.</p>
<p>Purpose: {{.Purpose}}</p>{{if .Remarks}}
<p>Remarks: {{.Remarks}}</p>{{end}}
<p><a href="{{.Link}}">Review booking</a></p>`,
		`Hi {{.RecipientName}},

{{.OwnerName}} ({{.OwnerEmail}}) booked an appointment for {{.PetName}} on {{.Date}}.
Purpose: {{.Purpose}}{{if .Remarks}}
Remarks: {{.Remarks}}{{end}}

Review booking: {{.Link}}`,
	},
	TemplateConfirmedVet: {
		`Appointment assigned: {{.PetName}} on {{.Date}}`,
		`<p>Hi {{.RecipientName}},</p>
<p>You have been assigned the appointment for <strong>{{.PetName}}</strong> (owner {{.OwnerName}}) on {{.Date}}.</p>
<p>Purpose: {{.Purpose}}</p>
<p><a href="{{.Link}}">Open appointment</a></p>`,
		`Hi {{.RecipientName}},

You have been assigned the appointment for {{.PetName}} (owner {{.OwnerName}}) on {{.Date}}.
Purpose: {{.Purpose}}

Open appointment: {{.Link}}`,
	},
	TemplateConfirmedOwner: {
		`Your appointment for {{.PetName}} is confirmed`,
		`<p>Hi {{.RecipientName}},</p>
<p>Your appointment for <strong>{{.PetName}}</strong> on {{.Date}} is confirmed.{{if .VetName}} {{.VetName}} will see you.{{end}}</p>
<p><a href="{{.Link}}">View appointment</a></p>`,
		`Hi {{.RecipientName}},

Your appointment for {{.PetName}} on {{.Date}} is confirmed.{{if .VetName}} {{.VetName}} will see you.{{end}}

View appointment: {{.Link}}`,
	},
	TemplateCancelledOwner: {
		`Your appointment for {{.PetName}} was cancelled`,
		`<p>Hi {{.RecipientName}},</p>
<p>The appointment for <strong>{{.PetName}}</strong> on {{.Date}} has been cancelled.</p>
<p>You can book a new date at any time.</p>`,
		`Hi {{.RecipientName}},

The appointment for {{.PetName}} on {{.Date}} has been cancelled.
You can book a new date at any time.`,
	},
	TemplateCancelledStaff: {
		`Cancelled: {{.PetName}} on {{.Date}}`,
		`<p>Hi {{.RecipientName}},</p>
<p>The appointment for <strong>{{.PetName}}</strong> (owner {{.OwnerName}}) on {{.Date}} was cancelled.</p>`,
		`Hi {{.RecipientName}},

The appointment for {{.PetName}} (owner {{.OwnerName}}) on {{.Date}} was cancelled.`,
	},
	TemplateRejectedOwner: {
		`We could not accept your booking for {{.PetName}}`,
		`<p>Hi {{.RecipientName}},</p>
<p>Unfortunately the requested appointment for <strong>{{.PetName}}</strong> on {{.Date}} could not be accepted.</p>
<p>Please pick another date or contact the clinic.</p>`,
		`Hi {{.RecipientName}},

Unfortunately the requested appointment for {{.PetName}} on {{.Date}} could not be accepted.
Please pick another date or contact the clinic.`,
	},
	TemplateReminderOwner: {
		`Reminder: {{.PetName}} has an appointment on {{.Date}}`,
		`<p>Hi {{.RecipientName}},</p>
<p>This is a reminder that <strong>{{.PetName}}</strong> has an appointment on {{.Date}}.{{if .VetName}} {{.VetName}} will see you.{{end}}</p>
<p>Purpose: {{.Purpose}}</p>
<p><a href="{{.Link}}">View appointment</a></p>`,
		`Hi {{.RecipientName}},

This is a reminder that {{.PetName}} has an appointment on {{.Date}}.{{if .VetName}} {{.VetName}} will see you.{{end}}
Purpose: {{.Purpose}}

View appointment: {{.Link}}`,
	},
}

// parseTemplates compiles every template once. A parse failure is a
// programming error.
func parseTemplates() map[Template]emailTemplate {
	out := make(map[Template]emailTemplate, len(templateSources))
	for name, src := range templateSources {
		out[name] = emailTemplate{
			subject: texttemplate.Must(texttemplate.New(string(name) + ".subject").Parse(src[0])),
			html:    htmltemplate.Must(htmltemplate.New(string(name) + ".html").Parse(htmlLayoutHead + src[1] + htmlLayoutFoot)),
			text:    texttemplate.Must(texttemplate.New(string(name) + ".text").Parse(src[2] + "\n\n-- \n{{.ClinicName}}\n")),
		}
	}
	return out
}

func (t emailTemplate) render(data templateData) (rendered, error) {
	var subject, html, text bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return rendered{}, fmt.Errorf("render subject: %w", err)
	}
	if err := t.html.Execute(&html, data); err != nil {
		return rendered{}, fmt.Errorf("render html: %w", err)
	}
	if err := t.text.Execute(&text, data); err != nil {
		return rendered{}, fmt.Errorf("render text: %w", err)
	}
	return rendered{
		Subject: strings.TrimSpace(subject.String()),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
