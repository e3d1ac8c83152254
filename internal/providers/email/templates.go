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

// Render executes the named template and resolves the message subject.
func Render(templateName string, data map[string]any) (subject string, body string, err error) {
	t := templates.Lookup(templateName + ".html")
	if t == nil {
		return "", "", fmt.Errorf("unknown email template %q", templateName)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template: %w", err)
	}

	return subjectFor(templateName, data), buf.String(), nil
}

func subjectFor(templateName string, data map[string]any) string {
	if subj, ok := data["subject"].(string); ok && subj != "" {
		return subj
	}

	switch templateName {
	case TemplatePartnerInvitation:
		if name, ok := data["resource_name"].(string); ok && name != "" {
			return fmt.Sprintf("You're invited to request items for %s", name)
		}
		return "You're invited to the partner portal"
	case TemplateAccessGranted:
		return "You've been granted access to a partner"
	case TemplateResetPassword:
		return "Reset password instructions"
	case TemplateNewRequest:
		if partner, ok := data["partner_name"].(string); ok && partner != "" {
			return fmt.Sprintf("New request from %s", partner)
		}
		return "New partner request"
	}
	return "Notification from Partnerdesk"
}
