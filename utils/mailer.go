package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"

	"portraitly/config"
)

type EmailData struct {
	Subject   string
	To        []string
	Template  string
	Data      interface{}
	Year      int
	FromName  string
	FromEmail string
}

// Embedded email templates
var emailTemplates = map[string]string{
	"team_invite": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .button { display: inline-block; padding: 10px 20px; background-color: #3498db; color: white; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>You're invited to join {{.TeamName}}</h2>
    </div>

    <div class="content">
        <p>Hello,</p>
        <p>{{.InviterName}} invited you to join the team <strong>{{.TeamName}}</strong> on Portraitly. Team members share a credit pool and the team's headshot styles.</p>

        <p style="text-align: center;">
            <a href="{{.InviteLink}}" class="button">Accept Invitation</a>
        </p>

        <p>Or copy and paste this link into your browser:<br>
        <small>{{.InviteLink}}</small></p>

        <p>This invitation expires in 7 days.</p>
    </div>

    <div class="footer">
        <p>If you weren't expecting this invitation, you can safely ignore this email.</p>
        <p>© {{.Year}} Portraitly. All rights reserved.</p>
    </div>
</body>
</html>`,

	"generation_complete": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .button { display: inline-block; padding: 10px 20px; background-color: #3498db; color: white; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Your headshots are ready</h2>
    </div>

    <div class="content">
        <p>Hello,</p>
        <p>Your headshot generation has finished. Head over to your gallery to review and download the results.</p>

        <p style="text-align: center;">
            <a href="{{.GalleryLink}}" class="button">View Headshots</a>
        </p>
    </div>

    <div class="footer">
        <p>© {{.Year}} Portraitly. All rights reserved.</p>
    </div>
</body>
</html>`,
}

// SendEmail renders one of the embedded templates and delivers it over SMTP
func SendEmail(data EmailData) error {
	tmplText, ok := emailTemplates[data.Template]
	if !ok {
		return fmt.Errorf("unknown email template: %s", data.Template)
	}

	tmpl, err := template.New(data.Template).Parse(tmplText)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	// Merge common fields into the template payload
	payload := map[string]interface{}{
		"Subject": data.Subject,
		"Year":    time.Now().Year(),
	}
	if extra, ok := data.Data.(map[string]interface{}); ok {
		for k, v := range extra {
			payload[k] = v
		}
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, payload); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	fromEmail := data.FromEmail
	if fromEmail == "" {
		fromEmail = config.AppConfig.FromEmail
	}

	m := gomail.NewMessage()
	m.SetHeader("From", fromEmail)
	m.SetHeader("To", data.To...)
	m.SetHeader("Subject", data.Subject)
	m.SetBody("text/html", body.String())

	port, err := strconv.Atoi(config.AppConfig.SMTPPort)
	if err != nil {
		port = 587
	}

	d := gomail.NewDialer(
		config.AppConfig.SMTPHost,
		port,
		config.AppConfig.SMTPUsername,
		config.AppConfig.SMTPPassword,
	)

	return d.DialAndSend(m)
}

// SendGenerationCompleteEmail tells the user their results are ready
func SendGenerationCompleteEmail(to string, generationID uint) error {
	galleryLink := fmt.Sprintf("%s/generations/%d", config.AppConfig.AppBaseURL, generationID)
	return SendEmail(EmailData{
		Subject:  "Your headshots are ready",
		To:       []string{to},
		Template: "generation_complete",
		Data: map[string]interface{}{
			"GalleryLink": galleryLink,
		},
	})
}

// SendTeamInviteEmail delivers a team invitation with its accept link
func SendTeamInviteEmail(to, teamName, inviterName, token string) error {
	inviteLink := fmt.Sprintf("%s/invites/accept?token=%s", config.AppConfig.AppBaseURL, token)
	return SendEmail(EmailData{
		Subject:  fmt.Sprintf("Join %s on Portraitly", teamName),
		To:       []string{to},
		Template: "team_invite",
		Data: map[string]interface{}{
			"TeamName":    teamName,
			"InviterName": inviterName,
			"InviteLink":  inviteLink,
		},
	})
}
