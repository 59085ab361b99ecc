// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/greenproof/greenproof-backend/internal/config"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/repository"
)

// MailSender delivers one email. The default implementation uses SMTP.
type MailSender func(to, subject, htmlBody string) error

type NotificationService struct {
	store    repository.Store
	config   *config.Config
	now      repository.Clock
	sendMail MailSender
}

var credentialEmailTemplate = template.Must(template.New("credential").Parse(`
<!DOCTYPE html>
<html>
<body>
	<h2>{{.Title}}</h2>
	<p>Hello {{.Name}},</p>
	<p>{{.Message}}</p>
	<a href="{{.URL}}">View credential</a>
	<p>Best regards,<br>GreenProof Team</p>
</body>
</html>`))

var accountEmailTemplate = template.Must(template.New("account").Parse(`
<!DOCTYPE html>
<html>
<body>
	<h2>{{.Title}}</h2>
	<p>Hello {{.Name}},</p>
	<p>{{.Message}}</p>
	<p>Best regards,<br>GreenProof Team</p>
</body>
</html>`))

func NewNotificationService(store repository.Store, cfg *config.Config, clock repository.Clock) *NotificationService {
	s := &NotificationService{
		store:  store,
		config: cfg,
		now:    clock,
	}
	s.sendMail = s.sendSMTP
	return s
}

// WithMailSender replaces the SMTP transport.
func (s *NotificationService) WithMailSender(sender MailSender) *NotificationService {
	s.sendMail = sender
	return s
}

// CredentialEvent tells the issuer and the holder that a credential changed
// state. Delivery problems are logged and never returned: a notice that
// could not be written must not undo the transition that caused it.
func (s *NotificationService) CredentialEvent(ctx context.Context, c *models.Credential, action models.AuditAction, reason string) {
	notificationType, title, message := credentialNotice(c, action, reason)
	if notificationType == "" {
		return
	}

	recipients := []uuid.UUID{c.HolderID}
	if c.IssuerID != c.HolderID {
		recipients = append(recipients, c.IssuerID)
	}

	users, err := s.store.Users().GetByIDs(ctx, recipients)
	if err != nil {
		logrus.WithError(err).WithField("credential_id", c.ID).Warn("Failed to load notification recipients")
		users = map[uuid.UUID]models.User{}
	}

	credentialID := c.ID
	for _, userID := range recipients {
		s.create(ctx, &models.Notification{
			UserID:              userID,
			Type:                notificationType,
			Title:               title,
			Message:             message,
			RelatedResourceType: "credential",
			RelatedResourceID:   &credentialID,
		})

		user, ok := users[userID]
		if !ok || !user.Preferences.Notifications.Email {
			continue
		}
		s.email(user, title, credentialEmailTemplate, map[string]interface{}{
			"Title":   title,
			"Name":    user.Name,
			"Message": message,
			"URL":     fmt.Sprintf("%s/credential/%s", s.config.Frontend.BaseURL, c.ID),
		})
	}
}

// AccountVerified tells a user that an administrator verified the account.
func (s *NotificationService) AccountVerified(ctx context.Context, user *models.User) {
	title := "Account verified"
	message := "Your GreenProof account has been verified by an administrator."
	userID := user.ID

	s.create(ctx, &models.Notification{
		UserID:              user.ID,
		Type:                models.NotificationAccountVerified,
		Title:               title,
		Message:             message,
		RelatedResourceType: "user",
		RelatedResourceID:   &userID,
	})

	if user.Preferences.Notifications.Email {
		s.email(*user, title, accountEmailTemplate, map[string]interface{}{
			"Title":   title,
			"Name":    user.Name,
			"Message": message,
		})
	}
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, params PageRequest) ([]models.Notification, int64, error) {
	return s.store.Notifications().ListForUser(ctx, userID, unreadOnly, pageOf(params.Page, params.Limit))
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.store.Notifications().MarkRead(ctx, id, userID, s.now())
}

func (s *NotificationService) create(ctx context.Context, n *models.Notification) {
	if err := s.store.Notifications().Create(ctx, n); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": n.UserID,
			"type":    n.Type,
		}).Warn("Failed to create notification")
	}
}

func (s *NotificationService) email(user models.User, subject string, tmpl *template.Template, data interface{}) {
	if !s.config.Email.Enabled() {
		logrus.WithFields(logrus.Fields{
			"to":      user.Email,
			"subject": subject,
		}).Debug("Email not configured, skipping delivery")
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		logrus.WithError(err).Warn("Failed to render email template")
		return
	}

	if err := s.sendMail(user.Email, subject, buf.String()); err != nil {
		logrus.WithError(err).WithField("to", user.Email).Warn("Failed to send email")
	}
}

func (s *NotificationService) sendSMTP(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	from := s.config.Email.FromEmail
	if s.config.Email.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.Email.FromName, s.config.Email.FromEmail)
	}
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", from, to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func credentialNotice(c *models.Credential, action models.AuditAction, reason string) (models.NotificationType, string, string) {
	switch action {
	case models.AuditSubmitted:
		return models.NotificationCredentialSubmitted, "Credential submitted",
			fmt.Sprintf("Credential %q was submitted for verification.", c.Name)
	case models.AuditVerified:
		return models.NotificationCredentialVerified, "Credential verified",
			fmt.Sprintf("Credential %q has been verified.", c.Name)
	case models.AuditRejected:
		return models.NotificationCredentialRejected, "Credential rejected",
			fmt.Sprintf("Credential %q was rejected: %s", c.Name, reason)
	case models.AuditRevoked:
		return models.NotificationCredentialRevoked, "Credential revoked",
			fmt.Sprintf("Credential %q was revoked: %s", c.Name, reason)
	case models.AuditExpired:
		return models.NotificationCredentialExpired, "Credential expired",
			fmt.Sprintf("Credential %q has expired.", c.Name)
	}
	return "", "", ""
}
