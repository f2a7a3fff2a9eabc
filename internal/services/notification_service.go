// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fabhub/fabhub-backend/internal/config"
	"github.com/fabhub/fabhub-backend/internal/models"
)

type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
	}
}

func (s *NotificationService) SendWelcomeEmail(user *models.User, verificationToken string) error {
	tmpl := s.getEmailTemplate("welcome")

	data := map[string]interface{}{
		"Username":        user.Username,
		"VerificationURL": fmt.Sprintf("%s/verify-email?token=%s", s.config.Frontend.BaseURL, verificationToken),
	}

	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, tmpl.Subject, body)
}

func (s *NotificationService) SendPasswordResetEmail(user *models.User, resetToken string) error {
	tmpl := s.getEmailTemplate("password_reset")

	data := map[string]interface{}{
		"Username":  user.Username,
		"ResetURL":  fmt.Sprintf("%s/reset-password?token=%s", s.config.Frontend.BaseURL, resetToken),
		"ExpiresIn": "1 hour",
	}

	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, tmpl.Subject, body)
}

// Purchase notifications
func (s *NotificationService) NotifyPurchaseFulfilled(purchase *models.Purchase) {
	s.createInApp(purchase.BuyerID, "purchase_fulfilled", "Purchase complete",
		fmt.Sprintf("Your purchase of \"%s\" is ready to download.", purchase.Item.Title),
		"purchase", purchase.ID)
	s.createInApp(purchase.SellerID, "item_sold", "Item sold",
		fmt.Sprintf("\"%s\" was purchased by %s.", purchase.Item.Title, purchase.Buyer.Username),
		"purchase", purchase.ID)

	data := map[string]interface{}{
		"BuyerName":  purchase.Buyer.Username,
		"ItemTitle":  purchase.Item.Title,
		"LicenseKey": purchase.LicenseKey,
		"OrderURL":   fmt.Sprintf("%s/orders/%s", s.config.Frontend.BaseURL, purchase.ID),
	}

	tmpl := s.getEmailTemplate("purchase_fulfilled")
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		logrus.WithError(err).Error("Failed to render purchase email")
		return
	}

	if err := s.sendEmail(purchase.Buyer.Email, tmpl.Subject, body); err != nil {
		logrus.WithError(err).Error("Failed to send purchase email")
	}
}

func (s *NotificationService) NotifyEscrowHeld(purchase *models.Purchase, escrow *models.EscrowTransaction) {
	s.createInApp(purchase.BuyerID, "escrow_held", "Funds held in escrow",
		fmt.Sprintf("Payment for \"%s\" is held in escrow until %s or your approval.",
			purchase.Item.Title, escrow.ReleaseDate.Format("Jan 2, 2006")),
		"escrow", escrow.ID)
	s.createInApp(purchase.SellerID, "escrow_held", "Sale in escrow",
		fmt.Sprintf("Payment for \"%s\" will be released after buyer approval or on %s.",
			purchase.Item.Title, escrow.ReleaseDate.Format("Jan 2, 2006")),
		"escrow", escrow.ID)
}

func (s *NotificationService) NotifyEscrowReleased(escrow *models.EscrowTransaction) {
	s.createInApp(escrow.Purchase.SellerID, "escrow_released", "Escrow released",
		fmt.Sprintf("Escrowed funds for \"%s\" have been released to you.", escrow.Purchase.Item.Title),
		"escrow", escrow.ID)
}

func (s *NotificationService) NotifyEscrowDisputed(escrow *models.EscrowTransaction) {
	s.createInApp(escrow.Purchase.SellerID, "escrow_disputed", "Escrow disputed",
		fmt.Sprintf("The buyer disputed the escrowed purchase of \"%s\".", escrow.Purchase.Item.Title),
		"escrow", escrow.ID)
}

func (s *NotificationService) NotifyReviewPosted(review *models.Review) {
	s.createInApp(review.Item.SellerID, "review_posted", "New review",
		fmt.Sprintf("%s left a %d-star review on \"%s\".", review.Reviewer.Username, review.Rating, review.Item.Title),
		"review", review.ID)
}

func (s *NotificationService) createInApp(userID uuid.UUID, notifType, title, message, resourceType string, resourceID uuid.UUID) {
	notification := &models.Notification{
		UserID:              userID,
		Type:                notifType,
		Title:               title,
		Message:             message,
		RelatedResourceType: resourceType,
		RelatedResourceID:   &resourceID,
	}

	if err := s.db.Create(notification).Error; err != nil {
		logrus.WithError(err).Error("Failed to create notification")
	}
}

func (s *NotificationService) ListForUser(userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	query := s.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(100)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationService) MarkRead(userID, notificationID uuid.UUID) error {
	return s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read_at", time.Now()).Error
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("Email delivery skipped (SMTP not configured)")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"welcome": {
			Subject: "Welcome to FabHub",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Welcome {{.Username}}!</h2>
	<p>Thank you for joining FabHub. Please verify your email address by clicking the link below:</p>
	<a href="{{.VerificationURL}}">Verify Email</a>
	<p>Best regards,<br>The FabHub Team</p>
</body>
</html>`,
		},
		"password_reset": {
			Subject: "Password Reset Request",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Username}},</h2>
	<p>We received a request to reset your password. The link below expires in {{.ExpiresIn}}:</p>
	<a href="{{.ResetURL}}">Reset Password</a>
	<p>If you did not request this, you can ignore this email.</p>
</body>
</html>`,
		},
		"purchase_fulfilled": {
			Subject: "Your FabHub purchase is ready",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.BuyerName}},</h2>
	<p>Your purchase of "{{.ItemTitle}}" is complete. Your license key:</p>
	<pre>{{.LicenseKey}}</pre>
	<a href="{{.OrderURL}}">Download your files</a>
	<p>Best regards,<br>The FabHub Team</p>
</body>
</html>`,
		},
	}

	if tmpl, exists := templates[templateType]; exists {
		return tmpl
	}

	// Default template
	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
