package utils

import (
	"fmt"
	"net/smtp"
	"os"
	"time"
)

// SendEmail šalje email na zadatu adresu sa naslovom i sadržajem koristeći net/smtp biblioteku
func SendEmail(to, subject, body string) error {
	from := os.Getenv("EMAIL_FROM")
	password := os.Getenv("EMAIL_PASSWORD")

	// SMTP server konfiguracija
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	if smtpHost == "" {
		smtpHost = "smtp.gmail.com"
	}
	if smtpPort == "" {
		smtpPort = "587"
	}

	// Provera da li je postavljena lozinka
	if password == "" {
		return fmt.Errorf("EMAIL_PASSWORD nije postavljena")
	}

	// Priprema sadržaja poruke
	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n" +
		body + "\r\n")

	// Autentifikacija sa SMTP serverom
	auth := smtp.PlainAuth("", from, password, smtpHost)

	// Slanje emaila
	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, from, []string{to}, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}

	return nil
}

// SendReminderEmail šalje podsetnik vlasniku da se rok taska bliži.
func SendReminderEmail(to, taskTitle string, dueDate time.Time) error {
	subject := "Task due soon: " + taskTitle
	body := fmt.Sprintf("Your task <b>%s</b> is due on %s. Don't fall behind schedule!",
		taskTitle, dueDate.Format("02 Jan 2006 15:04"))
	return SendEmail(to, subject, body)
}

// SendVerificationEmail šalje verifikacioni kod novom korisniku.
func SendVerificationEmail(to, code string) error {
	subject := "Your Verification Code"
	body := fmt.Sprintf("Your verification code is <b>%s</b>. Please enter it within 24 hours.", code)
	return SendEmail(to, subject, body)
}

// SendPasswordResetEmail šalje link za resetovanje lozinke.
func SendPasswordResetEmail(to, token string) error {
	frontendURL := os.Getenv("FRONTEND_URL")
	subject := "Password Reset"
	body := fmt.Sprintf("Click <a href=\"%s/reset-password?token=%s\">here</a> to reset your password.", frontendURL, token)
	return SendEmail(to, subject, body)
}
