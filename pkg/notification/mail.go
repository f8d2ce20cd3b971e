package notification

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

type MailConfig struct {
	Host     string
	Username string
	Password string
	Port     int64
	From     string
}

type MailNotification struct {
	cfg MailConfig
	// send is swappable in tests; defaults to smtp.SendMail
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailNotification(cfg MailConfig) *MailNotification {
	return &MailNotification{cfg: cfg, send: smtp.SendMail}
}

func (m *MailNotification) deliver(to, subject, body string) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("mail host not configured")
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")
	return m.send(addr, auth, m.cfg.From, []string{to}, []byte(msg))
}

// SendGeofenceAlert mails a caregiver that the patient left the safe zone.
func (m *MailNotification) SendGeofenceAlert(to, patientName string, distance, safeRadius float64, lat, lng float64) error {
	subject := fmt.Sprintf("Safety alert: %s left the safe zone", patientName)
	body := fmt.Sprintf(
		"%s is %.0f m from home (safe radius %.0f m).\n\nLast known position: %.6f, %.6f\nTime: %s\n\nOpen the CareHive app to see the live location.",
		patientName, distance, safeRadius, lat, lng, time.Now().Format(time.RFC1123),
	)
	return m.deliver(to, subject, body)
}

// DigestItem is one alert line in the nightly digest mail.
type DigestItem struct {
	PatientName string
	Distance    float64
	When        time.Time
}

// SendAlertDigest mails a summary of the previous day's geofence alerts.
func (m *MailNotification) SendAlertDigest(to string, items []DigestItem) error {
	if len(items) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Geofence alerts in the last 24 hours: %d\n\n", len(items))
	for _, it := range items {
		fmt.Fprintf(&b, "- %s  %s was %.0f m outside the safe zone\n",
			it.When.Format("15:04"), it.PatientName, it.Distance)
	}
	return m.deliver(to, "CareHive daily alert digest", b.String())
}
