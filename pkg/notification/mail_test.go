package notification

import (
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capturedMail(m *MailNotification) *struct {
	to   []string
	body string
} {
	captured := &struct {
		to   []string
		body string
	}{}
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		captured.to = to
		captured.body = string(msg)
		return nil
	}
	return captured
}

func TestSendGeofenceAlertMail(t *testing.T) {
	m := NewMailNotification(MailConfig{Host: "smtp.example.com", Port: 587, From: "noreply@carehive.io"})
	captured := capturedMail(m)

	err := m.SendGeofenceAlert("carer@example.com", "Alice", 150, 100, 39.9, 116.4)
	require.NoError(t, err)

	assert.Equal(t, []string{"carer@example.com"}, captured.to)
	assert.Contains(t, captured.body, "Alice left the safe zone")
	assert.Contains(t, captured.body, "150 m from home")
	assert.Contains(t, captured.body, "39.900000, 116.400000")
}

func TestSendGeofenceAlertRequiresHost(t *testing.T) {
	m := NewMailNotification(MailConfig{})
	err := m.SendGeofenceAlert("carer@example.com", "Alice", 150, 100, 0, 0)
	assert.Error(t, err)
}

func TestSendAlertDigest(t *testing.T) {
	m := NewMailNotification(MailConfig{Host: "smtp.example.com", Port: 587, From: "noreply@carehive.io"})
	captured := capturedMail(m)

	when := time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC)
	err := m.SendAlertDigest("carer@example.com", []DigestItem{
		{PatientName: "Alice", Distance: 150, When: when},
		{PatientName: "Alice", Distance: 180, When: when.Add(time.Hour)},
	})
	require.NoError(t, err)

	assert.Contains(t, captured.body, "alerts in the last 24 hours: 2")
	assert.Equal(t, 2, strings.Count(captured.body, "Alice"))
}

func TestSendAlertDigestEmptyIsNoop(t *testing.T) {
	m := NewMailNotification(MailConfig{Host: "smtp.example.com"})
	called := false
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		called = true
		return nil
	}
	require.NoError(t, m.SendAlertDigest("carer@example.com", nil))
	assert.False(t, called)
}
