package notification

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type TwilioSMSConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	Endpoint   string // 默认 api.twilio.com
}

// TwilioSMSClient 便于替换/注入的发送接口（适配真实 SDK）
type TwilioSMSClient interface {
	Send(ctx context.Context, from, to, body string) error
}

type TwilioSMS struct {
	cfg TwilioSMSConfig
	cli TwilioSMSClient
}

func NewTwilioSMS(cfg TwilioSMSConfig, cli TwilioSMSClient) *TwilioSMS {
	if cli == nil {
		cli = &twilioRESTClient{cfg: cfg, http: http.DefaultClient}
	}
	return &TwilioSMS{cfg: cfg, cli: cli}
}

// GeofenceSMS carries the fields rendered into the alert text.
type GeofenceSMS struct {
	PatientName string
	Distance    float64
	SafeRadius  float64
	Latitude    float64
	Longitude   float64
}

func (t *TwilioSMS) SendGeofenceAlert(ctx context.Context, to string, a GeofenceSMS) error {
	if to == "" {
		return fmt.Errorf("no recipient phone number")
	}
	body := fmt.Sprintf("CareHive alert: %s is %.0fm from home (safe radius %.0fm). Map: https://maps.google.com/?q=%.6f,%.6f",
		a.PatientName, a.Distance, a.SafeRadius, a.Latitude, a.Longitude)
	return t.cli.Send(ctx, t.cfg.From, to, body)
}

// twilioRESTClient posts to the Messages endpoint directly.
type twilioRESTClient struct {
	cfg  TwilioSMSConfig
	http *http.Client
}

func (c *twilioRESTClient) Send(ctx context.Context, from, to, body string) error {
	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.twilio.com"
	}
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", endpoint, c.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("twilio: unexpected status %d", resp.StatusCode)
	}
	return nil
}
