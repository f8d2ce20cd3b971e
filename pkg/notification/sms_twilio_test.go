package notification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwilioSendGeofenceAlert(t *testing.T) {
	var gotPath, gotTo, gotBody string
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotTo = r.PostFormValue("To")
		gotBody = r.PostFormValue("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sms := NewTwilioSMS(TwilioSMSConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "+10000000000",
		Endpoint:   srv.URL,
	}, nil)

	err := sms.SendGeofenceAlert(context.Background(), "+10000000001", GeofenceSMS{
		PatientName: "Alice",
		Distance:    150,
		SafeRadius:  100,
		Latitude:    39.9,
		Longitude:   116.4,
	})
	require.NoError(t, err)

	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "AC123", gotUser)
	assert.Equal(t, "secret", gotPass)
	assert.Equal(t, "+10000000001", gotTo)
	assert.Contains(t, gotBody, "Alice is 150m from home")
	assert.Contains(t, gotBody, "maps.google.com")
}

func TestTwilioRejectsEmptyRecipient(t *testing.T) {
	sms := NewTwilioSMS(TwilioSMSConfig{}, nil)
	err := sms.SendGeofenceAlert(context.Background(), "", GeofenceSMS{})
	assert.Error(t, err)
}

func TestTwilioSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sms := NewTwilioSMS(TwilioSMSConfig{AccountSID: "AC123", Endpoint: srv.URL}, nil)
	err := sms.SendGeofenceAlert(context.Background(), "+10000000001", GeofenceSMS{PatientName: "Alice"})
	assert.Error(t, err)
}
