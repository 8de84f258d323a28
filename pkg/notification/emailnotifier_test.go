package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmailNotifier(t *testing.T) {
	notifier, err := NewEmailNotifier(SMTPConfig{
		Host: "localhost",
		Port: 1025,
		From: "noreply@cyberguard.local",
	})
	require.NoError(t, err)
	require.NotNil(t, notifier.client)
}

func TestDialTimeoutIsADuration(t *testing.T) {
	// A bare integer here would be interpreted as nanoseconds and make
	// every SMTP dial fail immediately.
	assert.GreaterOrEqual(t, dialTimeout, time.Second)
}

func TestSend_RequiresRecipient(t *testing.T) {
	notifier, err := NewEmailNotifier(SMTPConfig{
		Host: "localhost",
		Port: 1025,
		From: "noreply@cyberguard.local",
	})
	require.NoError(t, err)

	err = notifier.Send(NewLocationCodeNotice, NotificationData{}, NoticeTemplate{Subject: "code"})
	assert.Error(t, err)
}

func TestRenderTemplates(t *testing.T) {
	data := map[string]string{"Code": "A1B2C3", "ExpiresIn": "15 minutes"}

	text, err := renderText("text", "Your code is {{.Code}}, valid for {{.ExpiresIn}}.", data)
	require.NoError(t, err)
	assert.Equal(t, "Your code is A1B2C3, valid for 15 minutes.", text)

	html, err := renderHTML("html", "<p>Code: <b>{{.Code}}</b></p>", data)
	require.NoError(t, err)
	assert.Equal(t, "<p>Code: <b>A1B2C3</b></p>", html)

	empty, err := renderText("text", "", data)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
