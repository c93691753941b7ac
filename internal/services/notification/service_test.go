package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	subject, body, err := Render(kindEmailVerification, map[string]interface{}{"Code": "135790", "ExpiryMinutes": 10})
	require.NoError(t, err)
	assert.Equal(t, "Verify Your Email - BankLens", subject)
	assert.Contains(t, body, "135790")
	assert.Contains(t, body, "expire in 10 minutes")

	subject, body, err = Render(kindWelcome, map[string]interface{}{"FirstName": "<b>Ada</b>"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome to BankLens!", subject)
	assert.Contains(t, body, "&lt;b&gt;Ada&lt;/b&gt;")

	_, _, err = Render("nope", nil)
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	var m Mailer = LogMailer{}
	assert.NoError(t, m.SendOTP(context.Background(), "a@b.com", "123456", kindPasswordReset))
	assert.NoError(t, m.SendWelcome(context.Background(), "a@b.com", ""))
}
