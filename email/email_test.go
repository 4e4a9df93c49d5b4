package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendVerificationEmail_NotConfigured(t *testing.T) {
	service := &EmailService{}

	err := service.SendVerificationEmail("to@example.com", "token123")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
