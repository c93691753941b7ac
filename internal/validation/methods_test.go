package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasscode(t *testing.T) {
	tests := []struct {
		name     string
		passcode string
		wantErr  string
	}{
		{"valid", "135790", ""},
		{"too short", "1357", "Passcode must be exactly 6 digits"},
		{"letters", "13579a", "Passcode must contain only numbers"},
		{"all same digit", "111111", "Passcode cannot be all the same digit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Passcode("passcode", tt.passcode)
			if tt.wantErr == "" {
				assert.True(t, v.Valid())
				return
			}
			assert.Equal(t, tt.wantErr, v.Errors["passcode"])
		})
	}
}

func TestEmail(t *testing.T) {
	v := New()
	v.Email("email", "a@b.com")
	assert.True(t, v.Valid())

	v.Email("email", "not-an-email")
	assert.False(t, v.Valid())
}

func TestProfileFields(t *testing.T) {
	v := New()
	v.Name("firstName", "First name", "Ada")
	v.Phone("phone", "+2348012345678")
	dob := v.Date("dateOfBirth", "1990-04-12")
	assert.True(t, v.Valid())
	assert.NotNil(t, dob)

	v = New()
	v.Name("lastName", "Last name", "O'Brien")
	v.Phone("phone", "0801")
	v.Date("dateOfBirth", "12/04/1990")
	assert.Equal(t, []FieldError{
		{Field: "dateOfBirth", Message: "Please enter a valid date of birth"},
		{Field: "lastName", Message: "Last name can only contain letters and spaces"},
		{Field: "phone", Message: "Please enter a valid phone number"},
	}, v.Details())
}

func TestOneOfAndCurrency(t *testing.T) {
	v := New()
	v.OneOf("theme", "dark", "Theme must be light, dark, or auto", "light", "dark", "auto")
	v.Currency("currency", "NGN")
	assert.True(t, v.Valid())

	v.OneOf("theme", "blue", "Theme must be light, dark, or auto", "light", "dark", "auto")
	v.Currency("currency", "NAIRA")
	assert.Len(t, v.Errors, 2)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.com", NormalizeEmail("  A@B.Com "))
}
