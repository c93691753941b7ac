package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[a-zA-Z]{2,}$`)
	phoneRegex    = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	nameRegex     = regexp.MustCompile(`^[a-zA-Z\s]*$`)
	digitsRegex   = regexp.MustCompile(`^[0-9]+$`)
	currencyRegex = regexp.MustCompile(`^[A-Za-z]{3}$`)
)

// FieldError is one entry of a validation failure's details.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator defines validation methods
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records the first error for a field.
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Details returns the errors sorted by field name.
func (v *Validator) Details() []FieldError {
	out := make([]FieldError, 0, len(v.Errors))
	for field, msg := range v.Errors {
		out = append(out, FieldError{Field: field, Message: msg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// Email validates email format
func (v *Validator) Email(field, email string) {
	v.Check(emailRegex.MatchString(email), field, "Please enter a valid email address")
}

// Digits checks value is exactly n ASCII digits.
func (v *Validator) Digits(field, label, value string, n int) {
	v.Check(len(value) == n, field, fmt.Sprintf("%s must be exactly %d digits", label, n))
	v.Check(digitsRegex.MatchString(value), field, fmt.Sprintf("%s must contain only numbers", label))
}

// Passcode validates a new passcode: six digits, not all the same.
func (v *Validator) Passcode(field, passcode string) {
	v.Digits(field, "Passcode", passcode, 6)
	if len(passcode) > 0 {
		v.Check(strings.Count(passcode, passcode[:1]) != len(passcode), field, "Passcode cannot be all the same digit")
	}
}

// Name validates a first or last name.
func (v *Validator) Name(field, label, name string) {
	v.Check(len(name) >= 1 && len(name) <= 50, field, label+" must be between 1 and 50 characters")
	v.Check(nameRegex.MatchString(name), field, label+" can only contain letters and spaces")
}

// Phone validates phone number format
func (v *Validator) Phone(field, phone string) {
	v.Check(phoneRegex.MatchString(phone), field, "Please enter a valid phone number")
}

// Date parses an ISO-8601 date or timestamp.
func (v *Validator) Date(field, value string) *time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	v.AddError(field, "Please enter a valid date of birth")
	return nil
}

// OneOf checks value is one of allowed.
func (v *Validator) OneOf(field, value, message string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field, message)
}

// Currency validates a 3-letter currency code.
func (v *Validator) Currency(field, value string) {
	v.Check(currencyRegex.MatchString(value), field, "Currency must be a 3-letter code")
}

// Required checks if a string is not empty
func (v *Validator) Required(field, value, message string) {
	v.Check(strings.TrimSpace(value) != "", field, message)
}

// MaxLength checks if a string has at most n characters
func (v *Validator) MaxLength(field string, value string, n int) {
	v.Check(len(value) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
