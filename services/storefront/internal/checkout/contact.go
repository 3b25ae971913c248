package checkout

import (
	"regexp"
	"strings"

	"github.com/appetiteclub/taqueria/services/storefront/internal/catalog"
)

// Field is a canonical contact field key.
type Field string

const (
	FieldName  Field = "name"
	FieldEmail Field = "email"
	FieldPhone Field = "phone"
)

// Fields lists the contact fields in the order they are asked for.
var Fields = []Field{FieldName, FieldEmail, FieldPhone}

// RequiredFields must be filled before an order can be registered.
var RequiredFields = []Field{FieldName, FieldPhone}

var fieldVariations = map[Field][]string{
	FieldName:  {"nombre", "nombre completo", "clientname", "client name", "customer name", "cardholder", "card holder", "titular"},
	FieldEmail: {"correo", "correo electronico", "e mail", "mail"},
	FieldPhone: {"telefono", "numero de telefono", "numero", "celular", "tel", "phone number"},
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ParseField maps a field name as spoken or typed ("Teléfono", "correo",
// "clientName") to its canonical key.
func ParseField(raw string) (Field, bool) {
	normalized := catalog.Fold(raw)
	if normalized == "" {
		return "", false
	}

	for _, f := range Fields {
		if normalized == string(f) {
			return f, true
		}
	}
	for f, variations := range fieldVariations {
		for _, v := range variations {
			if normalized == v {
				return f, true
			}
		}
	}
	return "", false
}

// ValidationError represents a contact validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ContactInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (c *ContactInfo) Set(f Field, value string) {
	value = strings.TrimSpace(value)
	switch f {
	case FieldName:
		c.Name = value
	case FieldPhone:
		c.Phone = value
	case FieldEmail:
		c.Email = value
	}
}

func (c ContactInfo) Get(f Field) string {
	switch f {
	case FieldName:
		return c.Name
	case FieldPhone:
		return c.Phone
	case FieldEmail:
		return c.Email
	default:
		return ""
	}
}

// Missing returns the required fields that are still empty.
func (c ContactInfo) Missing() []Field {
	missing := []Field{}
	for _, f := range RequiredFields {
		if c.Get(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Validate checks required fields and the format of the filled ones.
func (c ContactInfo) Validate() []ValidationError {
	var errors []ValidationError

	for _, f := range c.Missing() {
		errors = append(errors, ValidationError{
			Field:   string(f),
			Message: string(f) + " is required",
		})
	}

	if c.Phone != "" && !IsValidPhone(c.Phone) {
		errors = append(errors, ValidationError{
			Field:   string(FieldPhone),
			Message: "phone must have 10 digits",
		})
	}

	if c.Email != "" && !IsValidEmail(c.Email) {
		errors = append(errors, ValidationError{
			Field:   string(FieldEmail),
			Message: "email is not valid",
		})
	}

	return errors
}

// IsValidPhone accepts Mexican numbers: 10 digits once separators are removed.
func IsValidPhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits == 10
}

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}
