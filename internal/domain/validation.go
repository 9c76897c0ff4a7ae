package domain

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	personNameRe  = regexp.MustCompile(`^[A-Za-z]{2,30}$`)
	adminPhoneRe  = regexp.MustCompile(`^(07\d{8}|01\d{8}|\+2547\d{8})$`)
	kenyaPhoneRe  = regexp.MustCompile(`^(?:\+254|0)7\d{8}$`)
	mobileMoneyRe = regexp.MustCompile(`^(?:\+?254|0)[17]\d{8}$`)
	otpRe         = regexp.MustCompile(`^\d{6}$`)
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterValidation("personname", matchRe(personNameRe))
		v.RegisterValidation("adminphone", matchRe(adminPhoneRe))
		v.RegisterValidation("kephone", matchRe(kenyaPhoneRe))
		v.RegisterValidation("mobilemoney", matchRe(mobileMoneyRe))
		v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
			return PasswordRules(fl.Field().String()).Satisfied()
		})
		validate = v
	})
	return validate
}

func matchRe(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// FieldError is a single failed field check with a user-facing message
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries every failed field of a form
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return e.Fields[0].Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a single-field ValidationError
func Invalid(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Validate runs the struct's validate tags and converts failures into a
// *ValidationError with messages suitable for a toast.
func Validate(v any) error {
	err := formValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &ValidationError{}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	label := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "personname":
		return "Enter a valid " + strings.ToLower(label) + " (letters only, 2-30 characters)."
	case "email":
		return "Enter a valid email address."
	case "adminphone":
		return "Enter a valid phone: 07XXXXXXXX, 01XXXXXXXX or +2547XXXXXXXX."
	case "kephone":
		return "Invalid Kenyan phone number format."
	case "mobilemoney":
		return ErrPhoneRequired.Error()
	case "strongpassword":
		return "Password must be at least 8 characters with upper and lower case letters, a number and a special character."
	case "min":
		if fe.Kind().String() == "string" {
			return label + " must be at least " + fe.Param() + " characters."
		}
		return label + " must be at least " + fe.Param() + "."
	case "max":
		return label + " must be at most " + fe.Param() + "."
	case "oneof":
		return label + " must be one of " + fe.Param() + "."
	case "gt":
		return label + " must be greater than " + fe.Param() + "."
	default:
		return label + " is invalid."
	}
}

func humanize(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidMobileMoneyPhone checks an MPESA/AIRTEL phone number
func ValidMobileMoneyPhone(phone string) bool {
	return mobileMoneyRe.MatchString(strings.TrimSpace(phone))
}

// ValidOTP checks a six digit one-time code
func ValidOTP(code string) bool {
	return otpRe.MatchString(code)
}

// PasswordCheck reports each password rule individually, as the reset form lists them
type PasswordCheck struct {
	Length    bool
	Uppercase bool
	Lowercase bool
	Number    bool
	Special   bool
}

// PasswordRules evaluates the password policy against pw
func PasswordRules(pw string) PasswordCheck {
	c := PasswordCheck{Length: len(pw) >= 8}
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r) && r < unicode.MaxASCII:
			c.Uppercase = true
		case unicode.IsLower(r) && r < unicode.MaxASCII:
			c.Lowercase = true
		case unicode.IsDigit(r):
			c.Number = true
		default:
			c.Special = true
		}
	}
	return c
}

// Satisfied reports whether every rule passed
func (c PasswordCheck) Satisfied() bool {
	return c.Length && c.Uppercase && c.Lowercase && c.Number && c.Special
}
