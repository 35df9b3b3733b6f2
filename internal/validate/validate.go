// Package validate holds the input rules shared by every request that carries
// a name, email, password, or RSVP status. The predicates are plain functions
// and are also registered as validator tags for request structs.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/eventsphere/internal/apperr"
	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/go-playground/validator/v10"
)

var (
	nameRe    = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	emailRe   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	upperRe   = regexp.MustCompile(`[A-Z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]`)
)

// Name checks a person's display name: letters and spaces, 2 to 50 characters.
func Name(name string) error {
	name = strings.TrimSpace(name)
	if !nameRe.MatchString(name) {
		return apperr.Validation("Name can only contain letters and spaces (no numbers or special characters)")
	}
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return apperr.Validation("Name must be between 2 and 50 characters")
	}
	return nil
}

// Email checks the address shape. Callers still normalize with NormalizeEmail.
func Email(email string) error {
	if !emailRe.MatchString(strings.TrimSpace(email)) {
		return apperr.Validation("Please enter a valid email address")
	}
	return nil
}

// Password requires at least 8 characters with lower, upper, digit and special characters.
func Password(pw string) error {
	switch {
	case len(pw) < 8:
		return apperr.Validation("Password must be at least 8 characters")
	case !lowerRe.MatchString(pw):
		return apperr.Validation("Password must contain at least one lowercase letter")
	case !upperRe.MatchString(pw):
		return apperr.Validation("Password must contain at least one uppercase letter")
	case !digitRe.MatchString(pw):
		return apperr.Validation("Password must contain at least one number")
	case !specialRe.MatchString(pw):
		return apperr.Validation("Password must contain at least one special character")
	}
	return nil
}

// RSVPStatus checks s against the RSVP status enum. Empty is allowed and means going.
func RSVPStatus(s string) error {
	if s == "" || model.RSVPStatus(s).Valid() {
		return nil
	}
	return apperr.Validation("Status must be one of going, interested, not_going")
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var v = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "personname", Name)
	mustRegister(v, "emailaddr", Email)
	mustRegister(v, "strongpassword", Password)
	mustRegister(v, "rsvpstatus", RSVPStatus)

	return v
}

// mustRegister binds check to tag. A failed registration would silently
// disable the rule, so it panics at init instead.
func mustRegister(v *validator.Validate, tag string, check func(string) error) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return check(fl.Field().String()) == nil
	})
	if err != nil {
		panic(fmt.Sprintf("validate: register %q: %v", tag, err))
	}
}

// Struct validates a request struct and returns an apperr validation error
// describing what is wrong with it.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	var missing []string
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("Missing required fields: " + strings.Join(missing, ", "))
	}

	return fieldError(fieldErrs[0])
}

func fieldError(fe validator.FieldError) error {
	value, _ := fe.Value().(string)
	if p, ok := fe.Value().(*string); ok && p != nil {
		value = *p
	}

	switch fe.Tag() {
	case "personname":
		return Name(value)
	case "emailaddr":
		return Email(value)
	case "strongpassword":
		return Password(value)
	case "rsvpstatus":
		return RSVPStatus(value)
	case "url":
		return apperr.Validation(fmt.Sprintf("%s must be a valid URL", fe.Field()))
	case "min":
		return apperr.Validation(fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
	case "max":
		return apperr.Validation(fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
	case "oneof":
		return apperr.Validation(fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param()))
	default:
		return apperr.Validation(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}
