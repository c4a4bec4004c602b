package form

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"
)

// Validator checks one field value.
type Validator interface {
	// Validate returns nil if value is valid, or a ValidationError.
	Validate(value string) error
}

// ValidatorFunc is a function that implements Validator.
type ValidatorFunc func(value string) error

func (f ValidatorFunc) Validate(value string) error {
	return f(value)
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// Required validates that the value is non-empty after trimming whitespace.
func Required(msg string) Validator {
	if msg == "" {
		msg = MsgRequired
	}
	return ValidatorFunc(func(value string) error {
		if trimSpace(value) == "" {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// MinLength validates that a string has at least n characters, counted in
// UTF-16 code units as a browser counts them. Empty values pass; combine
// with Required.
func MinLength(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("must be at least %d characters", n)
	}
	return ValidatorFunc(func(value string) error {
		if value == "" {
			return nil
		}
		if utf16Len(value) < n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// jsSpace is the whitespace a browser matches with \s and strips with trim.
const jsSpace = `\t\n\v\f\r \x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}`

// emailPattern accepts anything shaped like local@domain.tld without whitespace.
var emailPattern = regexp.MustCompile(`^[^@` + jsSpace + `]+@[^@` + jsSpace + `]+\.[^@` + jsSpace + `]+$`)

func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0x00A0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A
}

// trimSpace strips the whitespace a browser's String.trim strips.
func trimSpace(s string) string {
	return strings.TrimFunc(s, isJSSpace)
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// Email validates that a non-empty value looks like an email address.
func Email(msg string) Validator {
	if msg == "" {
		msg = MsgEmail
	}
	return ValidatorFunc(func(value string) error {
		if value == "" {
			return nil
		}
		if !emailPattern.MatchString(value) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// Run applies validators in order and returns the first failure,
// tagged with the field name.
func Run(field, value string, validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(value); err != nil {
			if ve, ok := err.(ValidationError); ok {
				ve.Field = field
				return ve
			}
			return err
		}
	}
	return nil
}
