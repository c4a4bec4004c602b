package form

import (
	"log/slog"
	"strings"

	"github.com/eneky/projet-ui/pkg/page"
	"github.com/eneky/projet-ui/pkg/vdom"
)

// Messages rendered under invalid fields.
const (
	MsgRequired = "this field is required"
	MsgEmail    = "invalid email format"
	MsgPassword = "password must be at least 8 characters"
)

// PasswordMinLength applies to password fields named "password".
const PasswordMinLength = 8

const (
	// ErrorClass marks the element holding a field's error text.
	ErrorClass = "field-error"

	// RequiredSelector finds the fields checked on blur.
	RequiredSelector = "input[required], textarea[required]"

	// SubmitSelector finds submit buttons.
	SubmitSelector = `button[type="submit"]`
)

var (
	invalidClasses = []string{"border-red-500", "focus:border-red-500"}
	errorClasses   = []string{ErrorClass, "text-red-500", "text-sm", "mt-1"}
	buttonClasses  = []string{"transition-all", "duration-200", "hover:scale-105"}
)

// Field is the validation view of a form control.
type Field struct {
	Name     string
	Type     string
	Value    string
	Required bool
}

// FieldOf reads a form control from the page.
func FieldOf(n *vdom.VNode) Field {
	typ := strings.ToLower(n.Attr("type"))
	if n.Tag == "textarea" {
		typ = "textarea"
	} else if typ == "" && n.Tag == "input" {
		typ = "text"
	}
	return Field{
		Name:     n.Attr("name"),
		Type:     typ,
		Value:    page.Value(n),
		Required: n.HasAttr("required"),
	}
}

// Rules returns the validators that apply to f, in the order they run.
func Rules(f Field) []Validator {
	var rules []Validator
	if f.Required {
		rules = append(rules, Required(MsgRequired))
	}
	if f.Type == "email" {
		rules = append(rules, Email(MsgEmail))
	}
	if f.Type == "password" && f.Name == "password" {
		rules = append(rules, MinLength(PasswordMinLength, MsgPassword))
	}
	return rules
}

// ValidateValue checks f against its rules. The value is trimmed first.
func ValidateValue(f Field) error {
	return Run(f.Name, trimSpace(f.Value), Rules(f)...)
}

// FieldValidator shows inline errors for required fields as the user
// leaves them, and clears them as the user types.
type FieldValidator struct {
	doc    *page.Document
	fields map[*vdom.VNode]bool
	logger *slog.Logger
}

// NewFieldValidator creates a validator for doc. Call Attach to pick up fields.
func NewFieldValidator(doc *page.Document, logger *slog.Logger) *FieldValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FieldValidator{
		doc:    doc,
		fields: make(map[*vdom.VNode]bool),
		logger: logger.With("component", "validator"),
	}
}

// Attach watches every required field and styles submit buttons.
// It returns the number of watched fields.
func (v *FieldValidator) Attach() int {
	for _, f := range v.doc.QueryAll(RequiredSelector) {
		v.fields[f] = true
	}
	for _, b := range v.doc.QueryAll(SubmitSelector) {
		v.doc.AddClass(b, buttonClasses...)
	}
	v.logger.Debug("field validation attached", "fields", len(v.fields))
	return len(v.fields)
}

// Watches reports whether n was picked up by Attach.
func (v *FieldValidator) Watches(n *vdom.VNode) bool {
	return v.fields[n]
}

// Blur validates field and renders the first failure. It reports whether
// the field is valid.
func (v *FieldValidator) Blur(field *vdom.VNode) bool {
	v.ClearError(field)
	if err := ValidateValue(FieldOf(field)); err != nil {
		v.ShowError(field, err.Error())
		return false
	}
	return true
}

// Input clears any error shown for field.
func (v *FieldValidator) Input(field *vdom.VNode) {
	v.ClearError(field)
}

// ValidateForm runs the blur check on every required field of form and
// renders each failure. It reports whether all of them passed.
// Fields without the required attribute are not checked at all.
func (v *FieldValidator) ValidateForm(form *vdom.VNode) bool {
	valid := true
	for _, f := range page.QueryAllIn(form, RequiredSelector) {
		if !v.Blur(f) {
			valid = false
		}
	}
	return valid
}

// ShowError marks field invalid and inserts msg right after it.
func (v *FieldValidator) ShowError(field *vdom.VNode, msg string) {
	v.doc.AddClass(field, invalidClasses...)
	v.doc.InsertAfter(field, RenderError(msg))
}

// ClearError removes the invalid marker and the error text following field.
func (v *FieldValidator) ClearError(field *vdom.VNode) {
	v.doc.RemoveClass(field, invalidClasses...)
	parent, idx := vdom.ParentOf(v.doc.Root(), field)
	if parent == nil || idx+1 >= len(parent.Children) {
		return
	}
	if next := parent.Children[idx+1]; next.HasClass(ErrorClass) {
		v.doc.Remove(next)
	}
}

// RenderError returns the error text element shown under a field.
func RenderError(msg string) *vdom.VNode {
	return vdom.Div(vdom.Class(errorClasses...), vdom.Role("alert"), msg)
}
