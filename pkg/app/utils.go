package app

import (
	"github.com/eneky/projet-ui/pkg/features/form"
	"github.com/eneky/projet-ui/pkg/loading"
	"github.com/eneky/projet-ui/pkg/toast"
	"github.com/eneky/projet-ui/pkg/vdom"
)

// Utils is the small surface other server code uses to talk to the page.
// Methods must be called on the page loop.
type Utils struct {
	toasts    *toast.Emitter
	overlays  *loading.Manager
	validator *form.FieldValidator
}

func (u *Utils) ShowSuccess(message string) *toast.Notification { return u.toasts.Success(message) }
func (u *Utils) ShowError(message string) *toast.Notification   { return u.toasts.Error(message) }
func (u *Utils) ShowInfo(message string) *toast.Notification    { return u.toasts.Info(message) }
func (u *Utils) ShowWarning(message string) *toast.Notification { return u.toasts.Warning(message) }

// ShowLoading overlays element with a medium spinner and text.
func (u *Utils) ShowLoading(element *vdom.VNode, text string) loading.Handle {
	return u.overlays.Show(element, text, loading.SizeMedium)
}

// HideLoading releases an overlay created by ShowLoading.
func (u *Utils) HideLoading(h loading.Handle) {
	u.overlays.Hide(h)
}

// ValidateForm checks every required field of form and renders the errors.
func (u *Utils) ValidateForm(form *vdom.VNode) bool {
	return u.validator.ValidateForm(form)
}
