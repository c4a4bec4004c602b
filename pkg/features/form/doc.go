// Package form wires page forms to validation, busy overlays and
// submission feedback.
//
// # Field Validation
//
// Required fields are checked when the user leaves them:
//
//	v := form.NewFieldValidator(doc, nil)
//	v.Attach()
//	v.Blur(field)  // renders "this field is required" under an empty field
//	v.Input(field) // clears it again
//
// The rules are plain validators and can be used on their own:
//
//	err := form.ValidateValue(form.Field{Type: "email", Value: "not-an-email"})
//	// err.Error() == "invalid email format"
//
// # Intercepted Submission
//
// A Submitter takes over a form: the browser stops navigating, the submit
// button shows a spinner, and the response becomes a toast.
//
//	sub := form.NewSubmitter(doc, loop, toasts, overlays, http.DefaultClient)
//	sub.Attach(signup, form.SubmitOptions{
//	    SuccessMessage: "Welcome aboard!",
//	    OnSuccess: func(resp *http.Response) { ... },
//	})
//
// # Passive Enhancement
//
// An Enhancer only adds the spinner to POST forms and lets the browser
// navigate as usual. The overlay is released after FallbackTimeout in case
// the navigation never happens.
package form
