// Package templates renders the HTMX fragments returned by the web handlers.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/dealership/internal/images"
	"github.com/JonMunkholm/dealership/internal/wizard"
	"github.com/a-h/templ"
)

var e = templ.EscapeString[string]

// ErrorAlert renders a dismissible error box with the support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="alert alert-error" role="alert"><p class="alert-message">%s</p>`, e(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p class="alert-action">%s</p>`, e(action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `<p class="alert-code">Code: %s</p></div>`, e(code))
		return err
	})
}

// Notice renders a success or info message.
func Notice(kind, message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="alert alert-%s" role="status">%s</div>`, e(kind), e(message))
		return err
	})
}

// WizardResult renders the outcome of a wizard step: the notification on
// submit or failure, and the field errors when blocked.
func WizardResult(res *wizard.Result) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		switch res.Outcome {
		case wizard.OutcomeSubmitted:
			return Notice("success", res.Message).Render(ctx, w)
		case wizard.OutcomeFailed:
			return Notice("error", res.Message).Render(ctx, w)
		case wizard.OutcomeBlocked:
			if _, err := io.WriteString(w, `<ul class="field-errors">`); err != nil {
				return err
			}
			for _, fe := range res.Errors {
				if _, err := fmt.Fprintf(w, `<li data-field="%s">%s</li>`, e(fe.Field), e(fe.Message)); err != nil {
					return err
				}
			}
			_, err := io.WriteString(w, `</ul>`)
			return err
		}
		_, err := fmt.Fprintf(w, `<div class="wizard-step" data-step="%d">%s</div>`, int(res.Step), e(res.Step.String()))
		return err
	})
}

// ImageGrid renders the image manager entries of a listing form.
func ImageGrid(entries []images.Entry) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<div class="image-grid">`); err != nil {
			return err
		}
		for _, en := range entries {
			src := en.URL
			if src == "" {
				src = en.Preview
			}
			class := "image"
			if en.Primary {
				class += " image-primary"
			}
			if en.Error != "" {
				class += " image-failed"
			}
			if _, err := fmt.Fprintf(w, `<figure class="%s" data-key="%s"><img src="%s" alt="">`,
				class, e(en.Key), e(src)); err != nil {
				return err
			}
			if en.Error != "" {
				if _, err := fmt.Fprintf(w, `<figcaption>%s</figcaption>`, e(en.Error)); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</figure>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}
