package application

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ghostpass/senate/internal/domain"
)

// newValidator returns a validator with the senate's custom tags registered.
func newValidator() (*validator.Validate, error) {
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return v, nil
}

// registerCustomValidators adds the tags used by Config:
//   - modelformat: "provider/model" with both halves non-empty
//   - graderule: a known admission grade rule name
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("modelformat", validateModelFormat); err != nil {
		return fmt.Errorf("failed to register modelformat validator: %w", err)
	}
	if err := v.RegisterValidation("graderule", validateGradeRule); err != nil {
		return fmt.Errorf("failed to register graderule validator: %w", err)
	}
	return nil
}

// validateModelFormat accepts an empty value or a "provider/model" spec.
// Only the first slash separates the provider, so OpenRouter models such as
// "openrouter/meta-llama/llama-3.3-70b-instruct" are valid.
func validateModelFormat(fl validator.FieldLevel) bool {
	model := fl.Field().String()
	if model == "" {
		return true
	}
	provider, name, ok := strings.Cut(model, "/")
	return ok && provider != "" && name != ""
}

func validateGradeRule(fl validator.FieldLevel) bool {
	switch domain.GradeRule(fl.Field().String()) {
	case domain.RuleIDCheck, domain.RuleAgeCheck, domain.RuleRestriction, domain.RuleSparse:
		return true
	default:
		return false
	}
}

// formatValidationErrors flattens validator output into one message per
// failing field.
func formatValidationErrors(err error, verr *domain.ValidationError) {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		verr.AddError(err.Error())
		return
	}
	for _, fe := range errs {
		switch fe.Tag() {
		case "modelformat":
			verr.AddErrorf("%s: must be in provider/model form, got %q", fe.Namespace(), fe.Value())
		case "graderule":
			verr.AddErrorf("%s: unknown grade rule %q", fe.Namespace(), fe.Value())
		case "required":
			verr.AddErrorf("%s: is required", fe.Namespace())
		default:
			if fe.Param() != "" {
				verr.AddErrorf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
			} else {
				verr.AddErrorf("%s: failed %s", fe.Namespace(), fe.Tag())
			}
		}
	}
}
