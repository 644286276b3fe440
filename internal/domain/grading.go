package domain

import (
	"slices"
	"strings"
)

// GradeRule names one step of the admission grading chain.
type GradeRule string

const (
	// RuleIDCheck downgrades to yellow when identity was requested but is
	// not verified.
	RuleIDCheck GradeRule = "id_check"
	// RuleAgeCheck downgrades to yellow when age was requested but could not
	// be confirmed.
	RuleAgeCheck GradeRule = "age_check"
	// RuleRestriction downgrades to red on an explicit restriction signal.
	RuleRestriction GradeRule = "restriction"
	// RuleSparse downgrades to yellow when too few signals were produced.
	RuleSparse GradeRule = "sparse"
)

// Grade messages.
const (
	MessageCleared        = "Cleared: signals meet the admission policy."
	MessageIDUnverified   = "Identity not verified."
	MessageAgeUnproven    = "Age could not be verified."
	MessageRestricted     = "Restricted: entry not permitted."
	MessageSparse         = "Not enough signals to clear."
	MessageNotFound       = "Reference not recognized."
	MessageExpired        = "Reference expired."
	MessageRevoked        = "Reference revoked."
	MessageUnavailable    = "Reference could not be checked."
	MessageInvalidRequest = "Request could not be read."
)

// DefaultPrecedence is id-check, age-check, restriction, sparse.
func DefaultPrecedence() []GradeRule {
	return []GradeRule{RuleIDCheck, RuleAgeCheck, RuleRestriction, RuleSparse}
}

// GradePolicy configures admission grading.
type GradePolicy struct {
	// Precedence is the rule evaluation order.
	Precedence []GradeRule

	// MinSignals is the fewest signals a green pack may carry.
	MinSignals int

	// AdmissionPurposes lists token purposes graded with the identity rules.
	AdmissionPurposes []string
}

// DefaultGradePolicy returns the production grading policy.
func DefaultGradePolicy() GradePolicy {
	return GradePolicy{
		Precedence:        DefaultPrecedence(),
		MinSignals:        2,
		AdmissionPurposes: []string{"admission", "entry", "door"},
	}
}

// IsAdmission reports whether the purpose is graded as an admission check.
func (p GradePolicy) IsAdmission(purpose string) bool {
	return slices.ContainsFunc(p.AdmissionPurposes, func(a string) bool {
		return strings.EqualFold(a, purpose)
	})
}

// GradeResult is the outcome of grading a derivation.
type GradeResult struct {
	Grade   Grade
	Message string
	// Reasons lists every rule that applied, in precedence order.
	Reasons []string
}

// Grade walks the rules in precedence order starting from green. The first
// applicable rule sets the grade and message; later rules only replace them
// with a more severe grade. Non-admission purposes skip the identity rules.
func (p GradePolicy) Grade(purpose string, d Derivation) GradeResult {
	res := GradeResult{Grade: GradeGreen, Message: MessageCleared}
	admission := p.IsAdmission(purpose)
	decided := false

	for _, rule := range p.Precedence {
		if !admission && (rule == RuleIDCheck || rule == RuleAgeCheck) {
			continue
		}
		grade, msg, ok := p.apply(rule, d)
		if !ok {
			continue
		}
		res.Reasons = append(res.Reasons, string(rule))
		if !decided || grade.Severity() > res.Grade.Severity() {
			res.Grade, res.Message = grade, msg
			decided = true
		}
	}
	return res
}

func (p GradePolicy) apply(rule GradeRule, d Derivation) (Grade, string, bool) {
	switch rule {
	case RuleIDCheck:
		return GradeYellow, MessageIDUnverified, d.IdentityRequested && !d.IdentityVerified
	case RuleAgeCheck:
		return GradeYellow, MessageAgeUnproven, d.AgeRequested && !d.AgeVerified
	case RuleRestriction:
		return GradeRed, MessageRestricted, d.Restricted
	case RuleSparse:
		return GradeYellow, MessageSparse, len(d.Pack.Signals) < p.MinSignals
	default:
		return GradeGreen, "", false
	}
}
