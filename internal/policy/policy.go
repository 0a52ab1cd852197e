// Package policy decides whether a checkout may proceed after a gateway
// failure. The observed deployments disagreed on abort-vs-degrade, so the
// decision is made explicit here: it is a compiled rule expression evaluated
// per request, never an implicit branch buried in the controller.
package policy

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// RuleConfig is one named proceed-rule. If the expression evaluates to true
// for a failed authorization, the checkout proceeds in degraded mode.
type RuleConfig struct {
	Name       string
	Expression string
}

// Decision is the outcome of evaluating the rules for one gateway failure.
type Decision struct {
	// Proceed is true when the checkout should continue as if authorization
	// had been skipped.
	Proceed bool
	// Reason names the rule that matched, or "abort" when none did.
	Reason string
}

// DefaultRules returns the shipped policy: a gateway outage may degrade to
// skip-authorization when the operator opted in; a decline never proceeds.
func DefaultRules() []RuleConfig {
	return []RuleConfig{
		{Name: "DegradeOnUnavailable", Expression: "outcome == 'unavailable' && degrade_enabled"},
	}
}

type compiledRule struct {
	name string
	expr *govaluate.EvaluableExpression
}

// GatewayFailurePolicy evaluates proceed-rules against authorization outcomes.
type GatewayFailurePolicy struct {
	rules          []compiledRule
	degradeEnabled bool
}

// New compiles the rule expressions. degradeEnabled is exposed to the rules
// as the `degrade_enabled` parameter.
func New(rules []RuleConfig, degradeEnabled bool) (*GatewayFailurePolicy, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rc := range rules {
		expr, err := govaluate.NewEvaluableExpression(rc.Expression)
		if err != nil {
			return nil, fmt.Errorf("policy: error compiling rule %q: %w", rc.Name, err)
		}
		compiled = append(compiled, compiledRule{name: rc.Name, expr: expr})
	}
	return &GatewayFailurePolicy{rules: compiled, degradeEnabled: degradeEnabled}, nil
}

// Evaluate runs the rules for a failed authorization. outcome is the
// authorization outcome label ("declined", "unavailable"); amount is the cart
// total in minor units, available to amount-sensitive rules.
func (p *GatewayFailurePolicy) Evaluate(outcome string, amount int64) (Decision, error) {
	params := map[string]interface{}{
		"outcome":         outcome,
		"amount":          float64(amount),
		"degrade_enabled": p.degradeEnabled,
	}

	for _, rule := range p.rules {
		result, err := rule.expr.Evaluate(params)
		if err != nil {
			return Decision{}, fmt.Errorf("policy: error evaluating rule %q: %w", rule.name, err)
		}
		if matched, ok := result.(bool); ok && matched {
			return Decision{Proceed: true, Reason: rule.name}, nil
		}
	}
	return Decision{Proceed: false, Reason: "abort"}, nil
}
