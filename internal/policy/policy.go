// Package policy evaluates dynamic business rules over terminal checkout
// outcomes. Its one concern today is preselection: deciding whether a
// completed payment qualifies its method to be stored as the shopper's
// preferred method for future flows.
package policy

import (
	"fmt"

	"github.com/Knetic/govaluate"

	"github.com/yourorg/checkout-sdk/internal/wire"
)

// RuleConfig is one named rule expression. Expressions are evaluated against
// the parameters of a terminal outcome:
//
//	status      - the result status string, e.g. "authorised"
//	method_type - the submitted payment method type, e.g. "scheme"
//	has_payload - whether the completion carried an opaque payload
type RuleConfig struct {
	Name       string
	Expression string
}

// DefaultRules qualifies fully authorised and received payments, matching
// the statuses that indicate the payment actually reached the processor.
func DefaultRules() []RuleConfig {
	return []RuleConfig{
		{
			Name:       "StorePreferredOnFinalStatus",
			Expression: "status == 'authorised' || status == 'received'",
		},
	}
}

type compiledRule struct {
	name string
	expr *govaluate.EvaluableExpression
}

// PreselectionPolicy decides whether a completed payment's method should be
// persisted as preferred. Rules are OR-ed: any rule evaluating to true
// qualifies the method.
type PreselectionPolicy struct {
	rules []compiledRule
}

// NewPreselectionPolicy compiles the given rules. An empty rule set is
// valid and never qualifies anything.
func NewPreselectionPolicy(rules []RuleConfig) (*PreselectionPolicy, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		expr, err := govaluate.NewEvaluableExpression(rule.Expression)
		if err != nil {
			return nil, fmt.Errorf("policy: compiling rule %q: %w", rule.Name, err)
		}
		compiled = append(compiled, compiledRule{name: rule.Name, expr: expr})
	}
	return &PreselectionPolicy{rules: compiled}, nil
}

// ShouldStore evaluates the rules against a terminal payment result.
func (p *PreselectionPolicy) ShouldStore(result wire.PaymentResult, methodType string) (bool, error) {
	params := map[string]any{
		"status":      string(result.Status),
		"method_type": methodType,
		"has_payload": result.Payload != "",
	}

	for _, rule := range p.rules {
		value, err := rule.expr.Evaluate(params)
		if err != nil {
			return false, fmt.Errorf("policy: evaluating rule %q: %w", rule.name, err)
		}
		verdict, ok := value.(bool)
		if !ok {
			return false, fmt.Errorf("policy: rule %q did not evaluate to a boolean", rule.name)
		}
		if verdict {
			return true, nil
		}
	}
	return false, nil
}
