// Package policy selects the order status recorded when a payment is confirmed.
// Rules are govaluate expressions evaluated in order over the payment facts;
// the first rule that evaluates to true wins.
package policy

import (
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"
)

// RuleConfig is a status rule as it appears in configuration.
type RuleConfig struct {
	Name       string `mapstructure:"name" json:"name"`
	Expression string `mapstructure:"expression" json:"expression"`
	StatusID   int    `mapstructure:"status_id" json:"status_id"`
}

type compiledRule struct {
	RuleConfig
	expr *govaluate.EvaluableExpression
}

// Facts are the values a rule expression can reference.
type Facts struct {
	Amount   float64
	Currency string
	Gateway  string
	TestMode bool
	OrderID  string
}

func (f Facts) parameters() map[string]interface{} {
	return map[string]interface{}{
		"amount":    f.Amount,
		"currency":  f.Currency,
		"gateway":   f.Gateway,
		"test_mode": f.TestMode,
		"order_id":  f.OrderID,
	}
}

// Decision is the outcome of Select. Matched is false when no rule applied,
// in which case the caller keeps the gateway's configured success status.
type Decision struct {
	StatusID int
	Rule     string
	Matched  bool
}

// StatusPolicy evaluates compiled status rules.
type StatusPolicy struct {
	rules []compiledRule
}

// NewStatusPolicy compiles rules. Any empty or invalid expression fails the
// whole set.
func NewStatusPolicy(rules []RuleConfig) (*StatusPolicy, error) {
	p := &StatusPolicy{}
	for _, r := range rules {
		if strings.TrimSpace(r.Expression) == "" {
			return nil, fmt.Errorf("status rule '%s' has an empty expression", r.Name)
		}
		if r.StatusID <= 0 {
			return nil, fmt.Errorf("status rule '%s' must set a positive status_id", r.Name)
		}
		expr, err := govaluate.NewEvaluableExpression(r.Expression)
		if err != nil {
			return nil, fmt.Errorf("failed to compile status rule '%s': %w", r.Name, err)
		}
		p.rules = append(p.rules, compiledRule{RuleConfig: r, expr: expr})
	}
	return p, nil
}

// Len returns the number of compiled rules.
func (p *StatusPolicy) Len() int {
	return len(p.rules)
}

// Select returns the first matching rule's status.
func (p *StatusPolicy) Select(facts Facts) (Decision, error) {
	params := facts.parameters()
	for _, r := range p.rules {
		result, err := r.expr.Evaluate(params)
		if err != nil {
			return Decision{}, fmt.Errorf("error evaluating status rule '%s': %w", r.Name, err)
		}
		matched, ok := result.(bool)
		if !ok {
			return Decision{}, fmt.Errorf("status rule '%s' did not evaluate to a boolean (got %T)", r.Name, result)
		}
		if matched {
			return Decision{StatusID: r.StatusID, Rule: r.Name, Matched: true}, nil
		}
	}
	return Decision{}, nil
}
