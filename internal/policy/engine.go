// Package policy decides which models a request may use, backed by an OPA
// rego module.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Input is the document a model policy is evaluated against.
type Input struct {
	Model      string
	Source     string
	TemplateID string
}

func (in Input) value() map[string]any {
	return map[string]any{
		"model":       in.Model,
		"source":      in.Source,
		"template_id": in.TemplateID,
	}
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content. The
// module must declare package model_policy and define decision.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.model_policy.decision"),
		rego.Module("model_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// LoadEngine builds an engine from the rego file at path, or from
// DefaultPolicy when path is empty.
func LoadEngine(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy %s: %w", path, err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate returns the decision for input and an optional reason.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input.value()))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	// An undefined decision means the policy has no default; allow.
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "undefined", nil
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return val, "", nil
	case map[string]any:
		decision, _ := val["decision"].(string)
		reason, _ := val["reason"].(string)
		if decision == "" {
			return "", "", fmt.Errorf("policy object has no decision")
		}
		return decision, reason, nil
	default:
		return "", "", fmt.Errorf("unexpected policy result type %T", val)
	}
}

// Allowed reports whether input is allowed by the policy.
func (e *Engine) Allowed(ctx context.Context, input Input) (bool, string, error) {
	decision, reason, err := e.Evaluate(ctx, input)
	if err != nil {
		return false, "", err
	}
	return decision == DecisionAllow, reason, nil
}

// DefaultPolicy allows every model.
const DefaultPolicy = `
package model_policy

import rego.v1

default decision := "allow"
`
