// Package policy gates prompt requests with an OPA policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.chat_policy.decision"),
		rego.Module("chat_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Input is what a prompt request looks like to the policy.
type Input struct {
	Model       string            `json:"model"`
	Role        string            `json:"role"`
	Attachments []AttachmentInput `json:"attachments"`
}

// AttachmentInput describes one attachment for policy evaluation.
type AttachmentInput struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// Evaluate checks a prompt request against the policy. It returns the
// decision (allow or block). Policies that produce no decision allow.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionAllow, nil
}

// DefaultPolicy is the default admission policy: allow everything except
// attachments with executable content types.
const DefaultPolicy = `
package chat_policy

import rego.v1

default decision := "allow"

blocked_content_types := {
	"application/x-msdownload",
	"application/x-executable",
	"application/x-dosexec",
	"application/x-sh",
}

decision := "block" if {
	some att in input.attachments
	att.content_type in blocked_content_types
}
`
