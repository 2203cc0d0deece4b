// Package policy builds API-Gateway-style authorization decision
// documents. A Builder is scoped to a single request: rules are
// accumulated per effect and rendered into an ordered statement list.
package policy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DocumentVersion is the policy language version understood by the
// enforcement layer.
const DocumentVersion = "2012-10-17"

// InvokeAction is the action every statement scopes.
const InvokeAction = "execute-api:Invoke"

// Effect is the effect of a policy statement.
type Effect string

// Statement effects.
const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// Construction-time errors. Both indicate an implementer bug rather than a
// runtime condition and must never be silently swallowed.
var (
	// ErrInvalidRule indicates an unrecognized verb, a malformed resource
	// path, or a malformed condition.
	ErrInvalidRule = errors.New("invalid policy rule")

	// ErrEmptyPolicy indicates Build was called with no rules added.
	ErrEmptyPolicy = errors.New("policy has no statements")
)

// allowedVerbs is the closed set of verbs a rule may name.
var allowedVerbs = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "PATCH": {},
	"DELETE": {}, "HEAD": {}, "OPTIONS": {}, "*": {},
}

// resourcePathPattern constrains non-empty resource paths.
var resourcePathPattern = regexp.MustCompile(`^[/.A-Za-z0-9-*]+$`)

// ConditionOperator is a condition operator from the closed supported set.
type ConditionOperator string

// Supported condition operators.
const (
	OpStringEquals    ConditionOperator = "StringEquals"
	OpStringNotEquals ConditionOperator = "StringNotEquals"
	OpStringLike      ConditionOperator = "StringLike"
	OpNumericEquals   ConditionOperator = "NumericEquals"
	OpIPAddress       ConditionOperator = "IpAddress"
	OpDateLessThan    ConditionOperator = "DateLessThan"
)

var allowedOperators = map[ConditionOperator]struct{}{
	OpStringEquals:    {},
	OpStringNotEquals: {},
	OpStringLike:      {},
	OpNumericEquals:   {},
	OpIPAddress:       {},
	OpDateLessThan:    {},
}

// Condition constrains a statement to requests matching a context key.
type Condition struct {
	Operator ConditionOperator
	Key      string
	Values   []string
}

// validate checks the condition against the closed operator set.
func (c Condition) validate() error {
	if _, ok := allowedOperators[c.Operator]; !ok {
		return fmt.Errorf("%w: unknown condition operator %q", ErrInvalidRule, c.Operator)
	}
	if c.Key == "" {
		return fmt.Errorf("%w: condition key is empty", ErrInvalidRule)
	}
	if len(c.Values) == 0 {
		return fmt.Errorf("%w: condition has no values", ErrInvalidRule)
	}
	return nil
}

// Statement is one allow or deny statement of a decision document.
type Statement struct {
	Effect    string                            `json:"Effect"`
	Action    string                            `json:"Action"`
	Resource  []string                          `json:"Resource"`
	Condition map[string]map[string]interface{} `json:"Condition,omitempty"`
}

// Document is the statement list consumed by the enforcement layer.
type Document struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Decision is the authorization decision returned to the enforcement
// layer. A decision always contains at least one statement.
type Decision struct {
	PrincipalID    string   `json:"principalId"`
	PolicyDocument Document `json:"policyDocument"`
}

// Scope holds the fields needed to build fully qualified resource
// identifiers.
type Scope struct {
	Partition string
	Region    string
	AccountID string
	APIID     string
	Stage     string
}

// entry is one accumulated rule.
type entry struct {
	resource   string
	conditions []Condition
}

// Builder accumulates allow/deny rules for one request. It owns its rule
// lists exclusively; a Builder must not be shared across requests.
type Builder struct {
	principalID string
	scope       Scope
	allow       []entry
	deny        []entry
}

// NewBuilder creates a Builder for the given principal and resource scope.
func NewBuilder(principalID string, scope Scope) *Builder {
	return &Builder{
		principalID: principalID,
		scope:       scope,
	}
}

// Add records a rule for the given effect, verb, and resource path. The
// verb must be one of the fixed verb set; a non-empty path must match
// [/.A-Za-z0-9-*]+ and a leading slash is stripped. Violations fail with
// ErrInvalidRule.
func (b *Builder) Add(effect Effect, verb, resourcePath string, conditions ...Condition) error {
	if effect != EffectAllow && effect != EffectDeny {
		return fmt.Errorf("%w: unknown effect %q", ErrInvalidRule, effect)
	}
	if _, ok := allowedVerbs[verb]; !ok {
		return fmt.Errorf("%w: unknown verb %q", ErrInvalidRule, verb)
	}

	resourcePath = strings.TrimPrefix(resourcePath, "/")
	if resourcePath == "" {
		resourcePath = "*"
	}
	if !resourcePathPattern.MatchString(resourcePath) {
		return fmt.Errorf("%w: resource path %q is malformed", ErrInvalidRule, resourcePath)
	}

	for _, cond := range conditions {
		if err := cond.validate(); err != nil {
			return err
		}
	}

	e := entry{
		resource:   b.resourceARN(verb, resourcePath),
		conditions: conditions,
	}

	if effect == EffectAllow {
		b.allow = append(b.allow, e)
	} else {
		b.deny = append(b.deny, e)
	}

	return nil
}

// Allow records an allow rule.
func (b *Builder) Allow(verb, resourcePath string, conditions ...Condition) error {
	return b.Add(EffectAllow, verb, resourcePath, conditions...)
}

// Deny records a deny rule.
func (b *Builder) Deny(verb, resourcePath string, conditions ...Condition) error {
	return b.Add(EffectDeny, verb, resourcePath, conditions...)
}

// AllowAll records a blanket allow rule for every verb and path.
func (b *Builder) AllowAll() error {
	return b.Add(EffectAllow, "*", "*")
}

// DenyAll records a blanket deny rule for every verb and path.
func (b *Builder) DenyAll() error {
	return b.Add(EffectDeny, "*", "*")
}

// Build renders the accumulated rules into a decision. It fails with
// ErrEmptyPolicy when no rule was ever added: a caller must always record
// at least a deny rule before building.
func (b *Builder) Build() (*Decision, error) {
	if len(b.allow) == 0 && len(b.deny) == 0 {
		return nil, ErrEmptyPolicy
	}

	statements := make([]Statement, 0, len(b.allow)+len(b.deny))
	statements = append(statements, renderEffect(EffectAllow, b.allow)...)
	statements = append(statements, renderEffect(EffectDeny, b.deny)...)

	return &Decision{
		PrincipalID: b.principalID,
		PolicyDocument: Document{
			Version:   DocumentVersion,
			Statement: statements,
		},
	}, nil
}

// resourceARN builds the fully qualified resource identifier for a rule.
func (b *Builder) resourceARN(verb, resourcePath string) string {
	return fmt.Sprintf("arn:%s:execute-api:%s:%s:%s/%s/%s/%s",
		b.scope.Partition, b.scope.Region, b.scope.AccountID, b.scope.APIID,
		b.scope.Stage, verb, resourcePath)
}

// renderEffect renders one effect bucket. Conditioned entries each become
// their own singleton statement, emitted before one merged statement
// listing every unconditioned resource. A consumer applies one condition
// block per statement, so conditioned and unconditioned rules cannot share
// a statement.
func renderEffect(effect Effect, entries []entry) []Statement {
	var statements []Statement
	var unconditioned []string

	for _, e := range entries {
		if len(e.conditions) == 0 {
			unconditioned = append(unconditioned, e.resource)
			continue
		}
		statements = append(statements, Statement{
			Effect:    string(effect),
			Action:    InvokeAction,
			Resource:  []string{e.resource},
			Condition: renderConditions(e.conditions),
		})
	}

	if len(unconditioned) > 0 {
		statements = append(statements, Statement{
			Effect:   string(effect),
			Action:   InvokeAction,
			Resource: unconditioned,
		})
	}

	return statements
}

// renderConditions renders a condition block. A single value renders as a
// string, multiple values as a list.
func renderConditions(conditions []Condition) map[string]map[string]interface{} {
	block := make(map[string]map[string]interface{})
	for _, c := range conditions {
		op := string(c.Operator)
		if block[op] == nil {
			block[op] = make(map[string]interface{})
		}
		if len(c.Values) == 1 {
			block[op][c.Key] = c.Values[0]
		} else {
			block[op][c.Key] = c.Values
		}
	}
	return block
}
