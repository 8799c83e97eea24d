package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionKind names an automation action on the wire.
type ActionKind string

const (
	ActionGenerateArticles ActionKind = "generate_articles"
	ActionSkipItems        ActionKind = "skip_items"
)

// Action is a closed set of automation actions; dispatch with a type switch.
type Action interface {
	Kind() ActionKind
	isAction()
}

// GenerateArticles queues generation attempts for matching items.
type GenerateArticles struct {
	Priority int `json:"priority"`
	// MaxItems caps attempts created per evaluation; 0 falls back to the source maxItems.
	MaxItems int `json:"maxItems"`
}

// SkipItems marks matching items processed without generating.
type SkipItems struct {
	Reason string `json:"reason"`
}

func (GenerateArticles) Kind() ActionKind { return ActionGenerateArticles }
func (SkipItems) Kind() ActionKind        { return ActionSkipItems }
func (GenerateArticles) isAction()        {}
func (SkipItems) isAction()               {}

// Actions serializes as a list of {kind, payload} envelopes.
type Actions []Action

type actionEnvelope struct {
	Kind    ActionKind      `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func (a Actions) MarshalJSON() ([]byte, error) {
	out := make([]actionEnvelope, 0, len(a))
	for _, action := range a {
		payload, err := json.Marshal(action)
		if err != nil {
			return nil, fmt.Errorf("marshal action %s: %w", action.Kind(), err)
		}
		out = append(out, actionEnvelope{Kind: action.Kind(), Payload: payload})
	}
	return json.Marshal(out)
}

func (a *Actions) UnmarshalJSON(data []byte) error {
	var envelopes []actionEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return fmt.Errorf("decode actions: %w", err)
	}
	parsed := make(Actions, 0, len(envelopes))
	for _, env := range envelopes {
		action, err := decodeAction(env)
		if err != nil {
			return err
		}
		parsed = append(parsed, action)
	}
	*a = parsed
	return nil
}

func decodeAction(env actionEnvelope) (Action, error) {
	payload := env.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	switch env.Kind {
	case ActionGenerateArticles:
		var g GenerateArticles
		if err := json.Unmarshal(payload, &g); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		return g, nil
	case ActionSkipItems:
		var s SkipItems
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("action kind %q: %w", env.Kind, ErrUnknownStatus)
	}
}

// RuleConditions filter which items a rule applies to.
type RuleConditions struct {
	IncludeKeywords  []string `json:"includeKeywords" yaml:"includeKeywords"`
	ExcludeKeywords  []string `json:"excludeKeywords" yaml:"excludeKeywords"`
	MinContentLength int      `json:"minContentLength" yaml:"minContentLength"`
}

// Matches evaluates the conditions against an item, case-insensitively.
func (c RuleConditions) Matches(item FeedItem) bool {
	text := strings.ToLower(item.Title + "\n" + item.Content)
	if len(strings.TrimSpace(item.Content)) < c.MinContentLength {
		return false
	}
	for _, kw := range c.ExcludeKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(text, kw) {
			return false
		}
	}
	if len(c.IncludeKeywords) == 0 {
		return true
	}
	for _, kw := range c.IncludeKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// AutomationRule is a persisted per-source rule.
type AutomationRule struct {
	ID         string
	SourceID   string
	Name       string
	Enabled    bool
	Conditions RuleConditions
	Actions    Actions
}
