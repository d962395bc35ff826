package schemas

import (
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ActionKind is the verb of a planned step.
type ActionKind string

const (
	ActionClick  ActionKind = "click"
	ActionType   ActionKind = "type"
	ActionScroll ActionKind = "scroll"
	ActionWait   ActionKind = "wait"
	ActionDone   ActionKind = "done"
)

// NormalizeAction lowercases and trims an action verb as received from the oracle.
func NormalizeAction(raw string) ActionKind {
	return ActionKind(strings.ToLower(strings.TrimSpace(raw)))
}

// Known reports whether the action is one the executor understands.
func (a ActionKind) Known() bool {
	switch a {
	case ActionClick, ActionType, ActionScroll, ActionWait, ActionDone:
		return true
	}
	return false
}

// RequiresElement reports whether the action must carry an element id.
func (a ActionKind) RequiresElement() bool {
	return a == ActionClick || a == ActionType
}

// Step is one instruction returned by the planning oracle.
type Step struct {
	Reasoning string     `json:"reasoning"`
	Action    ActionKind `json:"action"`
	ElementID *int       `json:"element_id,omitempty"`
	Text      string     `json:"text,omitempty"`

	// InvalidElementID is set when the oracle sent an element_id that is not
	// a non-negative integer. ElementID is nil in that case.
	InvalidElementID bool `json:"-"`
}

// UnmarshalJSON accepts element_id as an integer, an integral float such as
// 3.0, or a numeric string such as "3". Anything else marks the step invalid
// instead of failing the whole response.
func (s *Step) UnmarshalJSON(data []byte) error {
	type plain Step
	aux := struct {
		*plain
		ElementID jsoniter.RawMessage `json:"element_id"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.ElementID, s.InvalidElementID = nil, false
	if len(aux.ElementID) == 0 || string(aux.ElementID) == "null" {
		return nil
	}
	if id, ok := parseElementID(aux.ElementID); ok {
		s.ElementID = &id
	} else {
		s.InvalidElementID = true
	}
	return nil
}

func parseElementID(raw []byte) (int, bool) {
	text := string(raw)
	var quoted string
	if err := json.Unmarshal(raw, &quoted); err == nil {
		text = quoted
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// HasElement reports whether the step names a target element.
func (s Step) HasElement() bool { return s.ElementID != nil }

// Plan is an ordered sequence of steps produced for a single scan.
type Plan []Step

// -- Oracle Wire Schemas --

// ElementView is the reduced element shape sent to the oracle. Geometry is
// deliberately absent.
type ElementView struct {
	ID      int    `json:"id"`
	Label   string `json:"label"`
	Value   string `json:"value"`
	TagName string `json:"tagName"`
}

// ViewOf reduces scanned elements to their oracle view.
func ViewOf(elements []Element) []ElementView {
	views := make([]ElementView, 0, len(elements))
	for _, el := range elements {
		views = append(views, ElementView{ID: el.ID, Label: el.Label, Value: el.Value, TagName: el.TagName})
	}
	return views
}

// PlanRequest is the body posted to the oracle.
type PlanRequest struct {
	Goal             string        `json:"goal"`
	URL              string        `json:"url"`
	History          string        `json:"history"`
	Elements         []ElementView `json:"elements"`
	ScreenshotBase64 string        `json:"screenshot_base64,omitempty"`
}

// PlanResponse is the oracle's reply.
type PlanResponse struct {
	Steps []Step `json:"steps"`
}

// Sanitize normalizes action casing. A step with an unknown verb or an
// unusable element id ends the plan: it is kept so the executor rejects it
// and forces a re-sense, and every step after it is dropped.
func (r PlanResponse) Sanitize() Plan {
	plan := make(Plan, 0, len(r.Steps))
	for _, s := range r.Steps {
		s.Action = NormalizeAction(string(s.Action))
		plan = append(plan, s)
		if !s.Action.Known() || s.InvalidElementID {
			break
		}
	}
	return plan
}
