// internal/browser/scanner/scanner.go

// Package scanner turns the live page into an indexed map of interactive
// elements.
package scanner

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder/api/schemas"
	"github.com/xkilldash9x/pathfinder/internal/browser/session"
)

const (
	maxLabelLen = 50
	maxValueLen = 50
	minEdge     = 2.0
	unlabeled   = "unlabeled"
)

// RawNode is what the page reports about one candidate before normalization.
type RawNode struct {
	Index       int          `json:"index"`
	TagName     string       `json:"tagName"`
	Role        string       `json:"role"`
	AriaLabel   string       `json:"ariaLabel"`
	Placeholder string       `json:"placeholder"`
	Name        string       `json:"name"`
	Text        string       `json:"text"`
	Title       string       `json:"title"`
	Value       string       `json:"value"`
	Editable    bool         `json:"editable"`
	Display     string       `json:"display"`
	Rect        schemas.Rect `json:"rect"`
}

// Scanner produces element maps from a page.
type Scanner struct {
	runner session.ScriptRunner
	logger *zap.Logger
}

// New creates a scanner that evaluates its collection script through runner.
func New(runner session.ScriptRunner, logger *zap.Logger) *Scanner {
	return &Scanner{runner: runner, logger: logger.Named("scanner")}
}

// Scan returns the visible interactive elements of the page. A page that
// cannot be evaluated (typically mid-navigation) yields an empty map and no
// error so the caller can simply try again; only cancellation of ctx is
// reported.
func (s *Scanner) Scan(ctx context.Context) ([]schemas.Element, error) {
	var raw []RawNode
	if err := s.runner.Evaluate(ctx, collectScript, &raw); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("Scan failed; page is likely navigating.", zap.Error(err))
		return []schemas.Element{}, nil
	}

	elements := Normalize(raw)
	s.logger.Debug("Scan complete.", zap.Int("candidates", len(raw)), zap.Int("visible", len(elements)))
	return elements, nil
}

// Normalize filters raw nodes to visible ones and derives their labels and
// type hints. Ids are the nodes' document-order indices.
func Normalize(raw []RawNode) []schemas.Element {
	elements := make([]schemas.Element, 0, len(raw))
	for _, n := range raw {
		if !isVisible(n) {
			continue
		}
		hint := deriveTypeHint(n)
		elements = append(elements, schemas.Element{
			ID:       n.Index,
			Label:    deriveLabel(n) + " [" + string(hint) + "]",
			TypeHint: hint,
			Value:    strings.TrimSpace(truncate(currentValue(n), maxValueLen)),
			TagName:  strings.ToUpper(n.TagName),
			Rect:     n.Rect,
			Center:   n.Rect.Center(),
			Visible:  true,
		})
	}
	return elements
}

// currentValue is what a field holds, or the visible text of anything else.
func currentValue(n RawNode) string {
	switch strings.ToUpper(n.TagName) {
	case "INPUT", "TEXTAREA":
		return n.Value
	}
	return n.Text
}

func isVisible(n RawNode) bool {
	return n.Rect.W > minEdge && n.Rect.H > minEdge && n.Display != "none"
}

// deriveLabel picks the first non-blank of aria-label, placeholder, name,
// visible text and title.
func deriveLabel(n RawNode) string {
	for _, candidate := range []string{n.AriaLabel, n.Placeholder, n.Name, n.Text, n.Title} {
		if label := cleanLabel(candidate); label != "" {
			return label
		}
	}
	return unlabeled
}

func cleanLabel(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
	s = strings.TrimSpace(s)
	return strings.TrimSpace(truncate(s, maxLabelLen))
}

func deriveTypeHint(n RawNode) schemas.TypeHint {
	tag := strings.ToUpper(n.TagName)
	role := strings.ToLower(n.Role)
	switch {
	case n.Editable, tag == "INPUT", tag == "TEXTAREA":
		return schemas.HintInput
	case tag == "A", role == "link":
		return schemas.HintLink
	case tag == "BUTTON", role == "button":
		return schemas.HintButton
	}
	return schemas.HintElement
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
