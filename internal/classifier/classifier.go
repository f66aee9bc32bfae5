// File: internal/classifier/classifier.go
// Description: Pure heuristic classification of detected form fields. No I/O;
// the classifier maps a field descriptor plus a profile snapshot to a semantic
// category, a confidence score, and a directly-known value when one exists.

package classifier

import (
	"strings"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// fastPathConfidence is assigned when the declared input type alone decides
// the category; type is a stronger signal than any label text.
const fastPathConfidence = 0.95

// openQuestionConfidence is assigned to unmatched long-form fields escalated
// to AI generation.
const openQuestionConfidence = 0.7

// longSignalThreshold is the signal length beyond which an unmatched text
// field is probed for open-question indicators.
const longSignalThreshold = 40

// Classification is the classifier's verdict for one field.
type Classification struct {
	Category   schemas.FieldCategory
	Confidence float64
	// Value is the directly-known profile value, "" when the category has
	// none. An empty Value with a matched category is a valid "no direct
	// value" outcome, distinct from CategoryUnknown.
	Value string
}

// Classifier scores fields against an immutable rule set.
type Classifier struct {
	rules []Rule
}

// New returns a classifier using the built-in rule set.
func New() *Classifier {
	return &Classifier{rules: defaultRules}
}

// NewWithRules returns a classifier over a custom rule set. Intended for
// tests; production code uses New.
func NewWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify maps one raw field descriptor plus the profile snapshot to a
// category, confidence, and direct value.
func (c *Classifier) Classify(field schemas.DetectedField, profile schemas.UserProfile) Classification {
	signal := buildSignal(field)
	if signal == "" {
		if field.IsTextArea() {
			return Classification{Category: schemas.CategoryAIQuestion, Confidence: openQuestionConfidence}
		}
		return Classification{Category: schemas.CategoryUnknown}
	}

	// Input-type fast paths short-circuit keyword scoring: the declared
	// type is a stronger signal than label text.
	if fast, ok := c.classifyByInputType(field, signal, profile); ok {
		return fast
	}

	best := Classification{Category: schemas.CategoryUnknown}
	for _, rule := range c.rules {
		conf, ok := scoreRule(rule, signal, field.InputType)
		if !ok {
			continue
		}
		if conf > best.Confidence {
			best = Classification{Category: rule.Category, Confidence: conf}
			if rule.ProfileKey != "" {
				best.Value = profile.Get(rule.ProfileKey)
			}
		}
	}

	if best.Category != schemas.CategoryUnknown {
		return best
	}

	// Unmatched long-form fields default to AI generation: free text inputs
	// are rarely simple profile lookups.
	if field.IsTextArea() {
		return Classification{Category: schemas.CategoryAIQuestion, Confidence: openQuestionConfidence}
	}
	if len(signal) > longSignalThreshold && containsOpenQuestionIndicator(signal) {
		return Classification{Category: schemas.CategoryAIQuestion, Confidence: openQuestionConfidence}
	}

	return Classification{Category: schemas.CategoryUnknown}
}

// buildSignal concatenates the field's textual hints into one lowercase
// string, skipping empties.
func buildSignal(field schemas.DetectedField) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{field.Label, field.Placeholder, field.ElementID, field.ElementName} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// classifyByInputType applies the fast-path rules keyed on the declared
// input type. The boolean result reports whether a fast path applied.
func (c *Classifier) classifyByInputType(field schemas.DetectedField, signal string, profile schemas.UserProfile) (Classification, bool) {
	switch field.InputType {
	case "email":
		return Classification{
			Category:   schemas.CategoryEmail,
			Confidence: fastPathConfidence,
			Value:      profile.Get("email"),
		}, true
	case "tel":
		return Classification{
			Category:   schemas.CategoryPhone,
			Confidence: fastPathConfidence,
			Value:      profile.Get("phone"),
		}, true
	case "url":
		switch {
		case strings.Contains(signal, "linkedin"):
			return Classification{
				Category:   schemas.CategoryLinkedIn,
				Confidence: fastPathConfidence,
				Value:      profile.Get("linkedinUrl"),
			}, true
		case strings.Contains(signal, "github"):
			return Classification{
				Category:   schemas.CategoryGitHub,
				Confidence: fastPathConfidence,
				Value:      profile.Get("githubUrl"),
			}, true
		default:
			return Classification{
				Category:   schemas.CategoryWebsite,
				Confidence: fastPathConfidence,
				Value:      profile.Get("websiteUrl"),
			}, true
		}
	case "file":
		if strings.Contains(signal, "cover") {
			return Classification{Category: schemas.CategoryCoverLetterUpload, Confidence: fastPathConfidence}, true
		}
		return Classification{Category: schemas.CategoryResumeUpload, Confidence: fastPathConfidence}, true
	}
	return Classification{}, false
}

// scoreRule evaluates one rule against the signal, returning the confidence
// and whether the rule matched at all.
func scoreRule(rule Rule, signal, inputType string) (float64, bool) {
	for _, anti := range rule.AntiKeywords {
		if strings.Contains(signal, anti) {
			return 0, false
		}
	}

	// A field with no declared type is permissive; only a mismatching
	// declared type disqualifies the rule.
	if len(rule.InputTypes) > 0 && inputType != "" && !containsString(rule.InputTypes, inputType) {
		return 0, false
	}

	score := 0
	for _, kw := range rule.Keywords {
		if strings.Contains(signal, kw) {
			// Multi-word phrases are more specific and less likely to be
			// coincidental substring hits, so they weigh more.
			score += len(strings.Fields(kw))
		}
	}
	if score == 0 {
		return 0, false
	}

	conf := 0.5 + (float64(score)/float64(len(rule.Keywords)*2))*0.45
	if conf > 0.95 {
		conf = 0.95
	}
	return conf, true
}

func containsOpenQuestionIndicator(signal string) bool {
	for _, indicator := range openQuestionIndicators {
		if strings.Contains(signal, indicator) {
			return true
		}
	}
	return false
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
