// File: internal/autofill/matcher.go
package autofill

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

const optionMatchPromptTemplate = `You are matching a stored answer to a form dropdown.

Stored answer: %q
Field label: %q
Available options:
%s
Reply with exactly one of the options above, copied verbatim. If none of the
options is a confident match for the stored answer, reply with an empty
string. Reply with nothing else.`

// matchSelectFields runs the option matcher sequentially over every
// qualifying select field. Sequential on purpose: per-field calls share the
// global request budget with everything else.
func (s *Service) matchSelectFields(ctx context.Context, fields []schemas.DetectedField) {
	for i := range fields {
		f := &fields[i]
		if !f.IsSelect() || len(f.Options) == 0 || f.SuggestedValue == "" || f.UserEdited {
			continue
		}
		// Exact, case-sensitive containment: "yes" does not count as
		// already matching "Yes" and will go through the matcher.
		if containsExact(f.Options, f.SuggestedValue) {
			continue
		}

		matched, err := s.MatchOption(ctx, f.SuggestedValue, f.Label, f.Options)
		if err != nil {
			// A match miss degrades to keeping the profile-derived value;
			// the UI surfaces "does not match" if it cares.
			s.logger.Warn("Select-option matching failed; keeping prior suggestion",
				zap.String("field_id", f.ID),
				zap.Error(err))
			continue
		}
		if matched != "" {
			f.SuggestedValue = matched
		}
	}
}

// MatchOption asks the gateway to pick the option best matching the stored
// value. The reply is validated against the option list: anything not in the
// list, including free text, is treated as no-match. An empty return with a
// nil error means no confident match.
func (s *Service) MatchOption(ctx context.Context, profileValue, fieldLabel string, options []string) (string, error) {
	prompt := fmt.Sprintf(optionMatchPromptTemplate,
		profileValue, fieldLabel, formatOptionList(options))

	reply, err := s.gateway.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", nil
	}
	if containsExact(options, reply) {
		return reply, nil
	}
	// The model answered outside the list; never trust free text to become
	// a select's value.
	s.logger.Debug("Matcher reply not in option list; treating as no-match",
		zap.String("reply", reply))
	return "", nil
}

func formatOptionList(options []string) string {
	var b strings.Builder
	for _, opt := range options {
		b.WriteString("- ")
		b.WriteString(opt)
		b.WriteString("\n")
	}
	return b.String()
}

func containsExact(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}
