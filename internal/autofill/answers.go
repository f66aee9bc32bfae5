// File: internal/autofill/answers.go
package autofill

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// unknownQuestion is the sentinel used when a candidate field carries no
// label or placeholder to phrase the question from.
const unknownQuestion = "Unknown question"

const answerPromptTemplate = `You are helping a job applicant answer an application form question.

Question: %s

%sAnswer the question in the applicant's voice: first person, specific,
professional, and concise (2-5 sentences unless the question demands more).
Do not invent facts that contradict the provided background. Reply with the
answer text only.`

// GenerateAnswers produces AI answers for every open-question field that the
// user has not already edited, returning a new annotated list. With no
// qualifying candidates it returns the input untouched and issues zero
// gateway calls.
//
// Candidates are processed strictly sequentially, with an extra fixed pacing
// delay between calls on top of the queue's own spacing: generation
// endpoints tend to carry their own independent per-minute caps.
func (s *Service) GenerateAnswers(ctx context.Context, fields []schemas.DetectedField, jobDescription, resumeText, knowledgeBase string) ([]schemas.DetectedField, error) {
	candidates := make([]int, 0, len(fields))
	for i, f := range fields {
		if f.Category == schemas.CategoryAIQuestion && !f.UserEdited {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return fields, nil
	}

	out := make([]schemas.DetectedField, len(fields))
	copy(out, fields)

	background := buildBackground(jobDescription, resumeText, knowledgeBase)
	s.logger.Info("Generating answers for open questions",
		zap.Int("candidate_count", len(candidates)))

	for n, idx := range candidates {
		if n > 0 && s.pacing > 0 {
			s.sleep(ctx, s.pacing)
		}

		question := questionFor(out[idx])
		answer, err := s.gateway.Generate(ctx, fmt.Sprintf(answerPromptTemplate, question, background))
		if err != nil {
			// One field's failure never aborts the batch; the field simply
			// ends up with no suggestion.
			s.logger.Warn("Answer generation failed for field",
				zap.String("field_id", out[idx].ID),
				zap.Error(err))
			continue
		}

		answer = strings.TrimSpace(answer)
		if answer == "" {
			continue
		}
		out[idx].SuggestedValue = answer
		out[idx].AIGenerated = true
	}

	return out, nil
}

// questionFor phrases the question string for a candidate field, preferring
// the label, then the placeholder, then the sentinel.
func questionFor(f schemas.DetectedField) string {
	if f.Label != "" {
		return f.Label
	}
	if f.Placeholder != "" {
		return f.Placeholder
	}
	return unknownQuestion
}

// buildBackground assembles the context block shared by every answer prompt.
func buildBackground(jobDescription, resumeText, knowledgeBase string) string {
	var b strings.Builder
	if jobDescription != "" {
		b.WriteString("Job description:\n")
		b.WriteString(jobDescription)
		b.WriteString("\n\n")
	}
	if resumeText != "" {
		b.WriteString("Applicant resume:\n")
		b.WriteString(resumeText)
		b.WriteString("\n\n")
	}
	if knowledgeBase != "" {
		b.WriteString("Additional background:\n")
		b.WriteString(knowledgeBase)
		b.WriteString("\n\n")
	}
	return b.String()
}
