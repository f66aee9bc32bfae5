// File: internal/autofill/service.go
// Description: The autofill orchestrator. Sequences classification, direct
// profile mapping, select-option matching, and AI answer generation into one
// pipeline call over a scanned field list.

package autofill

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/classifier"
	"github.com/formpilot/formpilot-cli/internal/config"
)

// Request carries one pipeline invocation: the scanned fields plus the
// read-only context snapshots the stages draw from.
type Request struct {
	Fields         []schemas.DetectedField
	Profile        schemas.UserProfile
	JobDescription string
	ResumeText     string
	KnowledgeBase  string
}

// Service drives the field-processing pipeline. All generation calls go
// through the injected gateway, which serializes them behind the shared
// request queue; the service itself holds no scheduling state.
type Service struct {
	classifier *classifier.Classifier
	gateway    schemas.Gateway
	pacing     time.Duration
	logger     *zap.Logger

	// sleep is swapped in tests to avoid real pacing delays.
	sleep func(ctx context.Context, d time.Duration)
}

// NewService wires the pipeline.
func NewService(gw schemas.Gateway, cfg config.AutofillConfig, logger *zap.Logger) *Service {
	return &Service{
		classifier: classifier.New(),
		gateway:    gw,
		pacing:     cfg.AnswerPacing,
		logger:     logger.Named("autofill"),
		sleep: func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
			}
		},
	}
}

// Process runs the fixed pipeline over the request's field list and returns
// a new, fully annotated list. Stages never reorder fields, and a field the
// user already edited is never overwritten by any stage.
func (s *Service) Process(ctx context.Context, req Request) ([]schemas.DetectedField, error) {
	fields := make([]schemas.DetectedField, len(req.Fields))
	copy(fields, req.Fields)

	s.logger.Info("Processing scanned fields",
		zap.Int("field_count", len(fields)),
		zap.Bool("has_job_description", req.JobDescription != ""),
		zap.Bool("has_resume", req.ResumeText != ""))

	// Stage 1: classification. Pure and synchronous.
	s.classifyAll(fields, req.Profile)

	// Stage 2: direct profile values.
	s.applyDirectValues(fields, req.Profile)

	// Stage 3: resolve enumerated selects against their option lists.
	s.matchSelectFields(ctx, fields)

	// Stage 4: AI answers, only when generation context exists. No context
	// means no speculative low-quality answers.
	if req.JobDescription != "" || req.ResumeText != "" {
		var err error
		fields, err = s.GenerateAnswers(ctx, fields, req.JobDescription, req.ResumeText, req.KnowledgeBase)
		if err != nil {
			return nil, err
		}
	}

	return fields, nil
}

// classifyAll annotates every field with its category and confidence, and
// seeds the suggested value where classification produced one directly.
func (s *Service) classifyAll(fields []schemas.DetectedField, profile schemas.UserProfile) {
	for i := range fields {
		c := s.classifier.Classify(fields[i], profile)
		fields[i].Category = c.Category
		fields[i].Confidence = c.Confidence
		if c.Value != "" && !fields[i].UserEdited {
			fields[i].SuggestedValue = c.Value
		}
	}
}

// applyDirectValues maps each field's category to its profile value. The
// full_name category is synthesized from firstName/lastName when the profile
// has no stored full name.
func (s *Service) applyDirectValues(fields []schemas.DetectedField, profile schemas.UserProfile) {
	for i := range fields {
		f := &fields[i]
		if f.UserEdited || f.SuggestedValue != "" {
			continue
		}

		key := classifier.ProfileKeyFor(f.Category)
		if key == "" {
			continue
		}
		if v := profile.Get(key); v != "" {
			f.SuggestedValue = v
			continue
		}

		if f.Category == schemas.CategoryFullName {
			if name := joinName(profile.Get("firstName"), profile.Get("lastName")); name != "" {
				f.SuggestedValue = name
			}
		}
	}
}

// joinName joins the non-empty name parts with a single space.
func joinName(first, last string) string {
	parts := make([]string, 0, 2)
	if first != "" {
		parts = append(parts, first)
	}
	if last != "" {
		parts = append(parts, last)
	}
	return strings.Join(parts, " ")
}

// FillInstructions projects the annotated field list onto the core->filler
// boundary: one instruction per field with a non-empty suggestion.
func FillInstructions(fields []schemas.DetectedField) []schemas.FillInstruction {
	out := make([]schemas.FillInstruction, 0, len(fields))
	for _, f := range fields {
		if f.SuggestedValue == "" {
			continue
		}
		out = append(out, schemas.FillInstruction{FieldID: f.ID, Value: f.SuggestedValue})
	}
	return out
}
