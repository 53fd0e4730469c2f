package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	ctxKeyJobID ctxKey = iota
	ctxKeyStage
	ctxKeySegment
	ctxKeyLanguage
)

// WithJob attaches a job identifier to the context for later log
// enrichment via WithContext.
func WithJob(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, ctxKeyJobID, jobID)
}

// WithStage attaches the current pipeline stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ctxKeyStage, stage)
}

// WithSegment attaches a segment index to the context.
func WithSegment(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, ctxKeySegment, index)
}

// WithLanguage attaches a target language code to the context.
func WithLanguage(ctx context.Context, language string) context.Context {
	return context.WithValue(ctx, ctxKeyLanguage, language)
}

func jobIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyJobID).(string)
	return v, ok && v != ""
}

func stageFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyStage).(string)
	return v, ok && v != ""
}

func segmentFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(ctxKeySegment).(int)
	return v, ok
}

func languageFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyLanguage).(string)
	return v, ok && v != ""
}

// ContextFields extracts standardized slog attributes from the provided
// context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := jobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if stage, ok := stageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if segment, ok := segmentFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldSegmentIndex, segment))
	}
	if language, ok := languageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLanguage, language))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived
// from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
