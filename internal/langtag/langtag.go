package langtag

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Mode is the accessibility variant suffix for a target (spec.md
// GLOSSARY, "Accessibility variant (mode)").
type Mode string

const (
	// ModeStandard is the ordinary dialogue-only subtitle track.
	ModeStandard Mode = ""
	// ModeSDH additionally transcribes non-speech audio.
	ModeSDH Mode = "sdh"
)

// Target is one requested (language, mode) pair.
type Target struct {
	Language string // canonical BCP-47 tag, e.g. "es-419"
	Mode     Mode
}

// Key returns the stable map key used throughout the pipeline for
// per_chunk_results / outputs / attempt_counts (spec.md §3).
func (t Target) Key() string {
	if t.Mode == ModeStandard {
		return t.Language
	}
	return t.Language + "_" + string(t.Mode)
}

// Canonicalize parses and normalizes a requested language code, returning
// an error if it is not a well-formed BCP-47 tag.
func Canonicalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("language code is empty")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", code, err)
	}
	return tag.String(), nil
}

// ParseMode normalizes an accessibility-mode flag; empty string means
// ModeStandard.
func ParseMode(raw string) (Mode, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return ModeStandard, nil
	case "sdh":
		return ModeSDH, nil
	default:
		return "", fmt.Errorf("unsupported accessibility mode %q", raw)
	}
}

// NormalizeTargets canonicalizes and de-duplicates a set of requested
// targets. It rejects empty input and unknown codes, per the New ->
// Validated admission step implied by spec.md §3 ("targets: non-empty set
// of language codes").
func NormalizeTargets(raw []Target) ([]Target, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("at least one target language is required")
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]Target, 0, len(raw))
	for _, t := range raw {
		canon, err := Canonicalize(t.Language)
		if err != nil {
			return nil, err
		}
		target := Target{Language: canon, Mode: t.Mode}
		key := target.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, target)
	}
	return out, nil
}

// SameLanguage reports whether two BCP-47 tags refer to the same base
// language, ignoring region/script — used by the quality gate to decide
// whether linguistic scoring applies (spec.md §4.8: "when source language
// != target language").
func SameLanguage(a, b string) bool {
	tagA, err := language.Parse(a)
	if err != nil {
		return strings.EqualFold(a, b)
	}
	tagB, err := language.Parse(b)
	if err != nil {
		return strings.EqualFold(a, b)
	}
	baseA, _ := tagA.Base()
	baseB, _ := tagB.Base()
	return baseA == baseB
}
