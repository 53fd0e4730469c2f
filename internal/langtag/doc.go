// Package langtag canonicalizes and validates the BCP-47 target language
// codes a job requests, and the source-language comparison the quality
// gate (C9) needs to decide whether linguistic scoring applies. It
// promotes original_source/src/language_selector.py into a real BCP-47
// implementation (SPEC_FULL.md §4).
package langtag
