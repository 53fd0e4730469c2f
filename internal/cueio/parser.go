package cueio

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseError reports a malformed cue at a specific line of the input.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cueio: line %d: %s", e.Line, e.Message)
}

// Parse reads the tolerant line-oriented cue format described in
// spec.md §4.6: blocks separated by blank lines, each block an optional
// numeric index line, a timing line, and one or more text lines. It
// tolerates a missing index, mixed ',' and '.' timestamp separators, and
// trailing blank lines. It rejects malformed timing syntax, end <= start,
// and negative times.
func Parse(data string) ([]Cue, error) {
	lines := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")

	var cues []Cue
	lineNo := 0
	i := 0
	for i < len(lines) {
		// Skip blank lines between blocks.
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
			lineNo++
		}
		if i >= len(lines) {
			break
		}

		blockStart := lineNo
		var block []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			block = append(block, lines[i])
			i++
			lineNo++
		}

		cue, err := parseBlock(block, blockStart)
		if err != nil {
			return nil, err
		}
		cue.Index = len(cues) + 1
		cues = append(cues, cue)
	}
	return cues, nil
}

func parseBlock(lines []string, blockStartLine int) (Cue, error) {
	if len(lines) == 0 {
		return Cue{}, &ParseError{Line: blockStartLine + 1, Message: "empty block"}
	}

	idx := 0
	// An index line is purely digits; tolerate its absence.
	if isDigits(strings.TrimSpace(lines[0])) && len(lines) > 1 && strings.Contains(lines[1], "-->") {
		idx = 1
	}
	if idx >= len(lines) || !strings.Contains(lines[idx], "-->") {
		return Cue{}, &ParseError{Line: blockStartLine + idx + 1, Message: "expected a timing line containing \"-->\""}
	}

	start, end, err := parseTimingLine(lines[idx])
	if err != nil {
		return Cue{}, &ParseError{Line: blockStartLine + idx + 1, Message: err.Error()}
	}
	if start < 0 || end < 0 {
		return Cue{}, &ParseError{Line: blockStartLine + idx + 1, Message: "negative timestamp"}
	}
	if end <= start {
		return Cue{}, &ParseError{Line: blockStartLine + idx + 1, Message: "end must be after start"}
	}

	text := lines[idx+1:]
	return Cue{Start: start, End: end, Text: text}, nil
}

func parseTimingLine(line string) (start, end time.Duration, err error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed timing line %q", line)
	}
	start, err = parseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	// The end field may carry trailing cue-settings (VTT); only the
	// leading timestamp is significant here.
	endField := strings.TrimSpace(parts[1])
	if fields := strings.Fields(endField); len(fields) > 0 {
		endField = fields[0]
	}
	end, err = parseTimestamp(endField)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func parseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	normalized := strings.ReplaceAll(value, ".", ",")
	parts := strings.SplitN(normalized, ",", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed timestamp %q", value)
	}
	hms := strings.Split(parts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("malformed timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("malformed timestamp %q", value)
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return total, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
