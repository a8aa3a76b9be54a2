// Package extract recovers structured payloads from free-text model
// completions. Models wrap their answers in prose, markdown fences and other
// formatting noise; every helper here tries progressively looser strategies
// before giving up with a typed failure that keeps the raw text attached.
package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"media-insights-go/internal/types"
)

// Object parses the single JSON object expected in raw.
func Object(raw string) (map[string]any, error) {
	candidate, err := locate(raw, '{', '}')
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return nil, failure("json_object", "candidate is not a valid object: "+err.Error(), raw)
	}
	return out, nil
}

// ObjectInto parses the single JSON object expected in raw into v, which
// should be a pointer to a schema struct.
func ObjectInto(raw string, v any) error {
	candidate, err := locate(raw, '{', '}')
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return failure("json_object", "candidate does not match schema: "+err.Error(), raw)
	}
	return nil
}

// Array parses the single JSON array expected in raw. A literal empty array
// in the text is a success with a non-nil zero-length slice; it is never
// conflated with "nothing found".
func Array(raw string) ([]any, error) {
	candidate, err := locate(raw, '[', ']')
	if err != nil {
		return nil, err
	}
	out := []any{}
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return nil, failure("json_array", "candidate is not a valid array: "+err.Error(), raw)
	}
	return out, nil
}

// TagGrammar describes one XML-like tag whose occurrences should be collected.
// NumericAttrs are coerced to float64, defaulting to 0 when unparseable.
type TagGrammar struct {
	Tag          string
	NumericAttrs []string
}

// Segment is one matched tagged region.
type Segment struct {
	Attrs   map[string]string
	Numeric map[string]float64
	Text    string
}

var attrPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_-]*)\s*=\s*"([^"]*)"`)

// Segments collects every occurrence of the grammar's tag in raw. Finding no
// occurrences at all is an ExtractionFailure; a malformed attribute inside a
// matched segment only degrades that attribute, never the whole segment.
func Segments(raw string, g TagGrammar) ([]Segment, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, failure("tagged_segments", "empty input", raw)
	}
	tag := regexp.QuoteMeta(g.Tag)
	pattern, err := regexp.Compile(`(?s)<` + tag + `\b([^>]*)>(.*?)</` + tag + `>`)
	if err != nil {
		return nil, failure("tagged_segments", "bad tag grammar: "+err.Error(), raw)
	}
	matches := pattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil, failure("tagged_segments", "no <"+g.Tag+"> segments found", raw)
	}

	numeric := map[string]bool{}
	for _, a := range g.NumericAttrs {
		numeric[a] = true
	}

	segs := make([]Segment, 0, len(matches))
	for _, m := range matches {
		seg := Segment{
			Attrs:   map[string]string{},
			Numeric: map[string]float64{},
			Text:    strings.TrimSpace(m[2]),
		}
		for _, kv := range attrPattern.FindAllStringSubmatch(m[1], -1) {
			seg.Attrs[kv[1]] = kv[2]
			if numeric[kv[1]] {
				// Coercion failure defaults to 0 instead of dropping the segment.
				n, err := strconv.ParseFloat(strings.TrimSpace(kv[2]), 64)
				if err != nil {
					n = 0
				}
				seg.Numeric[kv[1]] = n
			}
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// locate finds the best candidate substring for the expected JSON shape.
// Ordered attempts, stop at first hit: whole trimmed text, fenced block
// content, first balanced open..close substring.
func locate(raw string, open, close byte) (string, error) {
	shape := "json_object"
	if open == '[' {
		shape = "json_array"
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", failure(shape, "empty input", raw)
	}
	if trimmed[0] == open && json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	if fenced := unfence(trimmed); fenced != "" {
		inner := strings.TrimSpace(fenced)
		if len(inner) > 0 && inner[0] == open && json.Valid([]byte(inner)) {
			return inner, nil
		}
		// fall through: the fence may still hold the payload with prose around it
		trimmed = inner
	}

	if candidate := balanced(trimmed, open, close); candidate != "" {
		return candidate, nil
	}
	// the fence content may have been narrower than the full text; rescan it all
	if candidate := balanced(strings.TrimSpace(raw), open, close); candidate != "" {
		return candidate, nil
	}
	return "", failure(shape, "no balanced "+string(open)+"..."+string(close)+" found", raw)
}

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)```")

// unfence returns the content of the first markdown code fence, or "".
func unfence(s string) string {
	m := fencePattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// balanced scans for the first balanced open..close substring, respecting
// JSON string literals so braces inside quoted text do not break the count.
func balanced(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				candidate := strings.TrimSpace(s[start : i+1])
				if json.Valid([]byte(candidate)) {
					return candidate
				}
				return ""
			}
		}
	}
	return ""
}

func failure(shape, reason, raw string) *types.ExtractionFailure {
	return &types.ExtractionFailure{Shape: shape, Reason: reason, Raw: raw}
}
