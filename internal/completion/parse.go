// Package completion obtains structured replies from a text completion
// service, validating each attempt and retrying a bounded number of times.
package completion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid matches every *InvalidError.
var ErrInvalid = errors.New("invalid completion")

// Stage names the parser step that rejected a completion.
type Stage string

const (
	StageExtract     Stage = "extract"
	StageDecode      Stage = "decode"
	StageSchema      Stage = "schema"
	StageAttribution Stage = "attribution"
	StageRequest     Stage = "request"
)

// InvalidError reports a malformed, incomplete or misattributed completion.
type InvalidError struct {
	Stage  Stage
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid completion (%s): %s", e.Stage, e.Reason)
}

// Is makes errors.Is(err, ErrInvalid) hold.
func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalid
}

func invalid(stage Stage, format string, args ...any) error {
	return &InvalidError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}

// Schema lists the fields a decoded object must carry.
type Schema struct {
	// Required fields must be present and not null.
	Required []string
	// NonEmpty fields must additionally not be blank strings.
	NonEmpty []string
}

// Extract returns the JSON object embedded in text: the body of the first
// fenced block that holds one, otherwise the first balanced {...} object
// anywhere in text.
func Extract(text string) (string, error) {
	for _, body := range fencedBlocks(text) {
		if obj, ok := balancedObject(body); ok {
			return obj, nil
		}
	}
	if obj, ok := balancedObject(text); ok {
		return obj, nil
	}
	return "", invalid(StageExtract, "no JSON object found")
}

// fencedBlocks returns the bodies of the complete ``` blocks in text, in order.
func fencedBlocks(text string) []string {
	const fence = "```"
	var out []string
	for {
		start := strings.Index(text, fence)
		if start < 0 {
			return out
		}
		rest := text[start+len(fence):]
		// Skip the info string ("json") up to the end of the line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.Contains(rest[:nl], "{") {
			rest = rest[nl+1:]
		}
		end := strings.Index(rest, fence)
		if end < 0 {
			return out
		}
		out = append(out, rest[:end])
		text = rest[end+len(fence):]
	}
}

// balancedObject finds the first '{' and its matching '}', ignoring braces
// inside JSON strings.
func balancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// Parse extracts and strictly decodes the object in text, checking schema.
func Parse(text string, schema Schema) (map[string]any, error) {
	raw, err := Extract(text)
	if err != nil {
		return nil, err
	}
	return decodeObject([]byte(raw), schema)
}

// DecodeInto parses text against schema and unmarshals the object into dst.
func DecodeInto(text string, schema Schema, dst any) error {
	raw, err := Extract(text)
	if err != nil {
		return err
	}
	if _, err := decodeObject([]byte(raw), schema); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return invalid(StageDecode, "%v", err)
	}
	return nil
}

func decodeObject(raw []byte, schema Schema) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, invalid(StageDecode, "%v", err)
	}
	if obj == nil {
		return nil, invalid(StageDecode, "not a JSON object")
	}
	for _, f := range schema.Required {
		if v, ok := obj[f]; !ok || v == nil {
			return nil, invalid(StageSchema, "missing field %q", f)
		}
	}
	for _, f := range schema.NonEmpty {
		s, ok := obj[f].(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, invalid(StageSchema, "field %q must be a non-empty string", f)
		}
	}
	return obj, nil
}
