// Package datatypes defines shared enums (e.g. interaction source types).
package datatypes

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidSourceType is returned when a source type string is not recognized.
var ErrInvalidSourceType = errors.New("invalid interaction source type")

// SourceType identifies which learning interaction produced a content vector.
// Use String() to get the string representation for the database and job payloads.
type SourceType uint8

// Source type constants; string form is given in sourceTypeMap.
const (
	SourceQuizAnalysis SourceType = iota + 1
	SourceTermDeepDive
	SourceHomeworkReport
	SourceTopicExploration
)

// sourceTypeMap is the single source of truth for valid source type strings.
var sourceTypeMap = map[string]SourceType{
	"quiz_analysis":     SourceQuizAnalysis,
	"term_deep_dive":    SourceTermDeepDive,
	"homework_report":   SourceHomeworkReport,
	"topic_exploration": SourceTopicExploration,
}

var reverseSourceTypeMap map[SourceType]string

func init() {
	reverseSourceTypeMap = make(map[SourceType]string, len(sourceTypeMap))
	for str, st := range sourceTypeMap {
		reverseSourceTypeMap[st] = str
	}
}

// String returns the string representation of a SourceType, or "" when invalid.
func (st SourceType) String() string {
	return reverseSourceTypeMap[st]
}

// Valid reports whether st is a known source type.
func (st SourceType) Valid() bool {
	_, ok := reverseSourceTypeMap[st]

	return ok
}

// ParseSourceType converts a string to a SourceType.
func ParseSourceType(s string) (SourceType, error) {
	st, ok := sourceTypeMap[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSourceType, s)
	}

	return st, nil
}

// MarshalJSON encodes the source type as its string form.
func (st SourceType) MarshalJSON() ([]byte, error) {
	if !st.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSourceType, st)
	}

	return json.Marshal(st.String())
}

// UnmarshalJSON decodes the string form of a source type.
func (st *SourceType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("source type: %w", err)
	}

	parsed, err := ParseSourceType(s)
	if err != nil {
		return err
	}

	*st = parsed

	return nil
}
