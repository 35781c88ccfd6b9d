package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrUnparseable is returned when model text cannot be turned into a Plan.
var ErrUnparseable = errors.New("plan: unparseable output")

// Parse decodes a plan from model text. Code fences and surrounding prose
// are stripped; malformed JSON gets one repair attempt. A JSON object with
// none of the plan fields is not a plan.
func Parse(text string) (Plan, error) {
	body := extractJSON(text)
	if body == "" {
		return Plan{}, fmt.Errorf("%w: empty output", ErrUnparseable)
	}

	p, err := decode(body)
	if err == nil {
		return p, nil
	}
	if errors.Is(err, errNoPlanFields) {
		return Plan{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	repaired, repairErr := jsonrepair.JSONRepair(body)
	if repairErr != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	p, err = decode(repaired)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return p, nil
}

var errNoPlanFields = errors.New("no objects, modifications or message")

func decode(body string) (Plan, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return Plan{}, err
	}
	_, hasObjects := fields["objects"]
	_, hasMods := fields["modifications"]
	_, hasMessage := fields["message"]
	if !hasObjects && !hasMods && !hasMessage {
		return Plan{}, errNoPlanFields
	}
	var p Plan
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	if end := strings.LastIndexByte(s, '}'); end > start {
		return s[start : end+1]
	}
	// Truncated object; leave it for the repair pass.
	return s[start:]
}
