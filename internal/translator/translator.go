// Package translator turns free-text schedule descriptions into cron
// expressions by delegating to an external translation collaborator.
package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ErrInvalidFormat is returned when the collaborator's output is not a
// result object or carries no cron expression.
var ErrInvalidFormat = errors.New("invalid schedule format")

// ErrTimeout is returned when the collaborator does not answer in time
var ErrTimeout = errors.New("schedule translation timed out")

// ErrUnavailable is returned when the collaborator could not be run at all
var ErrUnavailable = errors.New("schedule translator unavailable")

// Result is a successful translation
type Result struct {
	Cron        string
	Description string
}

// ReportedError carries the error text the collaborator itself reported
type ReportedError struct {
	Message string
}

func (e *ReportedError) Error() string {
	return e.Message
}

// Translator converts schedule text into a cron expression
type Translator interface {
	Translate(ctx context.Context, scheduleText string) (*Result, error)
}

// wireResult is the collaborator's output. Every field is optional.
type wireResult struct {
	Cron        *string `json:"cron"`
	Description *string `json:"description"`
	Error       *string `json:"error"`
}

// Parse decodes collaborator output. Anything that is not a JSON object,
// or an object without a usable cron field, is rejected.
func Parse(raw []byte) (*Result, error) {
	body := extractObject(string(raw))
	if body == "" {
		return nil, fmt.Errorf("%w: empty output", ErrInvalidFormat)
	}

	var out wireResult
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	expr := ""
	if out.Cron != nil {
		expr = strings.Join(strings.Fields(*out.Cron), " ")
	}
	if expr == "" {
		if out.Error != nil && strings.TrimSpace(*out.Error) != "" {
			return nil, &ReportedError{Message: strings.TrimSpace(*out.Error)}
		}
		return nil, fmt.Errorf("%w: no cron field", ErrInvalidFormat)
	}

	if _, err := cron.ParseStandard(expr); err != nil {
		return nil, fmt.Errorf("%w: cron %q: %v", ErrInvalidFormat, expr, err)
	}

	result := &Result{Cron: expr}
	if out.Description != nil {
		result.Description = strings.TrimSpace(*out.Description)
	}
	return result, nil
}

// extractObject strips anything around the outermost JSON object, such as
// markdown fences or interpreter warnings.
func extractObject(s string) string {
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	if start == -1 {
		return s
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
