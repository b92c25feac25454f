package patient

import (
	"errors"
	"strings"
)

var (
	ErrNotFound = errors.New("patient not found")
	ErrConflict = errors.New("patient already exists")
)

// Issue describes one rejected input field. Loc is the path to the field,
// starting with "body".
type Issue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func newIssue(field, typ, msg string) Issue {
	loc := []string{"body"}
	if field != "" {
		loc = append(loc, field)
	}
	return Issue{Loc: loc, Msg: msg, Type: typ}
}

// Field returns the JSON name of the rejected field, or "" when the issue
// concerns the body as a whole.
func (i Issue) Field() string {
	if len(i.Loc) < 2 {
		return ""
	}
	return i.Loc[len(i.Loc)-1]
}

// ValidationError is returned when a request body does not satisfy the
// patient schema.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		name := is.Field()
		if name == "" {
			name = "body"
		}
		parts = append(parts, name+": "+is.Msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields lists the names of the fields that failed, in report order.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		out = append(out, is.Field())
	}
	return out
}

// InvalidArgumentError reports a query parameter outside its allowed set.
type InvalidArgumentError struct {
	Param string
	Msg   string
}

func (e *InvalidArgumentError) Error() string {
	return e.Msg
}
