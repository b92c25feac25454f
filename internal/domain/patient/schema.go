package patient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("path_segment", isPathSegment)
	return v
}

// isPathSegment reports whether an id can be addressed as /view/{id} and
// /edit/{id} once the request passes path sanitizing.
func isPathSegment(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.Contains(s, "..") || strings.ContainsAny(s, "/%") {
		return false
	}
	return !strings.ContainsFunc(s, unicode.IsControl)
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindNumber
)

type fieldSpec struct {
	name string
	kind fieldKind
}

// patientFields is the canonical field order used for decoding and for
// ordering reported issues.
var patientFields = []fieldSpec{
	{"id", kindString},
	{"name", kindString},
	{"city", kindString},
	{"gender", kindString},
	{"age", kindInt},
	{"height", kindNumber},
	{"weight", kindNumber},
}

// mutableFields are the fields an update may touch.
var mutableFields = patientFields[1:]

var fieldOrder = func() map[string]int {
	m := make(map[string]int, len(patientFields))
	for i, f := range patientFields {
		m[f.name] = i
	}
	return m
}()

func (k fieldKind) typeIssue(field string) Issue {
	switch k {
	case kindInt:
		return newIssue(field, "int_type", "Input should be a valid integer")
	case kindNumber:
		return newIssue(field, "float_type", "Input should be a valid number")
	default:
		return newIssue(field, "string_type", "Input should be a valid string")
	}
}

func (p *Patient) fieldPtr(name string) any {
	switch name {
	case "id":
		return &p.ID
	case "name":
		return &p.Name
	case "city":
		return &p.City
	case "gender":
		return &p.Gender
	case "age":
		return &p.Age
	case "height":
		return &p.Height
	case "weight":
		return &p.Weight
	}
	return nil
}

// Validate checks every field constraint of a full record.
func Validate(p *Patient) error {
	if issues := checkStruct(p); len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// ParsePatient decodes and validates a full patient body. Every field is
// required; all failing fields are reported together.
func ParsePatient(raw []byte) (*Patient, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	p := &Patient{}
	var issues []Issue
	reported := make(map[string]bool)
	for _, f := range patientFields {
		v, ok := obj[f.name]
		if !ok {
			issues = append(issues, newIssue(f.name, "missing", "Field required"))
			reported[f.name] = true
			continue
		}
		if is := decodeValue(f, v, p.fieldPtr(f.name)); is != nil {
			issues = append(issues, *is)
			reported[f.name] = true
		}
	}
	for _, is := range checkStruct(p) {
		if !reported[is.Field()] {
			issues = append(issues, is)
		}
	}
	if len(issues) > 0 {
		sortIssues(issues)
		return nil, &ValidationError{Issues: issues}
	}
	return p, nil
}

func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, &ValidationError{Issues: []Issue{
			newIssue("", "model_attributes_type", "Input should be a valid JSON object"),
		}}
	}
	return obj, nil
}

// decodeValue unmarshals one field. An explicit null is a type error: null
// never stands in for a value.
func decodeValue(f fieldSpec, raw json.RawMessage, dst any) *Issue {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		is := f.kind.typeIssue(f.name)
		return &is
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		is := f.kind.typeIssue(f.name)
		return &is
	}
	return nil
}

func checkStruct(v any) []Issue {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{newIssue("", "value_error", err.Error())}
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, issueFor(fe))
	}
	return issues
}

func issueFor(fe validator.FieldError) Issue {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return newIssue(field, "missing", "Field required")
	case "min":
		return newIssue(field, "string_too_short", fmt.Sprintf("String should have at least %s character", fe.Param()))
	case "gt":
		return newIssue(field, "greater_than", "Input should be greater than "+fe.Param())
	case "lte":
		return newIssue(field, "less_than_equal", "Input should be less than or equal to "+fe.Param())
	case "path_segment":
		return newIssue(field, "string_pattern_mismatch", "String should not contain '..', '/', '%' or control characters")
	case "oneof":
		return newIssue(field, "enum", "Input should be "+quoteChoices(strings.Fields(fe.Param())))
	default:
		return newIssue(field, "value_error", fe.Error())
	}
}

func quoteChoices(choices []string) string {
	quoted := make([]string, len(choices))
	for i, c := range choices {
		quoted[i] = "'" + c + "'"
	}
	if len(quoted) < 2 {
		return strings.Join(quoted, "")
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}

func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issueRank(issues[i]) < issueRank(issues[j])
	})
}

func issueRank(is Issue) int {
	if r, ok := fieldOrder[is.Field()]; ok {
		return r
	}
	return -1
}
