package schema

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/acksell/ddbmold/dynamodb/record"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidSpec is wrapped by every validation failure.
var ErrInvalidSpec = errors.New("invalid table specification")

// ValidationError reports the first rule a document violates.
type ValidationError struct {
	// Field is the document path, e.g. "global_indexes[0].hashkey.type".
	Field string
	Rule  string
	Param string
}

func (e *ValidationError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s: field %s failed rule %q", ErrInvalidSpec, e.Field, e.Rule)
	}
	return fmt.Sprintf("%s: field %s failed rule %q (%s)", ErrInvalidSpec, e.Field, e.Rule, e.Param)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidSpec
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the document against the structural rules carried by the
// struct tags, then against the rules that span fields.
func Validate(spec *TableSpec) error {
	if spec == nil {
		return &ValidationError{Field: "schema", Rule: "required"}
	}
	if err := validate.Struct(spec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{Field: fieldPath(fe.Namespace()), Rule: fe.Tag(), Param: fe.Param()}
		}
		return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}
	return validateSemantics(spec)
}

// fieldPath drops the root type name from a validator namespace.
func fieldPath(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

func validateSemantics(spec *TableSpec) error {
	seen := make(map[string]bool)
	for i, idx := range spec.Indexes {
		path := fmt.Sprintf("indexes[%d]", i)
		if seen[idx.Name] {
			return &ValidationError{Field: path + ".name", Rule: "unique", Param: idx.Name}
		}
		seen[idx.Name] = true
		if err := validateAttribute(path+".attribute", idx.Attribute); err != nil {
			return err
		}
		if err := validateFields(path+".fields", idx.Fields); err != nil {
			return err
		}
	}
	for i, idx := range spec.GlobalIndexes {
		path := fmt.Sprintf("global_indexes[%d]", i)
		if seen[idx.Name] {
			return &ValidationError{Field: path + ".name", Rule: "unique", Param: idx.Name}
		}
		seen[idx.Name] = true
		if err := validateAttribute(path+".attribute", idx.Attribute); err != nil {
			return err
		}
		if idx.RangeKey != nil && *idx.RangeKey != idx.Attribute.Key() {
			return &ValidationError{Field: path + ".rangekey", Rule: "eqfield", Param: "attribute"}
		}
		// An on-demand table cannot carry provisioned global indexes.
		if idx.Throughput != nil && spec.Throughput == nil {
			return &ValidationError{Field: path + ".throughput", Rule: "excluded_without", Param: "throughput"}
		}
		if err := validateFields(path+".fields", idx.Fields); err != nil {
			return err
		}
	}
	return nil
}

func validateAttribute(path string, attr IndexAttribute) error {
	if attr.Type != Number {
		return nil
	}
	for _, from := range slices.Sorted(maps.Keys(attr.Translation)) {
		if to := attr.Translation[from]; !record.IsNumber(to.Text) {
			return &ValidationError{Field: path + ".translation." + from, Rule: "numeric", Param: to.Text}
		}
	}
	if attr.Default != nil && !record.IsNumber(attr.Default.Text) {
		return &ValidationError{Field: path + ".default", Rule: "numeric", Param: attr.Default.Text}
	}
	return nil
}

func validateFields(path string, fields []string) error {
	for i, f := range fields {
		if f == "" {
			return &ValidationError{Field: fmt.Sprintf("%s[%d]", path, i), Rule: "required"}
		}
	}
	return nil
}
