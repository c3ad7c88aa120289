// Package mold reshapes loosely typed records into the types a table
// specification declares for its index attributes and transformed fields.
package mold

import (
	"fmt"

	"github.com/acksell/ddbmold/dynamodb/record"
	"github.com/acksell/ddbmold/dynamodb/schema"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Molder applies one validated specification to records.
// It holds no mutable state and is safe for concurrent use.
type Molder struct {
	spec *schema.TableSpec
}

func New(spec *schema.TableSpec) *Molder {
	return &Molder{spec: spec}
}

// Mold returns a new record shaped after the specification. The input is
// never modified. Steps run in order: lists of scalars become sets, index
// attributes are coerced (local indexes, then global indexes), then
// transformations are applied in declaration order.
func (m *Molder) Mold(r record.Record) (record.Record, error) {
	out := record.Clone(r)
	normalizeLists(out)
	for _, idx := range m.spec.Indexes {
		if err := coerceIndexAttribute(out, idx.Attribute); err != nil {
			return nil, err
		}
	}
	for _, idx := range m.spec.GlobalIndexes {
		if err := coerceIndexAttribute(out, idx.Attribute); err != nil {
			return nil, err
		}
	}
	for _, tr := range m.spec.Transformations {
		if err := transform(out, tr); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// normalizeLists turns every top-level list whose elements are all strings,
// all numbers or all binaries into the matching set.
func normalizeLists(r record.Record) {
	for name, av := range r {
		l, ok := av.(*types.AttributeValueMemberL)
		if !ok || len(l.Value) == 0 {
			continue
		}
		if set := listToSet(l.Value); set != nil {
			r[name] = set
		}
	}
}

func listToSet(elems []types.AttributeValue) types.AttributeValue {
	switch elems[0].(type) {
	case *types.AttributeValueMemberS:
		values := make([]string, 0, len(elems))
		for _, el := range elems {
			s, ok := el.(*types.AttributeValueMemberS)
			if !ok {
				return nil
			}
			values = append(values, s.Value)
		}
		return record.SS(record.SortedStrings(values)...)
	case *types.AttributeValueMemberN:
		values := make([]string, 0, len(elems))
		for _, el := range elems {
			n, ok := el.(*types.AttributeValueMemberN)
			if !ok {
				return nil
			}
			values = append(values, n.Value)
		}
		return record.NS(record.SortedNumbers(values)...)
	case *types.AttributeValueMemberB:
		values := make([][]byte, 0, len(elems))
		for _, el := range elems {
			b, ok := el.(*types.AttributeValueMemberB)
			if !ok {
				return nil
			}
			values = append(values, b.Value)
		}
		return &types.AttributeValueMemberBS{Value: record.SortedBinaries(values)}
	}
	return nil
}

func coerceIndexAttribute(r record.Record, attr schema.IndexAttribute) error {
	coerce, ok := scalarCoercions[attr.Type]
	if !ok {
		// BINARY attributes are written as they are.
		return nil
	}
	v, ok := r[attr.Name]
	if !ok {
		if attr.Default != nil {
			r[attr.Name] = fromScalar(attr.Type, *attr.Default)
		}
		return nil
	}

	if len(attr.Translation) > 0 {
		if to, hit := attr.Translation[scalarText(v)]; hit && isScalar(v) {
			r[attr.Name] = fromScalar(attr.Type, to)
			return nil
		}
		if isTranslated(attr, v) {
			return nil
		}
		if attr.Default != nil {
			r[attr.Name] = fromScalar(attr.Type, *attr.Default)
			return nil
		}
	}

	c, err := coerce(v)
	if err != nil {
		if attr.Default != nil {
			r[attr.Name] = fromScalar(attr.Type, *attr.Default)
			return nil
		}
		return &CoercionError{Field: attr.Name, Want: attr.Type, Value: v, Err: err}
	}
	r[attr.Name] = c
	return nil
}

// isTranslated reports whether v is already one of the attribute's
// translation outputs or its default.
func isTranslated(attr schema.IndexAttribute, v types.AttributeValue) bool {
	for _, to := range attr.Translation {
		if sameValue(attr.Type, v, fromScalar(attr.Type, to)) {
			return true
		}
	}
	return attr.Default != nil && sameValue(attr.Type, v, fromScalar(attr.Type, *attr.Default))
}

func isScalar(v types.AttributeValue) bool {
	switch v.(type) {
	case *types.AttributeValueMemberS, *types.AttributeValueMemberN:
		return true
	}
	return false
}

func transform(r record.Record, tr schema.Transformation) error {
	v, ok := r[tr.Name]
	if !ok {
		return nil
	}
	f, ok := transformations[tr.Type]
	if !ok {
		return fmt.Errorf("field %q: unsupported transformation %s", tr.Name, tr.Type)
	}
	out, err := f(v)
	if err != nil {
		return &CoercionError{Field: tr.Name, Want: tr.Type, Value: v, Err: err}
	}
	if out == nil {
		delete(r, tr.Name)
		return nil
	}
	r[tr.Name] = out
	return nil
}
