package mold

import (
	"testing"

	"github.com/acksell/ddbmold/dynamodb/record"
	"github.com/acksell/ddbmold/dynamodb/schema"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, doc string) *schema.TableSpec {
	t.Helper()
	spec, err := schema.Parse([]byte(doc), schema.FormatJSON)
	require.NoError(t, err)
	return spec
}

const statusSpec = `{
	"schema": {"hashkey": {"name": "id", "type": "STRING"}},
	"indexes": [{
		"name": "by_status",
		"attribute": {"name": "status", "type": "NUMBER", "translation": {"active": 1, "inactive": 0}, "default": -1}
	}],
	"global_indexes": [{
		"name": "by_owner",
		"hashkey": "tenant",
		"attribute": {"name": "owner", "type": "STRING"}
	}],
	"transformations": [
		{"name": "scores", "type": "NUMBER_SET"},
		{"name": "labels", "type": "STRING_SET"},
		{"name": "age", "type": "NUMBER"},
		{"name": "zip", "type": "STRING"},
		{"name": "legacy_flag", "type": "OBSOLETE"}
	]
}`

func TestMoldEndToEnd(t *testing.T) {
	t.Run("bad number falls back to default and obsolete field is dropped", func(t *testing.T) {
		spec := mustParse(t, `{
			"schema": {"hashkey": {"name": "id", "type": "STRING"}},
			"indexes": [{"name": "by_amount", "attribute": {"name": "amount", "type": "NUMBER", "default": 0}}],
			"transformations": [{"name": "legacy_flag", "type": "OBSOLETE"}]
		}`)
		in := record.Record{
			"id":          record.S("42"),
			"amount":      record.S("bad"),
			"legacy_flag": record.S("x"),
		}
		got, err := New(spec).Mold(in)
		require.NoError(t, err)
		require.Equal(t, record.Record{
			"id":     record.S("42"),
			"amount": record.N("0"),
		}, got)
	})
	t.Run("list becomes deduplicated set", func(t *testing.T) {
		spec := mustParse(t, `{"schema": {"hashkey": {"name": "id", "type": "STRING"}}}`)
		in := record.Record{
			"id":   record.S("7"),
			"tags": record.L(record.S("a"), record.S("b"), record.S("a")),
		}
		got, err := New(spec).Mold(in)
		require.NoError(t, err)
		require.Equal(t, record.Record{
			"id":   record.S("7"),
			"tags": record.SS("a", "b"),
		}, got)
	})
}

func TestMoldDoesNotMutateInput(t *testing.T) {
	spec := mustParse(t, statusSpec)
	in := record.Record{
		"id":          record.S("1"),
		"status":      record.S("active"),
		"legacy_flag": record.S("x"),
	}
	_, err := New(spec).Mold(in)
	require.NoError(t, err)
	require.Equal(t, record.S("active"), in["status"])
	require.Contains(t, in, "legacy_flag")
}

func TestNormalizeLists(t *testing.T) {
	spec := mustParse(t, `{"schema": {"hashkey": {"name": "id", "type": "STRING"}}}`)
	in := record.Record{
		"id":      record.S("1"),
		"nums":    record.L(record.N("10"), record.N("2"), record.N("2.0")),
		"bins":    record.L(record.B([]byte("b")), record.B([]byte("a"))),
		"empty":   record.L(),
		"mixed":   record.L(record.S("a"), record.N("1")),
		"docs":    record.L(record.M(record.Record{"k": record.S("v")})),
		"nested":  record.M(record.Record{"inner": record.L(record.S("x"))}),
		"already": record.SS("z"),
	}
	got, err := New(spec).Mold(in)
	require.NoError(t, err)
	assert.Equal(t, record.NS("2", "10"), got["nums"])
	assert.Equal(t, &types.AttributeValueMemberBS{Value: [][]byte{[]byte("a"), []byte("b")}}, got["bins"])
	assert.Equal(t, in["empty"], got["empty"])
	assert.Equal(t, in["mixed"], got["mixed"])
	assert.Equal(t, in["docs"], got["docs"])
	assert.Equal(t, in["nested"], got["nested"])
	assert.Equal(t, in["already"], got["already"])
}

func TestIndexAttributeCoercion(t *testing.T) {
	spec := mustParse(t, statusSpec)
	m := New(spec)
	tests := []struct {
		name string
		in   types.AttributeValue
		want types.AttributeValue
	}{
		{"translated", record.S("active"), record.N("1")},
		{"translated zero", record.S("inactive"), record.N("0")},
		{"unknown falls back to default", record.S("paused"), record.N("-1")},
		{"numeric unknown falls back to default", record.N("7"), record.N("-1")},
		{"translation output is kept", record.N("1"), record.N("1")},
		{"default is kept", record.N("-1.0"), record.N("-1.0")},
		{"unhashable falls back to default", record.SS("a"), record.N("-1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Mold(record.Record{"id": record.S("1"), "status": tt.in})
			require.NoError(t, err)
			require.Equal(t, tt.want, got["status"])
		})
	}
	t.Run("absent attribute takes the default", func(t *testing.T) {
		got, err := m.Mold(record.Record{"id": record.S("1")})
		require.NoError(t, err)
		require.Equal(t, record.N("-1"), got["status"])
		require.NotContains(t, got, "owner")
	})
	t.Run("string attribute formats scalars", func(t *testing.T) {
		got, err := m.Mold(record.Record{"id": record.S("1"), "owner": record.N("12")})
		require.NoError(t, err)
		require.Equal(t, record.S("12"), got["owner"])

		got, err = m.Mold(record.Record{"id": record.S("1"), "owner": record.Bool(true)})
		require.NoError(t, err)
		require.Equal(t, record.S("true"), got["owner"])
	})
	t.Run("string attribute without default fails on documents", func(t *testing.T) {
		_, err := m.Mold(record.Record{"id": record.S("1"), "owner": record.M(record.Record{})})
		var cerr *CoercionError
		require.ErrorAs(t, err, &cerr)
		require.Equal(t, "owner", cerr.Field)
		require.Equal(t, schema.String, cerr.Want)
	})
}

func TestTranslationWithoutDefault(t *testing.T) {
	spec := mustParse(t, `{
		"schema": {"hashkey": {"name": "id", "type": "STRING"}},
		"indexes": [{"name": "i", "attribute": {"name": "level", "type": "NUMBER", "translation": {"low": 1, "high": 3}}}]
	}`)
	m := New(spec)

	got, err := m.Mold(record.Record{"id": record.S("1"), "level": record.S("high")})
	require.NoError(t, err)
	require.Equal(t, record.N("3"), got["level"])

	got, err = m.Mold(record.Record{"id": record.S("1"), "level": record.S("2")})
	require.NoError(t, err)
	require.Equal(t, record.N("2"), got["level"])

	_, err = m.Mold(record.Record{"id": record.S("1"), "level": record.S("medium")})
	var cerr *CoercionError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "level", cerr.Field)
	require.ErrorIs(t, err, errNotNumber)
	require.Contains(t, err.Error(), `"medium"`)
}

func TestBinaryAttributeIsNotCoerced(t *testing.T) {
	spec := mustParse(t, `{
		"schema": {"hashkey": {"name": "id", "type": "STRING"}},
		"indexes": [{"name": "i", "attribute": {"name": "blob", "type": "BINARY"}}]
	}`)
	in := record.Record{"id": record.S("1"), "blob": record.S("not binary")}
	got, err := New(spec).Mold(in)
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestTransformations(t *testing.T) {
	m := New(mustParse(t, statusSpec))
	tests := []struct {
		name  string
		field string
		in    types.AttributeValue
		want  types.AttributeValue
	}{
		{"number set from json text", "scores", record.S(`[3, "1", 2, 3]`), record.NS("1", "2", "3")},
		{"number set from scalar", "scores", record.S("5"), record.NS("5")},
		{"number set from number", "scores", record.N("5"), record.NS("5")},
		{"number set from string set", "scores", record.SS("2", "10"), record.NS("2", "10")},
		{"number set from list", "scores", record.L(record.S("4"), record.N("4.0")), record.NS("4")},
		{"string set from json text", "labels", record.S(`["b", 1, "a"]`), record.SS("1", "a", "b")},
		{"string set from plain text", "labels", record.S("solo"), record.SS("solo")},
		{"string set from number set", "labels", record.NS("1", "2"), record.SS("1", "2")},
		{"string set from broken json", "labels", record.S("[oops"), record.SS("[oops")},
		{"number from text", "age", record.S("31"), record.N("31")},
		{"number from loose text", "age", record.S("+2"), record.N("2")},
		{"loose number is rewritten", "age", record.N("5."), record.N("5")},
		{"number set from loose text", "scores", record.S(`[".5", "+1"]`), record.NS("0.5", "1")},
		{"string from number", "zip", record.N("12345"), record.S("12345")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Mold(record.Record{"id": record.S("1"), tt.field: tt.in})
			require.NoError(t, err)
			require.Equal(t, tt.want, got[tt.field])
		})
	}
	t.Run("empty collection removes the field", func(t *testing.T) {
		got, err := m.Mold(record.Record{"id": record.S("1"), "scores": record.S("[]")})
		require.NoError(t, err)
		require.NotContains(t, got, "scores")
	})
	t.Run("absent fields are left alone", func(t *testing.T) {
		got, err := m.Mold(record.Record{"id": record.S("1")})
		require.NoError(t, err)
		require.Equal(t, record.Record{"id": record.S("1"), "status": record.N("-1")}, got)
	})
	t.Run("obsolete removes the field", func(t *testing.T) {
		got, err := m.Mold(record.Record{"id": record.S("1"), "legacy_flag": record.Bool(true)})
		require.NoError(t, err)
		require.NotContains(t, got, "legacy_flag")
	})
	t.Run("bad number fails the record", func(t *testing.T) {
		_, err := m.Mold(record.Record{"id": record.S("1"), "age": record.S("old")})
		var cerr *CoercionError
		require.ErrorAs(t, err, &cerr)
		require.Equal(t, "age", cerr.Field)
		require.Equal(t, schema.Number, cerr.Want)
	})
	t.Run("bad set element fails the record", func(t *testing.T) {
		_, err := m.Mold(record.Record{"id": record.S("1"), "scores": record.S(`[1, "x"]`)})
		var cerr *CoercionError
		require.ErrorAs(t, err, &cerr)
		require.Contains(t, err.Error(), "element 1")
	})
}

func TestMoldedNumbersArchive(t *testing.T) {
	m := New(mustParse(t, statusSpec))
	got, err := m.Mold(record.Record{"id": record.S("x"), "age": record.S(".5")})
	require.NoError(t, err)
	require.Equal(t, record.N("0.5"), got["age"])

	line, err := record.MarshalJSON(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "x", "age": 0.5, "status": -1}`, string(line))
}

func TestMoldIsIdempotent(t *testing.T) {
	m := New(mustParse(t, statusSpec))
	inputs := []record.Record{
		{"id": record.S("1"), "status": record.S("active"), "owner": record.N("9")},
		{"id": record.S("2"), "status": record.S("what"), "scores": record.S("[1, 1, 2]"), "labels": record.L(record.S("x"), record.S("y"))},
		{"id": record.S("3"), "tags": record.L(record.N("3"), record.N("1")), "age": record.S("5"), "zip": record.N("7"), "legacy_flag": record.S("x")},
		{"id": record.S("4"), "status": record.N("0"), "labels": record.SS("b", "a")},
	}
	for _, in := range inputs {
		once, err := m.Mold(in)
		require.NoError(t, err)
		twice, err := m.Mold(once)
		require.NoError(t, err)
		require.Equal(t, once, twice)
	}
}
