package schema

import (
	"testing"

	"github.com/acksell/ddbmold/dynamodb/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		spec, err := Load("testdata/users.json")
		require.NoError(t, err)
		require.Equal(t, &Key{Name: "id", Type: String}, spec.Schema.HashKey)
		require.Equal(t, &Key{Name: "created", Type: Number}, spec.Schema.RangeKey)
		require.Len(t, spec.Indexes, 1)
		attr := spec.Indexes[0].Attribute
		require.Equal(t, Scalar{Text: "1", Numeric: true}, attr.Translation["active"])
		require.Equal(t, &Scalar{Text: "0", Numeric: true}, attr.Default)
		require.NotNil(t, spec.Indexes[0].Fields)
		require.Empty(t, spec.Indexes[0].Fields)

		// bare string keys name STRING attributes
		require.Equal(t, &Key{Name: "country", Type: String}, spec.GlobalIndexes[0].HashKey)
		require.Equal(t, []Transformation{
			{Name: "tags", Type: StringSet},
			{Name: "legacy_flag", Type: Obsolete},
		}, spec.Transformations)
	})
	t.Run("yaml matches json", func(t *testing.T) {
		fromJSON, err := Load("testdata/users.json")
		require.NoError(t, err)
		fromYAML, err := Load("testdata/users.yaml")
		require.NoError(t, err)
		require.Equal(t, fromJSON, fromYAML)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := Load("testdata/nope.json")
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrInvalidSpec)
	})
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
		rule  string
	}{
		{
			name:  "missing hashkey",
			doc:   `{"schema": {}}`,
			field: "schema.hashkey",
			rule:  "required",
		},
		{
			name:  "empty document",
			doc:   `{}`,
			field: "schema.hashkey",
			rule:  "required",
		},
		{
			name:  "unknown key type",
			doc:   `{"schema": {"hashkey": {"name": "id", "type": "STRING_SET"}}}`,
			field: "schema.hashkey.type",
			rule:  "oneof",
		},
		{
			name:  "unknown transformation type",
			doc:   `{"schema": {"hashkey": "id"}, "transformations": [{"name": "a", "type": "DATE"}]}`,
			field: "transformations[0].type",
			rule:  "oneof",
		},
		{
			name:  "index attribute without name",
			doc:   `{"schema": {"hashkey": "id"}, "indexes": [{"name": "i", "attribute": {"type": "STRING"}}]}`,
			field: "indexes[0].attribute.name",
			rule:  "required",
		},
		{
			name:  "global index without hashkey",
			doc:   `{"schema": {"hashkey": "id"}, "global_indexes": [{"name": "g", "attribute": {"name": "a", "type": "STRING"}}]}`,
			field: "global_indexes[0].hashkey",
			rule:  "required",
		},
		{
			name:  "zero throughput",
			doc:   `{"schema": {"hashkey": "id"}, "throughput": {"read": 0, "write": 1}}`,
			field: "throughput.read",
			rule:  "gte",
		},
		{
			name:  "non numeric default",
			doc:   `{"schema": {"hashkey": "id"}, "indexes": [{"name": "i", "attribute": {"name": "a", "type": "NUMBER", "default": "none"}}]}`,
			field: "indexes[0].attribute.default",
			rule:  "numeric",
		},
		{
			name:  "non numeric translation",
			doc:   `{"schema": {"hashkey": "id"}, "indexes": [{"name": "i", "attribute": {"name": "a", "type": "NUMBER", "translation": {"x": "y"}}}]}`,
			field: "indexes[0].attribute.translation.x",
			rule:  "numeric",
		},
		{
			name: "duplicate index name",
			doc: `{"schema": {"hashkey": "id"},
				"indexes": [{"name": "i", "attribute": {"name": "a", "type": "STRING"}}],
				"global_indexes": [{"name": "i", "hashkey": "b", "attribute": {"name": "a", "type": "STRING"}}]}`,
			field: "global_indexes[0].name",
			rule:  "unique",
		},
		{
			name: "global rangekey disagrees with attribute",
			doc: `{"schema": {"hashkey": "id"},
				"global_indexes": [{"name": "g", "hashkey": "b", "rangekey": {"name": "c", "type": "STRING"}, "attribute": {"name": "a", "type": "STRING"}}]}`,
			field: "global_indexes[0].rangekey",
			rule:  "eqfield",
		},
		{
			name: "global throughput on an on-demand table",
			doc: `{"schema": {"hashkey": "id"},
				"global_indexes": [{"name": "g", "hashkey": "b", "attribute": {"name": "a", "type": "STRING"}, "throughput": {"read": 1, "write": 1}}]}`,
			field: "global_indexes[0].throughput",
			rule:  "excluded_without",
		},
		{
			name:  "empty include field",
			doc:   `{"schema": {"hashkey": "id"}, "indexes": [{"name": "i", "attribute": {"name": "a", "type": "STRING"}, "fields": ["x", ""]}]}`,
			field: "indexes[0].fields[1]",
			rule:  "required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatJSON)
			require.ErrorIs(t, err, ErrInvalidSpec)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.rule, verr.Rule)
		})
	}
}

func TestParseStrictDecoding(t *testing.T) {
	t.Run("unknown top level field", func(t *testing.T) {
		_, err := Parse([]byte(`{"schema": {"hashkey": "id"}, "extra": true}`), FormatJSON)
		require.ErrorIs(t, err, ErrInvalidSpec)
	})
	t.Run("unknown key field", func(t *testing.T) {
		_, err := Parse([]byte(`{"schema": {"hashkey": {"name": "id", "type": "STRING", "size": 3}}}`), FormatJSON)
		require.ErrorIs(t, err, ErrInvalidSpec)
	})
	t.Run("unknown yaml field", func(t *testing.T) {
		_, err := Parse([]byte("schema:\n  hashkey: id\nextra: 1\n"), FormatYAML)
		require.ErrorIs(t, err, ErrInvalidSpec)
	})
	t.Run("unknown yaml key field", func(t *testing.T) {
		_, err := Parse([]byte("schema:\n  hashkey:\n    name: id\n    kind: S\n"), FormatYAML)
		require.ErrorIs(t, err, ErrInvalidSpec)
	})
	t.Run("boolean default", func(t *testing.T) {
		_, err := Parse([]byte(`{"schema": {"hashkey": "id"}, "indexes": [{"name": "i", "attribute": {"name": "a", "type": "STRING", "default": true}}]}`), FormatJSON)
		require.ErrorIs(t, err, ErrInvalidSpec)
	})
	t.Run("empty yaml", func(t *testing.T) {
		_, err := Parse(nil, FormatYAML)
		require.ErrorIs(t, err, ErrInvalidSpec)
	})
}

func TestYAMLNumbersAreDecimal(t *testing.T) {
	spec, err := Parse([]byte(`
schema:
  hashkey: id
indexes:
  - name: by_level
    attribute:
      name: level
      type: NUMBER
      translation: {hex: 0x1F, octal: 0o17, big: 18446744073709551615, half: .5, plus: +1.5}
      default: -0x2
`), FormatYAML)
	require.NoError(t, err)
	attr := spec.Indexes[0].Attribute
	assert.Equal(t, Scalar{Text: "31", Numeric: true}, attr.Translation["hex"])
	assert.Equal(t, Scalar{Text: "15", Numeric: true}, attr.Translation["octal"])
	assert.Equal(t, Scalar{Text: "18446744073709551615", Numeric: true}, attr.Translation["big"])
	assert.Equal(t, Scalar{Text: "0.5", Numeric: true}, attr.Translation["half"])
	assert.Equal(t, Scalar{Text: "1.5", Numeric: true}, attr.Translation["plus"])
	assert.Equal(t, &Scalar{Text: "-2", Numeric: true}, attr.Default)

	_, err = Parse([]byte("schema:\n  hashkey: id\nindexes:\n  - name: i\n    attribute: {name: a, type: NUMBER, default: .inf}\n"), FormatYAML)
	require.ErrorIs(t, err, ErrInvalidSpec)
}

func TestValidateAcceptsMinimal(t *testing.T) {
	spec, err := Parse([]byte(`{"schema": {"hashkey": {"name": "id", "type": "STRING"}}}`), FormatJSON)
	require.NoError(t, err)
	require.Nil(t, spec.Schema.RangeKey)
	require.NoError(t, Validate(spec))
}

func TestTableDefinition(t *testing.T) {
	spec, err := Load("testdata/users.json")
	require.NoError(t, err)

	def := spec.TableDefinition("users")
	require.Equal(t, "users", def.Name)
	require.Equal(t, table.PrimaryKeyDefinition{
		PartitionKey: table.KeyDef{Name: "id", Kind: table.KeyKindS},
		SortKey:      table.KeyDef{Name: "created", Kind: table.KeyKindN},
	}, def.KeyDefinitions)
	require.Equal(t, &table.Throughput{Read: 5, Write: 5}, def.Throughput)

	lsi, ok := def.LSI("by_status")
	require.True(t, ok)
	require.Equal(t, "id", lsi.KeyDefinitions.PartitionKey.Name)
	require.Equal(t, table.KeyDef{Name: "status", Kind: table.KeyKindN}, lsi.KeyDefinitions.SortKey)
	require.Equal(t, table.ProjectOnlyKeys, lsi.Projection.Kind)

	gsi, ok := def.GSI("by_country")
	require.True(t, ok)
	require.Equal(t, table.KeyDef{Name: "country", Kind: table.KeyKindS}, gsi.KeyDefinitions.PartitionKey)
	require.Equal(t, table.KeyDef{Name: "score", Kind: table.KeyKindN}, gsi.KeyDefinitions.SortKey)
	require.Equal(t, table.ProjectSubset, gsi.Projection.Kind)
	require.Equal(t, &table.Throughput{Read: 2, Write: 1}, gsi.Throughput)
}
