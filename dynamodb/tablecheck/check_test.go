package tablecheck

import (
	"testing"

	"github.com/acksell/ddbmold/dynamodb/schema"
	"github.com/acksell/ddbmold/dynamodb/table"
	"github.com/stretchr/testify/require"
)

const usersSpec = `{
	"schema": {
		"hashkey": {"name": "id", "type": "STRING"},
		"rangekey": {"name": "created", "type": "NUMBER"}
	},
	"indexes": [{"name": "by_status", "attribute": {"name": "status", "type": "NUMBER"}}],
	"global_indexes": [{"name": "by_owner", "hashkey": "owner", "attribute": {"name": "score", "type": "NUMBER"}}]
}`

func mustParse(t *testing.T, doc string) *schema.TableSpec {
	t.Helper()
	spec, err := schema.Parse([]byte(doc), schema.FormatJSON)
	require.NoError(t, err)
	return spec
}

func TestCheck(t *testing.T) {
	spec := mustParse(t, usersSpec)
	matching := spec.TableDefinition("users")

	t.Run("matching table", func(t *testing.T) {
		r := Check(spec, matching)
		require.True(t, r.OK)
		require.Equal(t, Success, r.Message)
	})

	tests := []struct {
		name   string
		modify func(def *table.TableDefinition)
		want   string
	}{
		{
			name: "hash key name",
			modify: func(def *table.TableDefinition) {
				def.KeyDefinitions.PartitionKey.Name = "pk"
			},
			want: "users's hashkey should be id, and type should be STRING",
		},
		{
			name: "hash key type",
			modify: func(def *table.TableDefinition) {
				def.KeyDefinitions.PartitionKey.Kind = table.KeyKindN
			},
			want: "users's hashkey should be id, and type should be STRING",
		},
		{
			name: "missing range key",
			modify: func(def *table.TableDefinition) {
				def.KeyDefinitions.SortKey = table.KeyDef{}
			},
			want: "users's rangekey should be created, of type NUMBER",
		},
		{
			name: "range key type",
			modify: func(def *table.TableDefinition) {
				def.KeyDefinitions.SortKey.Kind = table.KeyKindS
			},
			want: "users's rangekey should be created, of type NUMBER",
		},
		{
			name: "local index missing",
			modify: func(def *table.TableDefinition) {
				def.LSIs = nil
			},
			want: "index by_status not found in table users",
		},
		{
			name: "local index attribute type",
			modify: func(def *table.TableDefinition) {
				def.LSIs = []table.IndexDefinition{def.LSIs[0]}
				def.LSIs[0].KeyDefinitions.SortKey.Kind = table.KeyKindS
			},
			want: "index by_status in table users has type or name mismatch",
		},
		{
			name: "extra local index",
			modify: func(def *table.TableDefinition) {
				def.LSIs = append([]table.IndexDefinition{}, def.LSIs...)
				def.LSIs = append(def.LSIs, table.IndexDefinition{Name: "extra"})
			},
			want: "table users has indexes not found in specification",
		},
		{
			name: "global index attribute name",
			modify: func(def *table.TableDefinition) {
				def.GSIs = []table.IndexDefinition{def.GSIs[0]}
				def.GSIs[0].KeyDefinitions.SortKey.Name = "rank"
			},
			want: "index by_owner in table users has type or name mismatch",
		},
		{
			name: "global index hash key",
			modify: func(def *table.TableDefinition) {
				def.GSIs = []table.IndexDefinition{def.GSIs[0]}
				def.GSIs[0].KeyDefinitions.PartitionKey.Name = "tenant"
			},
			want: "index by_owner in table users has type or name mismatch",
		},
		{
			name: "extra global index",
			modify: func(def *table.TableDefinition) {
				def.GSIs = append([]table.IndexDefinition{}, def.GSIs...)
				def.GSIs = append(def.GSIs, table.IndexDefinition{Name: "extra"})
			},
			want: "table users has indexes not found in specification",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			live := spec.TableDefinition("users")
			tt.modify(&live)
			r := Check(spec, live)
			require.False(t, r.OK)
			require.Equal(t, tt.want, r.Message)
		})
	}
}

func TestCheckRangeKeyNotInSpec(t *testing.T) {
	spec := mustParse(t, `{"schema": {"hashkey": {"name": "id", "type": "STRING"}}}`)
	live := table.TableDefinition{
		Name: "events",
		KeyDefinitions: table.PrimaryKeyDefinition{
			PartitionKey: table.KeyDef{Name: "id", Kind: table.KeyKindS},
			SortKey:      table.KeyDef{Name: "ts", Kind: table.KeyKindN},
		},
	}
	r := Check(spec, live)
	require.False(t, r.OK)
	require.Equal(t, "events has a rangekey, specification not", r.Message)
}

func TestCheckExtrasWithoutDeclaredIndexes(t *testing.T) {
	spec := mustParse(t, `{"schema": {"hashkey": {"name": "id", "type": "STRING"}}}`)
	live := spec.TableDefinition("plain")
	live.GSIs = []table.IndexDefinition{{Name: "surprise"}}
	r := Check(spec, live)
	require.False(t, r.OK)
	require.Equal(t, "table plain has indexes not found in specification", r.Message)
}
