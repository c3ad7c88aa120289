package schema

import "github.com/acksell/ddbmold/dynamodb/table"

// KeyKind maps a key type tag to its attribute kind.
func (t AttrType) KeyKind() table.KeyKind {
	switch t {
	case Number:
		return table.KeyKindN
	case Binary:
		return table.KeyKindB
	default:
		return table.KeyKindS
	}
}

// KeyDef converts the key into its table form.
func (k Key) KeyDef() table.KeyDef {
	return table.KeyDef{Name: k.Name, Kind: k.Type.KeyKind()}
}

func (tp *Throughput) def() *table.Throughput {
	if tp == nil {
		return nil
	}
	return &table.Throughput{Read: tp.Read, Write: tp.Write}
}

// KeyDefinitions returns the table's primary key.
func (s *TableSpec) KeyDefinitions() table.PrimaryKeyDefinition {
	k := table.PrimaryKeyDefinition{PartitionKey: s.Schema.HashKey.KeyDef()}
	if s.Schema.RangeKey != nil {
		k.SortKey = s.Schema.RangeKey.KeyDef()
	}
	return k
}

// TableDefinition builds the definition of a table named name.
func (s *TableSpec) TableDefinition(name string) table.TableDefinition {
	def := table.TableDefinition{
		Name:           name,
		KeyDefinitions: s.KeyDefinitions(),
		Throughput:     s.Throughput.def(),
	}
	for _, idx := range s.Indexes {
		def.LSIs = append(def.LSIs, table.IndexDefinition{
			Name: idx.Name,
			KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: def.KeyDefinitions.PartitionKey,
				SortKey:      idx.Attribute.Key().KeyDef(),
			},
			Projection: table.ProjectFields(idx.Fields),
		})
	}
	for _, idx := range s.GlobalIndexes {
		def.GSIs = append(def.GSIs, table.IndexDefinition{
			Name: idx.Name,
			KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: idx.HashKey.KeyDef(),
				SortKey:      idx.Attribute.Key().KeyDef(),
			},
			Projection: table.ProjectFields(idx.Fields),
			Throughput: idx.Throughput.def(),
		})
	}
	return def
}
