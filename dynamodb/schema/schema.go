// Package schema defines the table specification document: the key schema,
// secondary indexes, provisioning and per-field transformation rules a
// destination table is built and molded from. Documents are loaded from JSON
// or YAML and are always validated before they are returned.
package schema

// AttrType is the closed set of type tags a specification may use.
// Keys and index attributes admit STRING, NUMBER and BINARY; transformations
// admit STRING, STRING_SET, NUMBER, NUMBER_SET and OBSOLETE.
type AttrType string

const (
	String    AttrType = "STRING"
	Number    AttrType = "NUMBER"
	Binary    AttrType = "BINARY"
	StringSet AttrType = "STRING_SET"
	NumberSet AttrType = "NUMBER_SET"
	Obsolete  AttrType = "OBSOLETE"
)

// TableSpec is the root of a specification document.
type TableSpec struct {
	Schema          KeySchema        `yaml:"schema" json:"schema"`
	Throughput      *Throughput      `yaml:"throughput,omitempty" json:"throughput,omitempty" validate:"omitempty"`
	Indexes         []LocalIndex     `yaml:"indexes,omitempty" json:"indexes,omitempty" validate:"dive"`
	GlobalIndexes   []GlobalIndex    `yaml:"global_indexes,omitempty" json:"global_indexes,omitempty" validate:"dive"`
	Transformations []Transformation `yaml:"transformations,omitempty" json:"transformations,omitempty" validate:"dive"`
}

// KeySchema holds the table's primary key.
type KeySchema struct {
	HashKey  *Key `yaml:"hashkey" json:"hashkey" validate:"required"`
	RangeKey *Key `yaml:"rangekey,omitempty" json:"rangekey,omitempty" validate:"omitempty"`
}

// Key is a key attribute. Documents may also write a key as a bare string,
// which names a STRING attribute.
type Key struct {
	Name string   `yaml:"name" json:"name" validate:"required"`
	Type AttrType `yaml:"type" json:"type" validate:"required,oneof=STRING NUMBER BINARY"`
}

type Throughput struct {
	Read  int64 `yaml:"read" json:"read" validate:"gte=1"`
	Write int64 `yaml:"write" json:"write" validate:"gte=1"`
}

// LocalIndex is a local secondary index. Its sort key is Attribute.
//
// Fields selects the projection: nil projects all attributes, an empty list
// projects only keys, anything else includes the named attributes.
type LocalIndex struct {
	Name      string         `yaml:"name" json:"name" validate:"required"`
	Attribute IndexAttribute `yaml:"attribute" json:"attribute"`
	Fields    []string       `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// GlobalIndex is a global secondary index with its own partition key.
// Its sort key is Attribute; RangeKey, when given, must agree with it.
type GlobalIndex struct {
	Name       string         `yaml:"name" json:"name" validate:"required"`
	HashKey    *Key           `yaml:"hashkey" json:"hashkey" validate:"required"`
	RangeKey   *Key           `yaml:"rangekey,omitempty" json:"rangekey,omitempty" validate:"omitempty"`
	Attribute  IndexAttribute `yaml:"attribute" json:"attribute"`
	Fields     []string       `yaml:"fields,omitempty" json:"fields,omitempty"`
	Throughput *Throughput    `yaml:"throughput,omitempty" json:"throughput,omitempty" validate:"omitempty"`
}

// IndexAttribute is the attribute an index sorts on, with the rules used to
// coerce record values into it.
type IndexAttribute struct {
	Name        string            `yaml:"name" json:"name" validate:"required"`
	Type        AttrType          `yaml:"type" json:"type" validate:"required,oneof=STRING NUMBER BINARY"`
	Translation map[string]Scalar `yaml:"translation,omitempty" json:"translation,omitempty"`
	Default     *Scalar           `yaml:"default,omitempty" json:"default,omitempty"`
}

type Transformation struct {
	Name string   `yaml:"name" json:"name" validate:"required"`
	Type AttrType `yaml:"type" json:"type" validate:"required,oneof=STRING STRING_SET NUMBER NUMBER_SET OBSOLETE"`
}

// Key returns the key attribute of the index attribute.
func (a IndexAttribute) Key() Key {
	return Key{Name: a.Name, Type: a.Type}
}
