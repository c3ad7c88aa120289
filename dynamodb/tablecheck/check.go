// Package tablecheck compares a live table's shape with a specification.
package tablecheck

import (
	"fmt"

	"github.com/acksell/ddbmold/dynamodb/schema"
	"github.com/acksell/ddbmold/dynamodb/table"
)

// Success is the message of a table that matches its specification.
const Success = "no mismatch or errors found"

// Result is the outcome of a check. A mismatch is data, not an error.
type Result struct {
	OK      bool
	Message string
}

func (r Result) String() string {
	return r.Message
}

func mismatch(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// Check reports the first difference between spec and live, in this order:
// hash key, range key, local indexes, global indexes.
func Check(spec *schema.TableSpec, live table.TableDefinition) Result {
	want := spec.KeyDefinitions()
	got := live.KeyDefinitions

	hk := spec.Schema.HashKey
	if got.PartitionKey != want.PartitionKey {
		return mismatch("%s's hashkey should be %s, and type should be %s", live.Name, hk.Name, hk.Type)
	}
	if rk := spec.Schema.RangeKey; rk != nil {
		if got.SortKey != want.SortKey {
			return mismatch("%s's rangekey should be %s, of type %s", live.Name, rk.Name, rk.Type)
		}
	} else if got.HasSortKey() {
		return mismatch("%s has a rangekey, specification not", live.Name)
	}

	local := make([]indexSpec, 0, len(spec.Indexes))
	for _, idx := range spec.Indexes {
		local = append(local, indexSpec{name: idx.Name, attribute: idx.Attribute.Key()})
	}
	if r, ok := checkIndexes(live.Name, local, live.LSI, len(live.LSIs)); !ok {
		return r
	}

	global := make([]indexSpec, 0, len(spec.GlobalIndexes))
	for _, idx := range spec.GlobalIndexes {
		hk := *idx.HashKey
		global = append(global, indexSpec{name: idx.Name, attribute: idx.Attribute.Key(), hashKey: &hk})
	}
	if r, ok := checkIndexes(live.Name, global, live.GSI, len(live.GSIs)); !ok {
		return r
	}
	return Result{OK: true, Message: Success}
}

type indexSpec struct {
	name      string
	attribute schema.Key
	// Only set for global indexes, whose partition key is their own.
	hashKey *schema.Key
}

// checkIndexes looks up every wanted index with find. Index names are unique,
// so a live count above the wanted count means extra indexes.
func checkIndexes(tableName string, want []indexSpec, find func(string) (table.IndexDefinition, bool), liveCount int) (Result, bool) {
	for _, w := range want {
		idx, ok := find(w.name)
		if !ok {
			return mismatch("index %s not found in table %s", w.name, tableName), false
		}
		if idx.KeyDefinitions.SortKey != w.attribute.KeyDef() {
			return mismatch("index %s in table %s has type or name mismatch", w.name, tableName), false
		}
		if w.hashKey != nil && idx.KeyDefinitions.PartitionKey != w.hashKey.KeyDef() {
			return mismatch("index %s in table %s has type or name mismatch", w.name, tableName), false
		}
	}
	if liveCount > len(want) {
		return mismatch("table %s has indexes not found in specification", tableName), false
	}
	return Result{}, true
}
