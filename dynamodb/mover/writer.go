package mover

import (
	"context"

	"github.com/acksell/ddbmold/dynamodb/record"
	"github.com/acksell/ddbmold/dynamodb/table"
	"github.com/acksell/ddbmold/dynamodb/tableops"
)

// writer persists molded records into the destination, overwriting.
type writer interface {
	write(ctx context.Context, rec record.Record) error
	flush(ctx context.Context) error
}

func (m *Mover) newWriter(dest table.TableDefinition) writer {
	if m.opts.BatchSize > 1 {
		return batchWriter{tableops.NewBatcher(m.tables.Client(), dest, m.opts.BatchSize)}
	}
	return putWriter{tables: m.tables, dest: dest}
}

type putWriter struct {
	tables *tableops.Tables
	dest   table.TableDefinition
}

func (w putWriter) write(ctx context.Context, rec record.Record) error {
	return w.tables.Put(ctx, w.dest, rec, true)
}

func (putWriter) flush(context.Context) error { return nil }

type batchWriter struct {
	b *tableops.Batcher
}

func (w batchWriter) write(ctx context.Context, rec record.Record) error {
	return w.b.Add(ctx, rec)
}

func (w batchWriter) flush(ctx context.Context) error {
	return w.b.Flush(ctx)
}
