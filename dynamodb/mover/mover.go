// Package mover moves item data between tables and line-delimited JSON
// archives, molding records into the destination schema on the way.
package mover

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/acksell/ddbmold/dynamodb/mold"
	"github.com/acksell/ddbmold/dynamodb/record"
	"github.com/acksell/ddbmold/dynamodb/schema"
	"github.com/acksell/ddbmold/dynamodb/table"
	"github.com/acksell/ddbmold/dynamodb/tableops"
	"github.com/rs/zerolog"
)

// MaxLineSize bounds one archived record.
const MaxLineSize = 16 << 20

var ErrNoSpec = errors.New("a table specification is required for this command")

type Options struct {
	Origin      string
	Destination string
	// KeepGoing logs and counts failed records instead of aborting on the first.
	KeepGoing bool
	// BatchSize above 1 groups overwriting puts into BatchWriteItem calls.
	BatchSize int
	Wait      tableops.WaitOptions
	// Progress receives the human-readable progress lines.
	Progress io.Writer
	Log      zerolog.Logger
}

// Summary counts what a run did.
type Summary struct {
	Read    int
	Written int
	Skipped int
	Failed  int
	Errors  []error
}

// Err joins every record failure, or returns nil.
func (s Summary) Err() error {
	return errors.Join(s.Errors...)
}

type Mover struct {
	tables *tableops.Tables
	spec   *schema.TableSpec
	molder *mold.Molder
	opts   Options
}

// New returns a Mover. spec may be nil for copy and archive.
func New(tables *tableops.Tables, spec *schema.TableSpec, opts Options) *Mover {
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	m := &Mover{tables: tables, spec: spec, opts: opts}
	if spec != nil {
		m.molder = mold.New(spec)
	}
	return m
}

func (m *Mover) progress(format string, args ...any) {
	fmt.Fprintf(m.opts.Progress, format+"\n", args...)
}

// fail records a per-record failure. It returns the error to abort with,
// or nil when the run keeps going.
func (m *Mover) fail(sum *Summary, pos string, err error) error {
	sum.Failed++
	err = fmt.Errorf("%s: %w", pos, err)
	sum.Errors = append(sum.Errors, err)
	if !m.opts.KeepGoing {
		return err
	}
	m.opts.Log.Warn().Err(err).Msg("skipping record")
	return nil
}

// Copy writes every origin item verbatim into the existing destination.
// Items whose key already exists in the destination are left untouched.
func (m *Mover) Copy(ctx context.Context) (Summary, error) {
	var sum Summary
	if _, err := m.tables.Describe(ctx, m.opts.Origin); err != nil {
		return sum, err
	}
	dest, err := m.tables.Describe(ctx, m.opts.Destination)
	if err != nil {
		return sum, err
	}

	m.progress("copying items from %s to %s", m.opts.Origin, m.opts.Destination)
	n := 0
	for rec, err := range m.tables.Scan(ctx, m.opts.Origin) {
		if err != nil {
			return sum, err
		}
		n++
		sum.Read++
		err := m.tables.Put(ctx, dest, rec, false)
		switch {
		case err == nil:
			sum.Written++
		case errors.Is(err, tableops.ErrItemExists):
			sum.Skipped++
		default:
			if err := m.fail(&sum, fmt.Sprintf("record %d", n), err); err != nil {
				return sum, err
			}
		}
	}
	m.opts.Log.Info().Int("read", sum.Read).Int("written", sum.Written).Int("skipped", sum.Skipped).Msg("copy finished")
	return sum, sum.Err()
}

// Migrate creates the destination from the table specification when needed
// and writes every origin item into it, molded and overwriting.
func (m *Mover) Migrate(ctx context.Context) (Summary, error) {
	var sum Summary
	if m.spec == nil {
		return sum, ErrNoSpec
	}
	if _, err := m.tables.Describe(ctx, m.opts.Origin); err != nil {
		return sum, err
	}
	dest, err := m.EnsureDestination(ctx)
	if err != nil {
		return sum, err
	}

	m.progress("copying items from %s to %s", m.opts.Origin, m.opts.Destination)
	w := m.newWriter(dest)
	n := 0
	for rec, err := range m.tables.Scan(ctx, m.opts.Origin) {
		if err != nil {
			return sum, err
		}
		n++
		if err := m.moldAndWrite(ctx, &sum, w, fmt.Sprintf("record %d", n), rec); err != nil {
			return sum, err
		}
	}
	if err := w.flush(ctx); err != nil {
		return sum, err
	}
	m.opts.Log.Info().Int("read", sum.Read).Int("written", sum.Written).Int("failed", sum.Failed).Msg("migration finished")
	return sum, sum.Err()
}

// Archive writes one JSON line per origin item to out.
func (m *Mover) Archive(ctx context.Context, out io.Writer) (Summary, error) {
	var sum Summary
	if _, err := m.tables.Describe(ctx, m.opts.Origin); err != nil {
		return sum, err
	}
	bw := bufio.NewWriter(out)
	n := 0
	for rec, err := range m.tables.Scan(ctx, m.opts.Origin) {
		if err != nil {
			return sum, err
		}
		n++
		sum.Read++
		line, err := record.MarshalJSON(rec)
		if err != nil {
			if err := m.fail(&sum, fmt.Sprintf("record %d", n), err); err != nil {
				return sum, err
			}
			continue
		}
		if _, err := bw.Write(append(line, '\n')); err != nil {
			return sum, fmt.Errorf("write archive: %w", err)
		}
		sum.Written++
	}
	if err := bw.Flush(); err != nil {
		return sum, fmt.Errorf("write archive: %w", err)
	}
	m.opts.Log.Info().Int("records", sum.Written).Msg("archive finished")
	return sum, sum.Err()
}

// Restore creates the destination when needed and writes every JSON line
// read from in, molded and overwriting. Blank lines are skipped. source names
// the input in the progress output.
func (m *Mover) Restore(ctx context.Context, in io.Reader, source string) (Summary, error) {
	var sum Summary
	if m.spec == nil {
		return sum, ErrNoSpec
	}
	dest, err := m.EnsureDestination(ctx)
	if err != nil {
		return sum, err
	}

	m.progress("reading items from %s to %s", source, m.opts.Destination)
	w := m.newWriter(dest)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64<<10), MaxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		text := scanner.Bytes()
		if len(bytes.TrimSpace(text)) == 0 {
			continue
		}
		pos := fmt.Sprintf("line %d", line)
		rec, err := record.UnmarshalJSON(text)
		if err != nil {
			sum.Read++
			if err := m.fail(&sum, pos, err); err != nil {
				return sum, err
			}
			continue
		}
		if err := m.moldAndWrite(ctx, &sum, w, pos, rec); err != nil {
			return sum, err
		}
	}
	if err := scanner.Err(); err != nil {
		return sum, fmt.Errorf("read archive: %w", err)
	}
	if err := w.flush(ctx); err != nil {
		return sum, err
	}
	m.opts.Log.Info().Int("read", sum.Read).Int("written", sum.Written).Int("failed", sum.Failed).Msg("restore finished")
	return sum, sum.Err()
}

func (m *Mover) moldAndWrite(ctx context.Context, sum *Summary, w writer, pos string, rec record.Record) error {
	sum.Read++
	molded, err := m.molder.Mold(rec)
	if err != nil {
		return m.fail(sum, pos, err)
	}
	if err := w.write(ctx, molded); err != nil {
		// A failed batch loses more than this record.
		if _, batched := w.(batchWriter); batched || ctx.Err() != nil {
			return err
		}
		return m.fail(sum, pos, err)
	}
	sum.Written++
	return nil
}

// EnsureDestination creates the destination table from the specification.
// An existing table is used as is; a new one is polled until active.
func (m *Mover) EnsureDestination(ctx context.Context) (table.TableDefinition, error) {
	name := m.opts.Destination
	def := m.spec.TableDefinition(name)

	m.progress("creating table %s", name)
	_, err := m.tables.Create(ctx, def)
	if errors.Is(err, tableops.ErrTableExists) {
		m.progress("    table %s exists", name)
		return m.tables.Describe(ctx, name)
	}
	if err != nil {
		return table.TableDefinition{}, err
	}

	wait := m.opts.Wait
	onPoll := wait.OnPoll
	wait.OnPoll = func() {
		m.progress("        ...")
		if onPoll != nil {
			onPoll()
		}
	}
	if err := m.tables.WaitActive(ctx, name, wait); err != nil {
		return table.TableDefinition{}, err
	}
	m.progress("    table %s created", name)
	return def, nil
}
