// Package driver dispatches the table commands. All inputs arrive through an
// explicit Config; nothing is read from globals.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/acksell/ddbmold/dynamodb/mover"
	"github.com/acksell/ddbmold/dynamodb/schema"
	"github.com/acksell/ddbmold/dynamodb/stream"
	"github.com/acksell/ddbmold/dynamodb/tablecheck"
	"github.com/acksell/ddbmold/dynamodb/tableops"
	"github.com/rs/zerolog"
)

const (
	CommandCheck   = "check"
	CommandCreate  = "create"
	CommandCopy    = "copy"
	CommandArchive = "archive"
	CommandRestore = "restore"
	CommandMigrate = "migrate"
)

// Commands lists every command in help order.
var Commands = []string{CommandCheck, CommandCreate, CommandCopy, CommandArchive, CommandRestore, CommandMigrate}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoDestination  = errors.New("you must specify a destination table for this command")
	ErrNoOrigin       = errors.New("you must specify an origin table for this command")
	ErrNoSpec         = errors.New("you must specify a specification file for this command")
)

// Config holds everything one command needs besides its clients.
type Config struct {
	Command     string
	Origin      string
	Destination string
	SpecFile    string
	// Input and Output name the restore source and archive sink.
	Input  string
	Output string

	KeepGoing    bool
	BatchSize    int
	PollInterval time.Duration
	WaitTimeout  time.Duration
}

func (c Config) needsSpec() bool {
	switch c.Command {
	case CommandCheck, CommandCreate, CommandMigrate, CommandRestore:
		return true
	}
	return false
}

func (c Config) needsOrigin() bool {
	switch c.Command {
	case CommandCheck, CommandCopy, CommandArchive, CommandMigrate:
		return true
	}
	return false
}

func (c Config) needsDestination() bool {
	switch c.Command {
	case CommandCreate, CommandCopy, CommandMigrate, CommandRestore:
		return true
	}
	return false
}

// Validate checks the arguments a command requires.
func (c Config) Validate() error {
	if !slices.Contains(Commands, c.Command) {
		return fmt.Errorf("%w %q", ErrUnknownCommand, c.Command)
	}
	if c.needsSpec() && c.SpecFile == "" {
		return ErrNoSpec
	}
	if c.needsOrigin() && c.Origin == "" {
		return ErrNoOrigin
	}
	if c.needsDestination() && c.Destination == "" {
		return ErrNoDestination
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch size must not be negative, got %d", c.BatchSize)
	}
	return nil
}

// Driver runs commands against one table client.
type Driver struct {
	Tables  *tableops.Tables
	Streams stream.Endpoints
	// Out receives results and progress lines.
	Out io.Writer
	Log zerolog.Logger
}

// Run validates cfg, loads the table specification when the command needs
// one and dispatches. The spec is validated before any remote call.
func (d *Driver) Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	var spec *schema.TableSpec
	if cfg.needsSpec() || cfg.SpecFile != "" {
		var err error
		spec, err = schema.Load(cfg.SpecFile)
		if err != nil {
			return err
		}
	}
	log := d.Log.With().Str("origin", cfg.Origin).Str("destination", cfg.Destination).Logger()
	log.Debug().Msg("running command")

	switch cfg.Command {
	case CommandCheck:
		return d.check(ctx, spec, cfg)
	case CommandCreate:
		return d.create(ctx, spec, cfg)
	}

	m := mover.New(d.Tables, spec, mover.Options{
		Origin:      cfg.Origin,
		Destination: cfg.Destination,
		KeepGoing:   cfg.KeepGoing,
		BatchSize:   cfg.BatchSize,
		Wait: tableops.WaitOptions{
			Interval: cfg.PollInterval,
			Timeout:  cfg.WaitTimeout,
		},
		Progress: d.Out,
		Log:      log,
	})
	var (
		sum mover.Summary
		err error
	)
	switch cfg.Command {
	case CommandCopy:
		sum, err = m.Copy(ctx)
	case CommandMigrate:
		sum, err = m.Migrate(ctx)
	case CommandArchive:
		sum, err = d.archive(ctx, m, cfg)
	case CommandRestore:
		sum, err = d.restore(ctx, m, cfg)
	}
	log.Info().
		Int("read", sum.Read).
		Int("written", sum.Written).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Msg("done")
	return err
}

func (d *Driver) check(ctx context.Context, spec *schema.TableSpec, cfg Config) error {
	live, err := d.Tables.Describe(ctx, cfg.Origin)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(d.Out, tablecheck.Check(spec, live))
	return err
}

func (d *Driver) create(ctx context.Context, spec *schema.TableSpec, cfg Config) error {
	status, err := d.Tables.Create(ctx, spec.TableDefinition(cfg.Destination))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(d.Out, status)
	return err
}

func (d *Driver) archive(ctx context.Context, m *mover.Mover, cfg Config) (mover.Summary, error) {
	sink, err := d.Streams.Sink(ctx, cfg.Output)
	if err != nil {
		return mover.Summary{}, err
	}
	sum, err := m.Archive(ctx, sink)
	if err != nil {
		// An existing archive at the same location is left as it was.
		if aerr := stream.Abort(sink); aerr != nil {
			d.Log.Warn().Err(aerr).Msg("close archive")
		}
		return sum, err
	}
	if err := sink.Close(); err != nil {
		return sum, fmt.Errorf("close archive: %w", err)
	}
	return sum, nil
}

func (d *Driver) restore(ctx context.Context, m *mover.Mover, cfg Config) (mover.Summary, error) {
	src, err := d.Streams.Source(ctx, cfg.Input)
	if err != nil {
		return mover.Summary{}, err
	}
	defer src.Close()
	return m.Restore(ctx, src, stream.Name(cfg.Input, "stdin"))
}
