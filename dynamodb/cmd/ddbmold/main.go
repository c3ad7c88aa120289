// ddbmold manages DynamoDB table lifecycles from a declarative table
// specification.
//
// # Commands
//
//	ddbmold check    Compare a live table with the specification
//	ddbmold create   Create a table from the specification
//	ddbmold copy     Copy items verbatim into an existing table
//	ddbmold archive  Write every item as one JSON line
//	ddbmold restore  Create a table and load archived items, molded
//	ddbmold migrate  Create a table and copy items into it, molded
//
// # Examples
//
//	ddbmold check -o users -f users.json
//	ddbmold migrate -o users -d users_v2 -f users_v2.yaml
//	ddbmold archive -o users --output s3://backups/users.jsonl
//	ddbmold restore -d users -f users.json < users.jsonl
//	ddbmold migrate -o users -d users_v2 -f users_v2.yaml --local-dir ./data
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/acksell/ddbmold/dynamodb/awsconf"
	"github.com/acksell/ddbmold/dynamodb/ddbiface"
	"github.com/acksell/ddbmold/dynamodb/ddbstore"
	"github.com/acksell/ddbmold/dynamodb/driver"
	"github.com/acksell/ddbmold/dynamodb/logging"
	"github.com/acksell/ddbmold/dynamodb/stream"
	"github.com/acksell/ddbmold/dynamodb/tableops"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

type options struct {
	origin      string
	destination string
	specFile    string

	accessKeyID     string
	secretAccessKey string
	region          string
	profile         string
	roleARN         string
	endpoint        string

	localDir string
	inMemory bool

	input     string
	output    string
	batchSize int
	keepGoing bool

	pollInterval time.Duration
	waitTimeout  time.Duration

	logLevel   string
	logFormat  string
	configPath string
}

var commandHelp = map[string]string{
	driver.CommandCheck:   "Compare a live table with the specification",
	driver.CommandCreate:  "Create a table from the specification",
	driver.CommandCopy:    "Copy items verbatim into an existing table",
	driver.CommandArchive: "Write every item of a table as one JSON line",
	driver.CommandRestore: "Create a table and load archived items, molded",
	driver.CommandMigrate: "Create a table and copy items into it, molded",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		if cmd.HasParent() {
			fmt.Fprintf(os.Stderr, "ddbmold %s: %v\n", cmd.Name(), err)
		} else {
			fmt.Fprintf(os.Stderr, "ddbmold: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var o options
	root := &cobra.Command{
		Use:           "ddbmold <command> [flags]",
		Short:         "Validate, create, copy, migrate, archive and restore DynamoDB tables",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	f := root.PersistentFlags()
	f.StringVarP(&o.origin, "origin-table", "o", "", "Name of the origin table")
	f.StringVarP(&o.destination, "destination-table", "d", "", "Name of the destination table")
	f.StringVarP(&o.specFile, "specification-file", "f", "", "Table specification file (JSON or YAML)")
	f.StringVarP(&o.accessKeyID, "access-key-id", "a", "", "AWS access key id")
	f.StringVarP(&o.secretAccessKey, "secret-access-key", "s", "", "AWS secret access key")
	f.StringVarP(&o.region, "region", "r", awsconf.DefaultRegion, "AWS region")
	f.StringVar(&o.profile, "profile", "", "AWS shared config profile")
	f.StringVar(&o.roleARN, "role-arn", "", "IAM role to assume")
	f.StringVar(&o.endpoint, "endpoint", "", "Custom service endpoint, e.g. http://localhost:8000")
	f.StringVar(&o.localDir, "local-dir", "", "Use a local BadgerDB store in this directory instead of DynamoDB")
	f.BoolVar(&o.inMemory, "in-memory", false, "Use an in-memory local store instead of DynamoDB")
	f.StringVar(&o.input, "input", "", "Restore source: file, s3://bucket/key or - for stdin")
	f.StringVar(&o.output, "output", "", "Archive sink: file, s3://bucket/key or - for stdout")
	f.IntVar(&o.batchSize, "batch-size", 0, "Write molded items in batches of this size (max 25)")
	f.BoolVar(&o.keepGoing, "keep-going", false, "Log failed items and continue instead of stopping")
	f.DurationVar(&o.pollInterval, "poll-interval", tableops.DefaultPollInterval, "Interval between table status checks")
	f.DurationVar(&o.waitTimeout, "wait-timeout", 0, "Give up waiting for a new table after this long (0 waits forever)")
	f.StringVar(&o.logLevel, "log-level", "info", "Log level")
	f.StringVar(&o.logFormat, "log-format", logging.FormatConsole, "Log format: console or json")
	f.StringVar(&o.configPath, "config", "", "Config file (default: nearest "+configFilename+")")

	for _, name := range driver.Commands {
		root.AddCommand(&cobra.Command{
			Use:   name,
			Short: commandHelp[name],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, name, o)
			},
		})
	}
	return root
}

func run(cmd *cobra.Command, name string, o options) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	fc, _, err := LoadFileConfig(o.configPath, wd)
	if err != nil {
		return err
	}
	o = applyFileConfig(cmd, o, fc)

	log, err := logging.Configure(logging.Config{
		Level:   o.logLevel,
		Format:  o.logFormat,
		Command: name,
		Out:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	cfg := driver.Config{
		Command:      name,
		Origin:       o.origin,
		Destination:  o.destination,
		SpecFile:     o.specFile,
		Input:        o.input,
		Output:       o.output,
		KeepGoing:    o.keepGoing,
		BatchSize:    o.batchSize,
		PollInterval: o.pollInterval,
		WaitTimeout:  o.waitTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx, o, log)
	if err != nil {
		return err
	}
	defer b.close()

	d := &driver.Driver{
		Tables: tableops.New(b.client, b.region, log),
		Streams: stream.Endpoints{
			S3:     b.s3,
			Stdin:  cmd.InOrStdin(),
			Stdout: cmd.OutOrStdout(),
		},
		Out: cmd.OutOrStdout(),
		Log: log,
	}
	return d.Run(ctx, cfg)
}

// applyFileConfig fills every flag not given on the command line from fc.
func applyFileConfig(cmd *cobra.Command, o options, fc FileConfig) options {
	changed := cmd.Flags().Changed
	setString := func(flag string, dst *string, v string) {
		if v != "" && !changed(flag) {
			*dst = v
		}
	}
	setString("region", &o.region, fc.Region)
	setString("profile", &o.profile, fc.Profile)
	setString("role-arn", &o.roleARN, fc.RoleARN)
	setString("endpoint", &o.endpoint, fc.Endpoint)
	setString("local-dir", &o.localDir, fc.LocalDir)
	setString("log-level", &o.logLevel, fc.LogLevel)
	setString("log-format", &o.logFormat, fc.LogFormat)
	if fc.InMemory && !changed("in-memory") {
		o.inMemory = true
	}
	if fc.KeepGoing && !changed("keep-going") {
		o.keepGoing = true
	}
	if fc.BatchSize != 0 && !changed("batch-size") {
		o.batchSize = fc.BatchSize
	}
	if fc.PollInterval != 0 && !changed("poll-interval") {
		o.pollInterval = fc.PollInterval
	}
	if fc.WaitTimeout != 0 && !changed("wait-timeout") {
		o.waitTimeout = fc.WaitTimeout
	}
	return o
}

type backend struct {
	client ddbiface.Client
	s3     stream.S3Client
	region string
	close  func()
}

// openBackend connects to DynamoDB, or opens the local store when a local
// directory or in-memory mode is requested. S3 is only set up when an
// archive URI needs it.
func openBackend(ctx context.Context, o options, log zerolog.Logger) (*backend, error) {
	b := &backend{region: o.region, close: func() {}}
	needsS3 := strings.HasPrefix(o.input, "s3://") || strings.HasPrefix(o.output, "s3://")
	local := o.localDir != "" || o.inMemory

	var cfg aws.Config
	if !local || needsS3 {
		var err error
		cfg, err = awsconf.Load(ctx, awsconf.Options{
			Region:          o.region,
			AccessKeyID:     o.accessKeyID,
			SecretAccessKey: o.secretAccessKey,
			Profile:         o.profile,
			RoleARN:         o.roleARN,
			Endpoint:        o.endpoint,
		})
		if err != nil {
			return nil, err
		}
	}
	if needsS3 {
		b.s3 = awsconf.S3(cfg)
	}

	if !local {
		b.client = awsconf.DynamoDB(cfg)
		return b, nil
	}
	store, err := ddbstore.New(ddbstore.StoreOptions{
		Path:     o.localDir,
		InMemory: o.inMemory,
		Logger:   ddbstore.NewLogger(log),
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("dir", o.localDir).Bool("in_memory", o.inMemory).Msg("using local store")
	b.client = store
	b.region = "local"
	b.close = func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("close local store")
		}
	}
	return b, nil
}
