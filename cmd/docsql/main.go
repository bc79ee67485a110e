// Command docsql flattens nested documents into relational tables.
// It derives tables from a document schema, walks documents into rows, and
// renders or loads the result.
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/lucasefe/docsql"
	"github.com/lucasefe/docsql/docschema"
	"github.com/lucasefe/docsql/document"
	"github.com/lucasefe/docsql/generator"
	"github.com/lucasefe/docsql/internal/config"
	"github.com/lucasefe/docsql/internal/logging"
	"github.com/lucasefe/docsql/loader"
	"github.com/lucasefe/docsql/walker"
)

const version = "0.1.0"

// CLI defines the command-line interface for docsql.
var CLI struct {
	Config    string `name:"config" short:"c" help:"Config file (docsql.yaml)" type:"path" env:"DOCSQL_CONFIG"`
	LogLevel  string `name:"log-level" help:"Log level: debug, info, warn, error" env:"DOCSQL_LOG_LEVEL"`
	LogFormat string `name:"log-format" help:"Log format: text or json" env:"DOCSQL_LOG_FORMAT"`

	Tables   TablesCmd   `cmd:"" help:"Render the derived tables as DBML"`
	DDL      DDLCmd      `cmd:"" name:"ddl" help:"Print the CREATE statements for the derived tables"`
	Flatten  FlattenCmd  `cmd:"" help:"Walk documents and dump the resulting rows as JSON"`
	Load     LoadCmd     `cmd:"" help:"Walk documents and load the rows into a database"`
	Infer    InferCmd    `cmd:"" help:"Infer a document schema from sample documents"`
	Branches BranchesCmd `cmd:"" help:"List the dotted branches of a schema"`
	Patch    PatchCmd    `cmd:"" help:"Correct declared types from walk diagnostics"`
	Merge    MergeCmd    `cmd:"" help:"Overlay the scalar types of one schema onto another"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// app carries what every command needs once flags and config are resolved.
type app struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	stdin  io.Reader
}

func newApp(configPath, level, format string, out io.Writer) (*app, error) {
	cfg := &config.Config{Dialect: string(loader.Postgres)}
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}

	lvl, err := logging.ParseLevel(firstNonEmpty(level, cfg.Log.Level))
	if err != nil {
		return nil, err
	}
	fmtt, err := logging.ParseFormat(firstNonEmpty(format, cfg.Log.Format))
	if err != nil {
		return nil, err
	}
	logging.InitLogger(os.Stderr, lvl, fmtt)

	ctx := logging.WithRunID(context.Background(), logging.NewRunID())
	return &app{
		ctx:    ctx,
		cfg:    cfg,
		logger: logging.LoggerFromContext(ctx),
		out:    out,
		stdin:  os.Stdin,
	}, nil
}

// schemaFlags select the schema and shape the derived tables. Values given
// here extend or override the config file.
type schemaFlags struct {
	Name            string   `name:"name" short:"n" help:"Collection name; names the root table" env:"DOCSQL_NAME"`
	Schema          string   `name:"schema" short:"s" help:"Document schema file" type:"path" env:"DOCSQL_SCHEMA"`
	ExcludeBranches []string `name:"exclude-branches" short:"b" help:"Schema branches to drop, e.g. comments.items" env:"DOCSQL_EXCLUDE_BRANCHES"`
	ExcludeTables   []string `name:"exclude-tables" short:"x" help:"Derived tables to skip" env:"DOCSQL_EXCLUDE_TABLES"`
}

func (f *schemaFlags) resolve(a *app) (name string, schemaJSON []byte, err error) {
	name = firstNonEmpty(f.Name, a.cfg.Name)
	if name == "" {
		return "", nil, errors.New("a collection name is required: use --name or the config file")
	}
	path := firstNonEmpty(f.Schema, a.cfg.Schema)
	if path == "" {
		return "", nil, errors.New("a schema file is required: use --schema or the config file")
	}
	schemaJSON, err = os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read schema: %w", err)
	}
	return name, schemaJSON, nil
}

func (f *schemaFlags) engine(a *app) (*docsql.Engine, error) {
	name, schemaJSON, err := f.resolve(a)
	if err != nil {
		return nil, err
	}
	return docsql.New(schemaJSON, &docsql.Config{
		Name:            name,
		ExcludeBranches: append(append([]string{}, a.cfg.ExcludeBranches...), f.ExcludeBranches...),
		ExcludeTables:   append(append([]string{}, a.cfg.ExcludeTables...), f.ExcludeTables...),
		Logger:          a.logger,
	})
}

// databaseFlags override the database settings of the config file.
type databaseFlags struct {
	Dialect   string `name:"dialect" short:"d" help:"Target database: postgres or sqlite" env:"DOCSQL_DIALECT"`
	Namespace string `name:"namespace" help:"PostgreSQL schema to create tables in" env:"DOCSQL_NAMESPACE"`
	Drop      bool   `name:"drop" help:"Drop existing tables first"`
	BatchSize int    `name:"batch-size" help:"Rows per INSERT statement (SQLite)" env:"DOCSQL_BATCH_SIZE"`
}

func (f *databaseFlags) options(a *app) ([]loader.Option, error) {
	opts, err := a.cfg.LoaderOptions()
	if err != nil {
		return nil, err
	}
	if f.Dialect != "" {
		d, err := loader.ParseDialect(f.Dialect)
		if err != nil {
			return nil, err
		}
		opts = append(opts, loader.WithDialect(d))
	}
	if f.Namespace != "" {
		opts = append(opts, loader.WithNamespace(f.Namespace))
	}
	if f.Drop {
		opts = append(opts, loader.WithDropExisting())
	}
	if f.BatchSize > 0 {
		opts = append(opts, loader.WithBatchSize(f.BatchSize))
	}
	return append(opts, loader.WithLogger(a.logger)), nil
}

// TablesCmd renders the derived tables as DBML.
type TablesCmd struct {
	Input     schemaFlags `embed:""`
	Namespace string      `name:"namespace" help:"Qualify table names with this schema"`
	Output    string      `name:"output" short:"o" help:"Output file (default: stdout)" type:"path"`
}

func (c *TablesCmd) Run(a *app) error {
	e, err := c.Input.engine(a)
	if err != nil {
		return err
	}
	out, err := e.DBML(generator.WithNamespace(firstNonEmpty(c.Namespace, a.cfg.Namespace)))
	if err != nil {
		return fmt.Errorf("failed to generate DBML: %w", err)
	}
	return writeOutput(a, c.Output, []byte(out))
}

// DDLCmd prints the statements Load would run before inserting rows.
type DDLCmd struct {
	Input    schemaFlags   `embed:""`
	Database databaseFlags `embed:""`
}

func (c *DDLCmd) Run(a *app) error {
	e, err := c.Input.engine(a)
	if err != nil {
		return err
	}
	opts, err := c.Database.options(a)
	if err != nil {
		return err
	}
	for _, stmt := range loader.CreateStatements(e.Schema(), opts...) {
		fmt.Fprintf(a.out, "%s;\n\n", stmt)
	}
	return nil
}

// FlattenCmd walks documents and dumps the rows.
type FlattenCmd struct {
	Input     schemaFlags `embed:""`
	Output    string      `name:"output" short:"o" help:"Output file (default: stdout)" type:"path"`
	Documents []string    `arg:"" optional:"" help:"Document files, a JSON array or one document per line; '-' or none reads stdin"`
}

func (c *FlattenCmd) Run(a *app) error {
	e, err := c.Input.engine(a)
	if err != nil {
		return err
	}
	if _, err := walk(a, e, c.Documents); err != nil {
		return err
	}
	data, err := generator.JSON(e.Schema())
	if err != nil {
		return err
	}
	return writeOutput(a, c.Output, append(data, '\n'))
}

// LoadCmd walks documents and loads the rows.
type LoadCmd struct {
	Input       schemaFlags   `embed:""`
	Database    databaseFlags `embed:""`
	DatabaseURL string        `name:"url" short:"u" help:"Connection string, or a file path for SQLite" env:"DATABASE_URL"`
	Documents   []string      `arg:"" optional:"" help:"Document files, a JSON array or one document per line; '-' or none reads stdin"`
}

func (c *LoadCmd) Run(a *app) error {
	url := firstNonEmpty(c.DatabaseURL, a.cfg.DatabaseURL)
	if url == "" {
		return errors.New("a database URL is required: use --url, DATABASE_URL or the config file")
	}
	opts, err := c.Database.options(a)
	if err != nil {
		return err
	}
	e, err := c.Input.engine(a)
	if err != nil {
		return err
	}
	if _, err := walk(a, e, c.Documents); err != nil {
		return err
	}

	counts, err := e.LoadIntoConnectionString(a.ctx, url, opts...)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(a.out, "%-40s %d rows\n", name, counts[name])
	}
	return nil
}

// InferCmd infers a schema from sample documents.
type InferCmd struct {
	Into      string   `name:"into" help:"Existing schema to overlay the inferred types onto" type:"existingfile"`
	Output    string   `name:"output" short:"o" help:"Output file (default: stdout)" type:"path"`
	Documents []string `arg:"" optional:"" help:"Document files, a JSON array or one document per line; '-' or none reads stdin"`
}

func (c *InferCmd) Run(a *app) error {
	r, closeAll, err := openDocuments(a, c.Documents)
	if err != nil {
		return err
	}
	defer closeAll()

	var docs []any
	dec := document.NewDecoder(r)
	for {
		doc, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("decode document %d: %w", len(docs)+1, err)
		}
		if list, ok := doc.([]any); ok {
			docs = append(docs, list...)
			continue
		}
		docs = append(docs, doc)
	}

	v := document.InferSchema(docs...)
	if c.Into != "" {
		base, err := readSchema(c.Into)
		if err != nil {
			return err
		}
		v = docschema.Merge(base, v)
	}
	a.logger.Info("schema inferred", "documents", len(docs), "branches", len(docschema.Branches(v)))
	return encodeSchema(a, c.Output, v)
}

// BranchesCmd lists schema branches, the names accepted by --exclude-branches.
type BranchesCmd struct {
	Schema string `arg:"" help:"Document schema file" type:"existingfile"`
}

func (c *BranchesCmd) Run(a *app) error {
	v, err := readSchema(c.Schema)
	if err != nil {
		return err
	}
	for _, b := range docschema.Branches(v) {
		fmt.Fprintln(a.out, b)
	}
	return nil
}

// PatchCmd rewrites declared types from "wrong value" diagnostics.
type PatchCmd struct {
	Input       schemaFlags `embed:""`
	Output      string      `name:"output" short:"o" help:"Output file (default: stdout)" type:"path"`
	Diagnostics string      `arg:"" optional:"" help:"File of diagnostic lines; '-' or none reads stdin"`
}

func (c *PatchCmd) Run(a *app) error {
	name, schemaJSON, err := c.Input.resolve(a)
	if err != nil {
		return err
	}

	var paths []string
	if c.Diagnostics != "" {
		paths = []string{c.Diagnostics}
	}
	r, closeAll, err := openDocuments(a, paths)
	if err != nil {
		return err
	}
	defer closeAll()

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read diagnostics: %w", err)
	}

	v, skipped, err := docsql.PatchSchema(name, schemaJSON, lines)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		a.logger.Warn("patch skipped", "reason", s)
	}
	return encodeSchema(a, c.Output, v)
}

// MergeCmd overlays the scalar types of a secondary schema onto a primary one.
type MergeCmd struct {
	Primary   string `arg:"" help:"Schema whose shape is kept" type:"existingfile"`
	Secondary string `arg:"" help:"Schema whose scalar types win" type:"existingfile"`
	Output    string `name:"output" short:"o" help:"Output file (default: stdout)" type:"path"`
}

func (c *MergeCmd) Run(a *app) error {
	primary, err := readSchema(c.Primary)
	if err != nil {
		return err
	}
	secondary, err := readSchema(c.Secondary)
	if err != nil {
		return err
	}
	return encodeSchema(a, c.Output, docschema.Merge(primary, secondary))
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(a *app) error {
	fmt.Fprintf(a.out, "docsql version %s\n", version)
	return nil
}

// walk runs every document in paths through e as one walk and logs the
// outcome.
func walk(a *app, e *docsql.Engine, paths []string) (*walker.Result, error) {
	r, closeAll, err := openDocuments(a, paths)
	if err != nil {
		return nil, err
	}
	defer closeAll()

	start := time.Now()
	res, err := e.WalkReader(r)
	if err != nil {
		return nil, err
	}
	logging.Diagnostics(a.ctx, res.Errors.Keys(), res.Errors)
	logging.WalkCompleted(a.ctx, res.Documents, res.Rows, res.Errors.Total(), time.Since(start))
	return res, nil
}

// openDocuments concatenates the named files, or stdin when there are none.
func openDocuments(a *app, paths []string) (io.Reader, func(), error) {
	if len(paths) == 0 {
		return a.stdin, func() {}, nil
	}

	var readers []io.Reader
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	for _, p := range paths {
		if p == "-" {
			readers = append(readers, a.stdin, strings.NewReader("\n"))
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to open documents: %w", err)
		}
		files = append(files, f)
		readers = append(readers, f, strings.NewReader("\n"))
	}
	return io.MultiReader(readers...), closeAll, nil
}

func readSchema(path string) (docschema.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return docschema.Value{}, fmt.Errorf("failed to read schema: %w", err)
	}
	return docschema.Parse(data)
}

func encodeSchema(a *app, path string, v docschema.Value) error {
	var buf bytes.Buffer
	if err := docschema.Encode(&buf, v); err != nil {
		return err
	}
	return writeOutput(a, path, buf.Bytes())
}

func writeOutput(a *app, path string, data []byte) error {
	if path == "" {
		_, err := a.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write to file %s: %w", path, err)
	}
	a.logger.Info("output written", "path", path, "bytes", len(data))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("docsql"),
		kong.Description("Flatten nested documents into relational tables"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	a, err := newApp(CLI.Config, CLI.LogLevel, CLI.LogFormat, os.Stdout)
	ctx.FatalIfErrorf(err)

	err = ctx.Run(a)
	ctx.FatalIfErrorf(err)
}
