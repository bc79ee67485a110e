package loader

import "log/slog"

// Option configures loading behavior.
type Option func(*options)

type options struct {
	dialect       Dialect
	namespace     string
	excludeTables []string
	typeMapper    TypeMapper
	dropExisting  bool
	batchSize     int
	logger        *slog.Logger
}

func defaultOptions() *options {
	return &options{
		dialect:    Postgres,
		typeMapper: NewTypeMapper(nil),
		batchSize:  500,
		logger:     slog.Default(),
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithDialect selects the target database. Defaults to Postgres.
func WithDialect(d Dialect) Option {
	return func(o *options) {
		o.dialect = d
	}
}

// WithNamespace creates tables inside the given PostgreSQL schema, creating
// it if needed. Ignored for SQLite.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithExcludeTables specifies tables that are neither created nor loaded.
func WithExcludeTables(tables ...string) Option {
	return func(o *options) {
		o.excludeTables = tables
	}
}

// WithTypeMapper sets a custom type mapper for converting scalar types to
// column types. If not specified, DefaultTypeMappings are used.
func WithTypeMapper(mapper TypeMapper) Option {
	return func(o *options) {
		o.typeMapper = mapper
	}
}

// WithTypeMappings provides custom type mappings as a simple map.
// This is a convenience alternative to WithTypeMapper for simple use cases.
// Keys are scalar type names (case-insensitive), values are column types.
func WithTypeMappings(mappings map[string]string) Option {
	return func(o *options) {
		o.typeMapper = NewTypeMapper(mappings)
	}
}

// WithDropExisting drops the tables before creating them.
func WithDropExisting() Option {
	return func(o *options) {
		o.dropExisting = true
	}
}

// WithBatchSize sets the number of rows per INSERT for SQLite. The batch is
// further capped so a statement never binds more than 999 parameters.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithLogger sets the logger for per-table progress.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
