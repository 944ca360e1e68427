// Package analysis wires a ready-to-use analysis client from configuration:
// logger, connection, journal and geoprocessing service. Every dependency is
// built here and passed down explicitly.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"yqhp/geoanalysis/common/logger"
	"yqhp/geoanalysis/pkg/config"
	"yqhp/geoanalysis/pkg/connection"
	"yqhp/geoanalysis/pkg/geoprocessing"
	"yqhp/geoanalysis/pkg/journal"
	"yqhp/geoanalysis/pkg/metrics"
	"yqhp/geoanalysis/pkg/tasks"
)

// Client runs analysis tasks against one geoprocessing service.
type Client struct {
	cfg     *config.Config
	log     *zap.Logger
	conn    *connection.FiberConnection
	journal journal.Journal
	closers []func() error
	service *geoprocessing.Service
	catalog tasks.Catalog
}

// Option configures New.
type Option func(*options)

type options struct {
	log     *zap.Logger
	journal journal.Journal
	sinks   []geoprocessing.MessageSink
	catalog tasks.Catalog
	sleep   geoprocessing.SleepFunc
}

// WithLogger uses l instead of a logger built from the logging section.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithJournal uses j instead of the configured journal backend.
func WithJournal(j journal.Journal) Option {
	return func(o *options) { o.journal = j }
}

// WithSinks adds message sinks.
func WithSinks(sinks ...geoprocessing.MessageSink) Option {
	return func(o *options) { o.sinks = append(o.sinks, sinks...) }
}

// WithCatalog replaces the task catalog.
func WithCatalog(c tasks.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithSleep replaces the wait between polls.
func WithSleep(sleep geoprocessing.SleepFunc) Option {
	return func(o *options) { o.sleep = sleep }
}

// New validates cfg and builds a client.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	log := o.log
	if log == nil {
		log = logger.New(LoggerConfig(cfg.Logging))
	}

	c := &Client{
		cfg:     cfg,
		log:     log,
		catalog: o.catalog,
	}
	if c.catalog == nil {
		c.catalog = tasks.DefaultCatalog()
	}

	c.journal = o.journal
	if c.journal == nil {
		j, closer, err := OpenJournal(ctx, cfg.Journal, log.Named("journal"))
		if err != nil {
			return nil, err
		}
		c.journal = j
		if closer != nil {
			c.closers = append(c.closers, closer)
		}
	}

	c.conn = connection.New(ConnectionConfig(cfg.Portal), connection.WithLogger(log.Named("connection")))

	sinks := append([]geoprocessing.MessageSink{metrics.MessageSink{}}, o.sinks...)
	svcOpts := []geoprocessing.ServiceOption{
		geoprocessing.WithLogger(log.Named("geoprocessing")),
		geoprocessing.WithPollPolicy(PollPolicy(cfg.Job)),
		geoprocessing.WithJournal(c.journal),
		geoprocessing.WithSinks(sinks...),
	}
	if o.sleep != nil {
		svcOpts = append(svcOpts, geoprocessing.WithSleep(o.sleep))
	}
	c.service = geoprocessing.NewService(c.conn, cfg.Portal.ServiceURL, svcOpts...)

	log.Info("analysis client ready",
		zap.String("service_url", cfg.Portal.ServiceURL),
		zap.String("journal", cfg.Journal.Backend),
		zap.Duration("poll_interval", cfg.Job.PollInterval))
	return c, nil
}

// Service returns the underlying geoprocessing service.
func (c *Client) Service() *geoprocessing.Service {
	return c.service
}

// Journal returns the job journal.
func (c *Client) Journal() journal.Journal {
	return c.journal
}

// Catalog returns the task catalog.
func (c *Client) Catalog() tasks.Catalog {
	return c.catalog
}

// Run runs inv with the configured retry policy.
func (c *Client) Run(ctx context.Context, inv geoprocessing.Invocation) (*geoprocessing.Result, error) {
	return c.RunOutputs(ctx, inv)
}

// RunOutputs runs inv with the configured retry policy and resolves the named
// outputs. It makes Client a tasks.Runner.
func (c *Client) RunOutputs(ctx context.Context, inv geoprocessing.Invocation, names ...string) (*geoprocessing.Result, error) {
	if c.cfg.Retry.MaxAttempts > 1 {
		return c.service.RunWithRetry(ctx, inv, RetryPolicy(c.cfg.Retry), names...)
	}
	return c.service.RunOutputs(ctx, inv, names...)
}

// RunTask runs a catalog task by name with keyword arguments.
func (c *Client) RunTask(ctx context.Context, task string, args tasks.Args) (*tasks.Result, error) {
	return c.catalog.RunByName(ctx, c, task, args)
}

// RunBatch runs invocations with the configured concurrency.
func (c *Client) RunBatch(ctx context.Context, invs []geoprocessing.Invocation) []geoprocessing.BatchResult {
	return c.service.RunBatch(ctx, invs, c.cfg.Batch.Concurrency)
}

// Close releases the connection and the journal backend.
func (c *Client) Close() error {
	c.conn.Close()

	var errs []error
	for _, closer := range c.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	_ = c.log.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("failed to close analysis client: %w", errors.Join(errs...))
	}
	return nil
}
