// Package connection implements the service connector that carries geoprocessing
// requests to the analysis server using the Fiber HTTP client.
package connection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"yqhp/geoanalysis/common/logger"
	"yqhp/geoanalysis/common/utils"
	"yqhp/geoanalysis/pkg/types"
)

// Connection posts a request to the analysis server and decodes the JSON answer.
// Implementations own transport and authentication; callers pass wire-ready params.
type Connection interface {
	Post(ctx context.Context, url string, params map[string]any, out any) error
}

// Config holds the configuration for the HTTP connection.
type Config struct {
	// Token is appended to every request as the token form field. Empty means anonymous.
	Token string

	// Referer is sent with every request; tokens issued for a referer require it.
	Referer string

	// UserAgent overrides the default user agent.
	UserAgent string

	// RequestTimeout is the timeout for a single HTTP request.
	// The context deadline wins when it is earlier.
	RequestTimeout time.Duration
}

// DefaultConfig returns a default connection configuration.
func DefaultConfig() *Config {
	return &Config{
		UserAgent:      "geoanalysis/0.1",
		RequestTimeout: 60 * time.Second,
	}
}

// FiberConnection implements Connection over a fiber.Client.
type FiberConnection struct {
	config *Config
	agent  *fiber.Client
	log    *zap.Logger
}

// Option configures a FiberConnection.
type Option func(*FiberConnection)

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *FiberConnection) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a new HTTP connection.
func New(config *Config, opts ...Option) *FiberConnection {
	if config == nil {
		config = DefaultConfig()
	}

	c := &FiberConnection{
		config: config,
		agent:  fiber.AcquireClient(),
		log:    logger.Named("connection"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post sends params form-encoded with f=json and decodes the response into out.
// out may be nil when only success matters.
func (c *FiberConnection) Post(ctx context.Context, url string, params map[string]any, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	if err := c.encodeParams(args, params); err != nil {
		return err
	}

	req := c.agent.Post(url)
	if timeout := c.timeout(ctx); timeout > 0 {
		req.Timeout(timeout)
	}
	req.Form(args)
	if c.config.Referer != "" {
		req.Referer(c.config.Referer)
	}
	if c.config.UserAgent != "" {
		req.UserAgent(c.config.UserAgent)
	}

	start := time.Now()
	statusCode, body, errs := req.Bytes()
	if len(errs) > 0 {
		c.log.Debug("request failed", zap.String("url", url), zap.Error(errs[0]))
		return &TransportError{URL: url, Err: errs[0]}
	}
	c.log.Debug("request done",
		zap.String("url", url),
		zap.Int("status", statusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if err := ctx.Err(); err != nil {
		return err
	}

	return decodeResponse(url, statusCode, body, out)
}

// Close releases the underlying client.
func (c *FiberConnection) Close() {
	fiber.ReleaseClient(c.agent)
}

// Config returns the connection configuration.
func (c *FiberConnection) Config() *Config {
	return c.config
}

func (c *FiberConnection) encodeParams(args *fiber.Args, params map[string]any) error {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := utils.FormValue(params[k])
		if err != nil {
			return fmt.Errorf("param %s: %w", k, err)
		}
		args.Set(k, v)
	}
	args.Set("f", "json")
	if c.config.Token != "" {
		args.Set("token", c.config.Token)
	}
	return nil
}

func (c *FiberConnection) timeout(ctx context.Context) time.Duration {
	timeout := c.config.RequestTimeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			remaining = time.Millisecond
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

// decodeResponse turns a raw HTTP answer into out or a typed error. The server
// reports most failures as an error envelope with HTTP 200, so the envelope is
// checked regardless of status.
func decodeResponse(url string, statusCode int, body []byte, out any) error {
	if !utils.Valid(body) {
		if statusCode != fiber.StatusOK {
			return &StatusError{URL: url, StatusCode: statusCode}
		}
		return &DecodeError{URL: url, Err: ErrNotJSON}
	}

	var envelope types.ErrorEnvelope
	envErr := utils.Unmarshal(body, &envelope)

	if envErr == nil && envelope.Error != nil {
		return &StatusError{URL: url, StatusCode: statusCode, Service: envelope.Error}
	}
	if statusCode != fiber.StatusOK {
		return &StatusError{URL: url, StatusCode: statusCode}
	}
	if envErr != nil {
		return &DecodeError{URL: url, Err: envErr}
	}
	if out == nil {
		return nil
	}
	if err := utils.Unmarshal(body, out); err != nil {
		return &DecodeError{URL: url, Err: err}
	}
	return nil
}
