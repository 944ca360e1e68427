package geoprocessing

import (
	"context"
	"sort"

	"github.com/duke-git/lancet/v2/maputil"
	"github.com/duke-git/lancet/v2/slice"
	"go.uber.org/zap"

	"yqhp/geoanalysis/common/logger"
	"yqhp/geoanalysis/pkg/connection"
	"yqhp/geoanalysis/pkg/metrics"
	"yqhp/geoanalysis/pkg/types"
)

// Resolver fetches output parameter values of a succeeded job.
type Resolver struct {
	conn connection.Connection
	log  *zap.Logger
}

// NewResolver creates a resolver.
func NewResolver(conn connection.Connection, l *zap.Logger) *Resolver {
	if l == nil {
		l = logger.Named("resolver")
	}
	return &Resolver{conn: conn, log: l}
}

// Resolve fetches every output in results, one request per output in name order.
// The first failure is returned as an OutputResolutionError naming that output.
func (r *Resolver) Resolve(ctx context.Context, h JobHandle, results map[string]types.ResultParam) (map[string]any, error) {
	if err := validateResults(h, results); err != nil {
		return nil, err
	}

	names := maputil.Keys(results)
	sort.Strings(names)
	return r.fetchAll(ctx, h, results, names)
}

// ResolveOnly fetches the named outputs. A name missing from results is a
// MalformedResultError.
func (r *Resolver) ResolveOnly(ctx context.Context, h JobHandle, results map[string]types.ResultParam, names ...string) (map[string]any, error) {
	if len(names) == 0 {
		return r.Resolve(ctx, h, results)
	}
	if err := validateResults(h, results); err != nil {
		return nil, err
	}

	available := maputil.Keys(results)
	wanted := slice.Unique(names)
	for _, name := range wanted {
		if !slice.Contain(available, name) {
			return nil, &MalformedResultError{Handle: h, Output: name, Reason: "output not present in results"}
		}
	}
	return r.fetchAll(ctx, h, results, wanted)
}

func (r *Resolver) fetchAll(ctx context.Context, h JobHandle, results map[string]types.ResultParam, names []string) (map[string]any, error) {
	out := make(map[string]any, len(names))
	for _, name := range names {
		v, err := r.fetch(ctx, h, results[name].ParamURL)
		if err != nil {
			metrics.OutputFetchesTotal.WithLabelValues(h.Task, "error").Inc()
			r.log.Warn("output resolution failed",
				zap.String("task", h.Task),
				zap.String("job_id", h.JobID),
				zap.String("output", name),
				zap.Error(err))
			return out, &OutputResolutionError{Handle: h, Output: name, Err: err}
		}
		metrics.OutputFetchesTotal.WithLabelValues(h.Task, "ok").Inc()
		out[name] = v
	}
	return out, nil
}

func (r *Resolver) fetch(ctx context.Context, h JobHandle, paramURL string) (any, error) {
	var body types.ParamValue
	if err := r.conn.Post(ctx, h.ResultURL(paramURL), nil, &body); err != nil {
		return nil, err
	}
	if !body.HasValue() {
		return nil, ErrMissingValue
	}
	return body.Value, nil
}

func validateResults(h JobHandle, results map[string]types.ResultParam) error {
	if len(results) == 0 {
		return &MalformedResultError{Handle: h, Reason: "results descriptor is empty"}
	}
	names := maputil.Keys(results)
	sort.Strings(names)
	for _, name := range names {
		if results[name].ParamURL == "" {
			return &MalformedResultError{Handle: h, Output: name, Reason: "missing paramUrl"}
		}
	}
	return nil
}
