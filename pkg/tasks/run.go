package tasks

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"yqhp/geoanalysis/pkg/geoprocessing"
	"yqhp/geoanalysis/pkg/layers"
)

// ErrUnknownTask is returned by Catalog based helpers for a task not in the catalog.
var ErrUnknownTask = errors.New("unknown task")

// ArgumentError is a keyword argument the task cannot accept.
type ArgumentError struct {
	Task    string
	Keyword string
	Reason  string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("task %s: argument %s: %s", e.Task, e.Keyword, e.Reason)
}

// Runner executes an invocation and resolves the named outputs.
// *geoprocessing.Service implements it.
type Runner interface {
	RunOutputs(ctx context.Context, inv geoprocessing.Invocation, names ...string) (*geoprocessing.Result, error)
}

// Result is the outcome of a task call.
type Result struct {
	Job    *geoprocessing.Result
	Output *layers.Output
}

// Args are keyword arguments of a task call.
type Args map[string]any

// Set stores v under keyword unless v is nil or a zero value.
func (a Args) Set(keyword string, v any) Args {
	if !isZero(v) {
		a[keyword] = v
	}
	return a
}

// BuildInvocation maps args to server fields and converts layer inputs, output
// names and contexts to their wire form. Nil values are left out so the server
// default applies.
func BuildInvocation(def Definition, args Args) (geoprocessing.Invocation, error) {
	params := make(map[string]any, len(args))
	for kw, v := range args {
		field, ok := def.Field(kw)
		if !ok {
			return geoprocessing.Invocation{}, &ArgumentError{Task: def.Name, Keyword: kw, Reason: "not accepted"}
		}
		if v == nil {
			continue
		}
		if name, ok := v.(string); ok && kw == KeywordOutputName {
			v = layers.OutputName(name)
		}
		wire, err := toWire(v)
		if err != nil {
			return geoprocessing.Invocation{}, &ArgumentError{Task: def.Name, Keyword: kw, Reason: err.Error()}
		}
		if wire != nil {
			params[field] = wire
		}
	}

	for _, kw := range def.Required {
		if _, ok := params[def.Fields[kw]]; !ok {
			return geoprocessing.Invocation{}, &ArgumentError{Task: def.Name, Keyword: kw, Reason: "required"}
		}
	}

	return geoprocessing.NewInvocation(def.Name, params), nil
}

// Run calls the task and decodes its declared output.
func Run(ctx context.Context, r Runner, def Definition, args Args) (*Result, error) {
	inv, err := BuildInvocation(def, args)
	if err != nil {
		return nil, err
	}

	res, err := r.RunOutputs(ctx, inv, def.Output)
	if err != nil {
		return &Result{Job: res}, err
	}

	out, err := layers.DecodeOutput(res.Outputs[def.Output])
	if err != nil {
		return &Result{Job: res}, fmt.Errorf("task %s: output %s: %w", def.Name, def.Output, err)
	}
	return &Result{Job: res, Output: out}, nil
}

// RunByName looks task up in c and runs it.
func (c Catalog) RunByName(ctx context.Context, r Runner, task string, args Args) (*Result, error) {
	def, ok := c.Lookup(task)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, task)
	}
	return Run(ctx, r, def, args)
}

func toWire(v any) (any, error) {
	switch x := v.(type) {
	case layers.Input:
		return layers.ToWire(x)
	case []layers.Input:
		out := make([]any, 0, len(x))
		for _, in := range x {
			w, err := layers.ToWire(in)
			if err != nil {
				return nil, err
			}
			out = append(out, w)
		}
		return out, nil
	case *layers.Context:
		return mapOrNil(x.ToWire()), nil
	case *layers.Extent:
		return mapOrNil(x.ToWire()), nil
	case map[string]any:
		return mapOrNil(x), nil
	default:
		return v, nil
	}
}

// mapOrNil keeps a nil map from becoming a typed non-nil interface.
func mapOrNil(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	default:
		return rv.IsZero()
	}
}
