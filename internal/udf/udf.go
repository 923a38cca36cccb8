// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

// Package udf loads user-submitted transformation functions. Source
// text is executed by an embedded Starlark interpreter under hard
// resource limits instead of being handed to a host-language eval, so
// submitted code can neither import anything nor outlive its budget.
package udf

import (
	"errors"
	"fmt"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Sentinel errors returned by Load and Invoke.
var (
	ErrCodeExecution     = errors.New("transformation code failed to execute")
	ErrNoFunction        = errors.New("no function defined in transformation code")
	ErrAmbiguousFunction = errors.New("more than one function defined in transformation code")
	ErrMissingParameter  = errors.New("missing transformation parameter")
)

const (
	defaultMaxSteps    = uint64(100_000)
	defaultTimeout     = 2 * time.Second
	maxSourceBytes     = 256 * 1024
	paramContext    = "context"
	paramStatistics = "statistics"
)

// Shape classifies a transformation by how many data inputs it takes
// and how many outputs it declares.
type Shape string

const (
	OneToOne   Shape = "one-to-one"
	OneToMany  Shape = "one-to-many"
	ManyToOne  Shape = "many-to-one"
	ManyToMany Shape = "many-to-many"
)

func classifyShape(dataParams, outputs int) Shape {
	switch {
	case dataParams <= 1 && outputs <= 1:
		return OneToOne
	case dataParams <= 1:
		return OneToMany
	case outputs <= 1:
		return ManyToOne
	default:
		return ManyToMany
	}
}

// Parameter is one declared parameter of a loaded function.
type Parameter struct {
	Name string
	// Special parameters are bound by the runtime, not by caller
	// input: "statistics" receives feature statistics and "context"
	// receives caller context variables.
	Special bool
}

// Function is a loaded transformation callable with its introspected
// signature.
type Function struct {
	Name       string
	Parameters []Parameter

	fn       *starlark.Function
	maxSteps uint64
	timeout  time.Duration
}

// DataParameters returns the names of the parameters fed from input
// data in declaration order.
func (f *Function) DataParameters() []string {
	var names []string
	for _, p := range f.Parameters {
		if !p.Special {
			names = append(names, p.Name)
		}
	}
	return names
}

// Shape classifies the function given how many output types it is
// registered with.
func (f *Function) Shape(outputs int) Shape {
	return classifyShape(len(f.DataParameters()), outputs)
}

// Loader executes transformation source under fixed resource limits.
// The zero value is not usable; call NewLoader.
type Loader struct {
	maxSteps uint64
	timeout  time.Duration
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithMaxSteps caps the interpreter step budget for both load and
// invoke.
func WithMaxSteps(n uint64) LoaderOption {
	return func(l *Loader) { l.maxSteps = n }
}

// WithTimeout caps the wall time of load and invoke.
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) { l.timeout = d }
}

// NewLoader creates a Loader with default limits.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		maxSteps: defaultMaxSteps,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load executes source and returns the single function it defines.
// Zero functions is an error, and so is more than one: the caller must
// submit exactly the transformation being registered.
func (l *Loader) Load(source string) (*Function, error) {
	if len(source) > maxSourceBytes {
		return nil, fmt.Errorf("%w: source exceeds %d bytes", ErrCodeExecution, maxSourceBytes)
	}

	thread := &starlark.Thread{Name: "udf-load"}
	thread.SetMaxExecutionSteps(l.maxSteps)

	var globals starlark.StringDict
	err := runWithTimeout(thread, l.timeout, func() error {
		loaded, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, "transformation.star", source, nil)
		if err != nil {
			return err
		}
		globals = loaded
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodeExecution, err)
	}

	var fn *starlark.Function
	for _, name := range globals.Keys() {
		candidate, ok := globals[name].(*starlark.Function)
		if !ok {
			continue
		}
		if fn != nil {
			return nil, fmt.Errorf("%w: found %q and %q", ErrAmbiguousFunction, fn.Name(), candidate.Name())
		}
		fn = candidate
	}
	if fn == nil {
		return nil, ErrNoFunction
	}

	params := make([]Parameter, fn.NumParams())
	for i := range params {
		name, _ := fn.Param(i)
		params[i] = Parameter{
			Name:    name,
			Special: name == paramStatistics || name == paramContext,
		}
	}

	return &Function{
		Name:       fn.Name(),
		Parameters: params,
		fn:         fn,
		maxSteps:   l.maxSteps,
		timeout:    l.timeout,
	}, nil
}

// InvokeOptions supplies the bindings for special parameters.
type InvokeOptions struct {
	// Statistics backs a parameter named "statistics".
	Statistics TransformationStatistics
	// Context backs a parameter named "context".
	Context map[string]any
}

// Invoke calls the function with one value per data parameter taken
// from input and returns the normalized result: lists become slices,
// dicts become maps, tuples become multi-output slices, scalars pass
// through.
func (f *Function) Invoke(input map[string]any, opts InvokeOptions) (any, error) {
	args := make(starlark.Tuple, 0, len(f.Parameters))
	for _, p := range f.Parameters {
		switch p.Name {
		case paramStatistics:
			args = append(args, opts.Statistics.value())
		case paramContext:
			ctxValue, err := toStarlark(opts.Context)
			if err != nil {
				return nil, fmt.Errorf("%w: context: %v", ErrCodeExecution, err)
			}
			args = append(args, ctxValue)
		default:
			raw, ok := input[p.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrMissingParameter, p.Name)
			}
			value, err := toStarlark(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: parameter %q: %v", ErrCodeExecution, p.Name, err)
			}
			args = append(args, value)
		}
	}

	thread := &starlark.Thread{Name: "udf-invoke"}
	thread.SetMaxExecutionSteps(f.maxSteps)

	var result starlark.Value
	err := runWithTimeout(thread, f.timeout, func() error {
		out, err := starlark.Call(thread, f.fn, args, nil)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodeExecution, err)
	}
	return fromStarlark(result)
}

// runWithTimeout cancels the thread when fn outlives the budget.
func runWithTimeout(thread *starlark.Thread, timeout time.Duration, fn func() error) error {
	if timeout <= 0 {
		return fn()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		thread.Cancel("execution timed out")
		<-done
		return fmt.Errorf("execution timed out after %s", timeout)
	}
}
