package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultCacheSize bounds the compiled programs kept by the default compiler
const DefaultCacheSize = 64

var defaultCompiler = NewCompiler(WithCache(DefaultCacheSize))

// Compile compiles expression with the shared, cached compiler
func Compile(expression string) (*Filter, error) {
	return defaultCompiler.Compile(expression)
}

// Filter is a compiled boolean expression over entity fields. Fields are
// addressed by their JSON names, e.g. `status == "AVAILABLE"` or
// `has(title, "quijote")`. Filters are safe for concurrent use.
type Filter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
}

// Option configures a Compiler
type Option func(*Compiler)

// WithCache enables caching of compiled filters with the specified size
func WithCache(size int) Option {
	return func(c *Compiler) {
		if size > 0 {
			c.cache = newLRUCache[*Filter](size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) Option {
	return func(c *Compiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// WithClock replaces the time source used by the date helpers
func WithClock(now func() time.Time) Option {
	return func(c *Compiler) {
		c.now = now
	}
}

// Compiler turns expressions into Filters
type Compiler struct {
	helperFuncs map[string]any
	cache       *lruCache[*Filter]
	now         func() time.Time
}

// NewCompiler creates a new expr-based filter compiler
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		helperFuncs: make(map[string]any, 16),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Custom functions override the built-in helpers of the same name
	custom := c.helperFuncs
	c.helperFuncs = createHelperFunctions(c.now)
	maps.Copy(c.helperFuncs, custom)
	return c
}

// Compile compiles an expression into a Filter
func (c *Compiler) Compile(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(c.helperFuncs),
		expr.AllowUndefinedVariables(), // entity fields are only known at run time
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	f := &Filter{
		expression: expression,
		program:    program,
		helpers:    c.helperFuncs,
	}

	if c.cache != nil {
		c.cache.Put(expression, f)
	}
	return f, nil
}

// Clear removes all cached filters
func (c *Compiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *Compiler) Size() int {
	if c.cache != nil {
		return c.cache.Len()
	}
	return 0
}

// Expression returns the original expression
func (f *Filter) Expression() string {
	return f.expression
}

// Match evaluates the filter against item
func (f *Filter) Match(item any) (bool, error) {
	env, err := environment(item)
	if err != nil {
		return false, &EvaluationError{Expression: f.expression, Reason: "item is not serializable", Err: err}
	}
	maps.Copy(env, f.helpers)

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, &EvaluationError{Expression: f.expression, Reason: err.Error(), Err: err}
	}
	// AsBool guarantees the type
	return result.(bool), nil
}

// Apply returns the items f matches, in order. Items the filter cannot be
// evaluated against are skipped.
func Apply[T any](f *Filter, items []T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if ok, err := f.Match(item); err == nil && ok {
			out = append(out, item)
		}
	}
	return out
}

// environment exposes item through the same field names it has on the wire
func environment(item any) (map[string]any, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}

	env := make(map[string]any, 32)
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		var value any
		if err := json.Unmarshal(data, &value); err != nil {
			return nil, err
		}
		env["value"] = value
		return env, nil
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return env, nil
}

// createHelperFunctions creates the helper functions available to every expression
func createHelperFunctions(now func() time.Time) map[string]any {
	funcs := make(map[string]any, 16)

	// Date helpers
	funcs["parseDate"] = func(s string) time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return t
	}
	funcs["daysSince"] = func(v any) int {
		t, ok := asTime(v)
		if !ok {
			return 0
		}
		return int(now().Sub(t).Hours() / 24)
	}
	funcs["daysAgo"] = func(days int) time.Time {
		return now().AddDate(0, 0, -days)
	}
	funcs["before"] = func(v any, than time.Time) bool {
		t, ok := asTime(v)
		return ok && t.Before(than)
	}
	funcs["after"] = func(v any, than time.Time) bool {
		t, ok := asTime(v)
		return ok && t.After(than)
	}
	funcs["now"] = now

	// String helpers, case-insensitive. contains, startsWith and endsWith
	// are expr operators and cannot be used as function names.
	funcs["has"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	funcs["beginsWith"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	funcs["endsIn"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	funcs["lower"] = strings.ToLower
	funcs["upper"] = strings.ToUpper

	return funcs
}

// asTime accepts wire dates, RFC 3339 timestamps and time values
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		if parsed, err := time.Parse("2006-01-02", t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
		return time.Time{}, false
	case fmt.Stringer:
		return asTime(t.String())
	default:
		return time.Time{}, false
	}
}
