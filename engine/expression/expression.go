// Package expression holds keyframe values: baked constants, authored numbers and scripted
// expressions evaluated against an explicit per-instance query context.
package expression

import (
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/pkg/errors"
)

// Context carries the query values an expression can read while it is sampled.
// One Context belongs to one instance and is filled by the host before controllers run.
type Context struct {
	// AnimTime is the controller's local tick, exposed as query.anim_time.
	AnimTime float64

	// LifeTime is the host time for the instance, exposed as query.life_time.
	LifeTime float64

	// Values are additional host-supplied queries, exposed as query.<name>.
	Values map[string]float64
}

// NewContext creates an empty evaluation context.
//
// Returns:
//   - *Context: the new context
func NewContext() *Context {
	return &Context{Values: make(map[string]float64)}
}

// Set stores a named query value.
//
// Parameters:
//   - name: the query name, read by scripts as query.<name>
//   - v: the value
func (c *Context) Set(name string, v float64) {
	if c.Values == nil {
		c.Values = make(map[string]float64)
	}
	c.Values[name] = v
}

func (c *Context) object() *tengo.ImmutableMap {
	values := make(map[string]tengo.Object, len(c.Values)+2)
	for k, v := range c.Values {
		values[k] = &tengo.Float{Value: v}
	}
	values["anim_time"] = &tengo.Float{Value: c.AnimTime}
	values["life_time"] = &tengo.Float{Value: c.LifeTime}
	return &tengo.ImmutableMap{Value: values}
}

// Value is a single keyframe endpoint.
type Value interface {
	// Get evaluates the value.
	//
	// Parameters:
	//   - ctx: the query context, may be nil
	//
	// Returns:
	//   - float64: the evaluated value
	Get(ctx *Context) float64

	// IsConstant reports whether the value is already in model units.
	// Constant values bypass the degree conversion applied to rotation channels.
	IsConstant() bool
}

// Constant is a value already expressed in model units.
type Constant float64

// Get returns the constant.
func (c Constant) Get(*Context) float64 { return float64(c) }

// IsConstant always returns true.
func (c Constant) IsConstant() bool { return true }

// Scalar is an authored number. Rotation scalars are in degrees.
type Scalar float64

// Get returns the number.
func (s Scalar) Get(*Context) float64 { return float64(s) }

// IsConstant always returns false.
func (s Scalar) IsConstant() bool { return false }

const resultVar = "__result"

// Expression is a compiled script evaluated on every Get. Scripts see a read-only query map and
// the tengo math module, e.g. "math.sin(query.anim_time * 0.3) * 15".
type Expression struct {
	mu sync.Mutex

	source   string
	compiled *tengo.Compiled
	logger   *log.Logger
	failed   bool
}

var _ Value = &Expression{}

// Compile builds an Expression from source.
//
// Parameters:
//   - source: the expression text
//
// Returns:
//   - *Expression: the compiled expression
//   - error: error if the source does not compile
func Compile(source string) (*Expression, error) {
	src := "math := import(\"math\")\n" + resultVar + " := float(" + source + ")\n"
	script := tengo.NewScript([]byte(src))
	script.SetImports(stdlib.GetModuleMap("math"))
	if err := script.Add("query", map[string]any{}); err != nil {
		return nil, errors.Wrap(err, "expression: declare query")
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, errors.Wrapf(err, "expression: compile %q", source)
	}
	return &Expression{
		source:   source,
		compiled: compiled,
		logger:   log.Default(),
	}, nil
}

// Get runs the script against ctx. A failing script logs once and evaluates to 0.
func (e *Expression) Get(ctx *Context) float64 {
	if ctx == nil {
		ctx = &Context{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.compiled.Set("query", ctx.object()); err != nil {
		return e.fail(err)
	}
	if err := e.compiled.Run(); err != nil {
		return e.fail(err)
	}
	return e.compiled.Get(resultVar).Float()
}

func (e *Expression) fail(err error) float64 {
	if !e.failed {
		e.logger.Printf("[expression] eval %q: %v", e.source, err)
		e.failed = true
	}
	return 0
}

// IsConstant always returns false.
func (e *Expression) IsConstant() bool { return false }

// Source returns the expression text.
func (e *Expression) Source() string { return e.source }

// Parse turns authored text into a Value: numeric text becomes a Scalar, anything else is compiled.
//
// Parameters:
//   - text: the authored value
//
// Returns:
//   - Value: the parsed value
//   - error: error if the text is neither a number nor a valid expression
func Parse(text string) (Value, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Scalar(0), nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return Scalar(f), nil
	}
	return Compile(text)
}
