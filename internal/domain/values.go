package domain

import (
	"math/rand/v2"
	"strconv"
	"strings"

	m "nessie.dev/pkg/nessie/internal/model"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// PathResolver resolves a toy filesystem path to its canonical form. It fails
// when the path no longer exists.
type PathResolver interface {
	CanonicalPath(path m.Path) (m.Path, error)
}

// valueGenerator draws random types and literal values.
type valueGenerator struct {
	rnd      *rand.Rand
	cfg      GenConfig
	fsPaths  []m.Path
	toyBase  m.Path
	resolver PathResolver
}

func (g *valueGenerator) chance(p float64) bool {
	return g.rnd.Float64() < p
}

// randomArgType picks a random argument type. Callback and lib-function types
// are only drawn when allowCallbacks is set, and Any only together with them.
func (g *valueGenerator) randomArgType(allowCallbacks, allowAny bool) m.ArgType {
	types := append([]m.ArgType{}, m.PrimitiveArgTypes...)

	if allowCallbacks {
		types = append(types, m.CallbackType, m.LibFunctionType)

		if allowAny {
			types = append(types, m.AnyType)
		}
	}

	return types[g.rnd.IntN(len(types))]
}

// randomArity returns a random argument count up to the configured maximum.
func (g *valueGenerator) randomArity() int {
	return g.rnd.IntN(g.cfg.MaxArgs + 1)
}

// randomCallbackPosition returns a position in 0..2*numArgs; positions past
// the last argument mean no callback, so about half the draws place none.
func (g *valueGenerator) randomCallbackPosition(numArgs int) *int {
	if numArgs == 0 {
		return nil
	}

	pos := g.rnd.IntN(2*numArgs + 1)

	return &pos
}

// newSignature builds a random signature of numArgs arguments, forcing a
// callback at cbPos when it is a valid position.
func (g *valueGenerator) newSignature(numArgs int, cbPos *int) m.FunctionSignature {
	shape := make(m.AbstractShape, numArgs)

	for i := range shape {
		if cbPos != nil && *cbPos == i {
			shape[i] = m.CallbackType

			continue
		}

		shape[i] = g.randomArgType(g.cfg.AllowMultipleCallbacks, g.cfg.AllowAny)
	}

	return m.NewSignature(shape)
}

func (g *valueGenerator) number() m.ArgVal {
	n := g.rnd.IntN(2*g.cfg.MaxNum+1) - g.cfg.MaxNum

	return m.NewNumber(strconv.Itoa(n))
}

func (g *valueGenerator) randomString() string {
	n := 1 + g.rnd.IntN(max(g.cfg.MaxStringLen, 1))

	var sb strings.Builder
	for range n {
		sb.WriteByte(alphanumeric[g.rnd.IntN(len(alphanumeric))])
	}

	return sb.String()
}

// str draws a string literal; with includeFS it is a toy filesystem path
// when any are known. A path that no longer resolves is replaced by a fresh
// name inside the toy directory.
func (g *valueGenerator) str(includeFS bool) m.ArgVal {
	if !includeFS || len(g.fsPaths) == 0 {
		return m.NewString(m.QuoteString(g.randomString()))
	}

	path := g.fsPaths[g.rnd.IntN(len(g.fsPaths))]

	if g.resolver != nil {
		canonical, err := g.resolver.CanonicalPath(path)
		if err != nil {
			return m.NewString(m.QuoteString(string(g.toyBase) + "/" + g.randomString()))
		}

		path = canonical
	}

	return m.NewString(m.QuoteString(string(path)))
}

// array builds an array of numbers, strings, or both.
func (g *valueGenerator) array() m.ArgVal {
	n := g.rnd.IntN(g.cfg.MaxArrayLen + 1)
	kind := g.rnd.IntN(4)

	elems := make([]string, n)
	for i := range elems {
		if kind == 0 || (kind == 2 && g.rnd.IntN(2) == 0) {
			elems[i] = g.number().Literal
		} else {
			elems[i] = g.str(true).Literal
		}
	}

	return m.NewArray("[" + strings.Join(elems, ", ") + "]")
}

// object builds an object whose values are numbers or strings.
func (g *valueGenerator) object() m.ArgVal {
	n := g.rnd.IntN(g.cfg.MaxObjLen + 1)

	fields := make([]string, n)
	for i := range fields {
		value := g.str(true).Literal
		if g.rnd.IntN(2) == 0 {
			value = g.number().Literal
		}

		fields[i] = g.str(false).Literal + ": " + value
	}

	return m.NewObject("{" + strings.Join(fields, ", ") + "}")
}

// callback builds a callback with a random parameter list.
func (g *valueGenerator) callback(argPos int) m.ArgVal {
	numArgs := g.randomArity()
	sig := g.newSignature(numArgs, g.randomCallbackPosition(numArgs))

	return m.NewCallback(m.Callback{Sig: sig, ArgPos: &argPos})
}
