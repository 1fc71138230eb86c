package mined

import (
	"fmt"
	"strconv"
	"strings"

	m "nessie.dev/pkg/nessie/internal/model"
)

const outerArgPrefix = "outer_arg_"

// Dataflow routes the outer callback's parameter OuterPos to the inner
// call's argument InnerPos.
type Dataflow struct {
	OuterPos int
	InnerPos int
}

// NestedExtension is a call suggested for the callback body of an outer call.
type NestedExtension struct {
	Pkg      string
	Name     string
	Sig      m.FunctionSignature
	Dataflow []Dataflow
}

// NestedExtensions returns the mined calls that were found nested in a call
// to the same function of lib with the same number of arguments. Nothing is
// returned when outer has no callback or is not called on the module itself.
func (c *Corpus) NestedExtensions(outer m.FunctionCall, lib string) []NestedExtension {
	if c == nil || !outer.Sig.HasCallback() {
		return nil
	}

	if outer.ReceiverPath().Kind != m.RootPath || outer.ReceiverPath().Module != lib {
		return nil
	}

	var exts []NestedExtension

	for _, pair := range c.nesting[lib] {
		if pair.OuterFct != outer.Name || len(pair.OuterParams) != len(outer.Sig.Args) {
			continue
		}

		sig, err := SignatureFromParams(pair.InnerParams)
		if err != nil {
			continue
		}

		exts = append(exts, NestedExtension{
			Pkg:      pair.InnerPackage(),
			Name:     pair.InnerFct,
			Sig:      sig,
			Dataflow: dataflow(pair.InnerParams),
		})
	}

	return exts
}

// SignatureFromParams converts mined parameters to a signature: callbacks
// and objects keep their type, identifiers become Any.
func SignatureFromParams(params []m.MinedParam) (m.FunctionSignature, error) {
	shape := make(m.AbstractShape, len(params))

	for i, param := range params {
		argType, err := paramType(param)
		if err != nil {
			return m.FunctionSignature{}, fmt.Errorf("parameter %d: %w", i, err)
		}

		shape[i] = argType
	}

	return m.NewSignature(shape), nil
}

func paramType(param m.MinedParam) (m.ArgType, error) {
	switch {
	case !param.IsValid():
		return 0, fmt.Errorf("mined parameter must set exactly one of ident, callback, object")
	case param.Callback != nil:
		return m.CallbackType, nil
	case param.Object != nil:
		return m.ObjectType, nil
	default:
		return m.AnyType, nil
	}
}

func dataflow(inner []m.MinedParam) []Dataflow {
	var flows []Dataflow

	for pos, param := range inner {
		if !param.IsValid() || param.Ident == nil || !strings.HasPrefix(*param.Ident, outerArgPrefix) {
			continue
		}

		outerPos, err := strconv.Atoi(strings.TrimPrefix(*param.Ident, outerArgPrefix))
		if err != nil || outerPos < 0 {
			continue
		}

		flows = append(flows, Dataflow{OuterPos: outerPos, InnerPos: pos})
	}

	return flows
}
