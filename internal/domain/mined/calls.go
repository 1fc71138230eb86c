package mined

import (
	"fmt"
	"strings"

	m "nessie.dev/pkg/nessie/internal/model"
)

// notStatic marks an argument whose type or value is not statically known.
const notStatic = "_NOT_CONST_OR_FCT_"

// CallTemplate is a mined call site: the function, where it is looked up,
// and whatever is statically known about each argument.
type CallTemplate struct {
	Pkg      string
	Name     string
	Receiver m.AccessPath
	Args     []TemplateArg
}

// TemplateArg is one argument of a template; either field may be unknown.
type TemplateArg struct {
	Type  *m.ArgType
	Value *m.ArgVal
}

var minedTypes = map[string]m.ArgType{
	"number":   m.NumberType,
	"string":   m.StringType,
	"array":    m.ArrayType,
	"object":   m.ObjectType,
	"function": m.CallbackType,
}

// ParseCallTemplate decodes a mined API call.
func ParseCallTemplate(call m.MinedAPICall) (CallTemplate, error) {
	raw := strings.TrimSpace(call.AccPath)
	raw = strings.TrimPrefix(raw, "use ")
	raw = strings.TrimPrefix(raw, "def ")

	path, err := m.ParseAccessPath(raw)
	if err != nil {
		return CallTemplate{}, err
	}

	path = NormalizeExports(path)

	if path.Kind != m.FieldPath || path.Indexed {
		return CallTemplate{}, fmt.Errorf("mined access path %s is not a named member", path)
	}

	receiver, _ := path.BasePath()

	types := splitSignature(call.SigWithTypes)
	values := splitSignature(call.SigWithValues)

	args := make([]TemplateArg, len(types))
	for i, typeName := range types {
		argType, ok := minedTypes[typeName]
		if !ok {
			continue
		}

		args[i].Type = &argType

		if i < len(values) {
			args[i].Value = literal(argType, values[i])
		}
	}

	pkg := strings.ReplaceAll(call.Pkg, `"`, "")
	if pkg == "" {
		pkg = path.RootModule()
	}

	return CallTemplate{Pkg: pkg, Name: path.Name, Receiver: receiver, Args: args}, nil
}

// NormalizeExports rewrites (member exports (module M)) to (module M)
// throughout the path.
func NormalizeExports(path m.AccessPath) m.AccessPath {
	base, ok := path.BasePath()
	if !ok {
		return path
	}

	if path.Kind == m.FieldPath && !path.Indexed && path.Name == "exports" && base.Kind == m.RootPath {
		return base
	}

	normalized := path
	inner := NormalizeExports(base)
	normalized.Base = &inner

	return normalized
}

func literal(argType m.ArgType, text string) *m.ArgVal {
	if text == "" || text == notStatic {
		return nil
	}

	var val m.ArgVal

	switch argType {
	case m.NumberType:
		val = m.NewNumber(text)
	case m.StringType:
		val = m.NewString(text)
	case m.ArrayType:
		val = m.NewArray(text)
	case m.ObjectType:
		val = m.NewObject(text)
	default:
		return nil
	}

	return &val
}

// splitSignature splits "(a,b,c)" on top-level commas, keeping quoted
// strings and bracketed literals intact.
func splitSignature(sig string) []string {
	sig = strings.TrimSpace(sig)
	sig = strings.TrimPrefix(sig, "(")
	sig = strings.TrimSuffix(sig, ")")

	if strings.TrimSpace(sig) == "" {
		return nil
	}

	var (
		parts []string
		cur   strings.Builder
		quote byte
		depth int
	)

	for i := 0; i < len(sig); i++ {
		c := sig[i]

		switch {
		case quote != 0:
			cur.WriteByte(c)

			if c == '\\' && i+1 < len(sig) {
				i++
				cur.WriteByte(sig[i])
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
			cur.WriteByte(c)
		case c == '[' || c == '{' || c == '(':
			depth++
			cur.WriteByte(c)
		case c == ']' || c == '}' || c == ')':
			depth--
			cur.WriteByte(c)
		case c == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}

	return append(parts, strings.TrimSpace(cur.String()))
}
