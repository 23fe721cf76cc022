package expr

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/pkg/errors"

	"morselsql/internal/types"
)

// scalarFunctions is the closed table of row-at-a-time builtins. It
// deliberately excludes aggregate/window functions: those are resolved
// against the Aggregator node kind and evaluated by internal/exec's
// hash/sort aggregation operators, which hold cross-row state Eval does
// not have access to.
var scalarFunctions = map[string]func(args []types.Value) (types.Value, error){
	"UPPER": func(a []types.Value) (types.Value, error) {
		return types.NewValue(strings.ToUpper(str(a[0])), types.Varchar), nil
	},
	"LOWER": func(a []types.Value) (types.Value, error) {
		return types.NewValue(strings.ToLower(str(a[0])), types.Varchar), nil
	},
	"LENGTH": func(a []types.Value) (types.Value, error) {
		return types.NewValue(int64(len([]rune(str(a[0])))), types.Integer), nil
	},
	"TRIM": func(a []types.Value) (types.Value, error) {
		return types.NewValue(strings.TrimSpace(str(a[0])), types.Varchar), nil
	},
	"ROUND": func(a []types.Value) (types.Value, error) {
		return types.NewValue(math.Round(num(a[0])), types.Double), nil
	},
	"ABS": func(a []types.Value) (types.Value, error) {
		return types.NewValue(math.Abs(num(a[0])), types.Double), nil
	},
	"CONCAT": func(a []types.Value) (types.Value, error) {
		var b strings.Builder
		for _, v := range a {
			b.WriteString(str(v))
		}
		return types.NewValue(b.String(), types.Varchar), nil
	},
	// RANDOM()-family: non-deterministic, blocked from ConstantFolding
	// by IsDeterministic/isNonDeterministic in expr.go.
	"RANDOM": func(a []types.Value) (types.Value, error) {
		return types.NewValue(rand.Float64(), types.Double), nil
	},
	"RAND": func(a []types.Value) (types.Value, error) {
		return types.NewValue(rand.Float64(), types.Double), nil
	},
	"NORMAL": func(a []types.Value) (types.Value, error) {
		return types.NewValue(rand.NormFloat64(), types.Double), nil
	},
	"RANDOM_STRING": func(a []types.Value) (types.Value, error) {
		n := 8
		if len(a) > 0 {
			n = int(num(a[0]))
		}
		const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
		out := make([]byte, n)
		for i := range out {
			out[i] = alphabet[rand.Intn(len(alphabet))]
		}
		return types.NewValue(string(out), types.Varchar), nil
	},
}

func str(v types.Value) string {
	if v.IsNull() {
		return ""
	}
	return fmt.Sprintf("%v", v.Raw)
}

func num(v types.Value) float64 {
	return toFloat(v)
}

func evalFunction(n *Node, row Row) (types.Value, error) {
	fn, ok := scalarFunctions[strings.ToUpper(n.FunctionName)]
	if !ok {
		return types.Value{}, errors.Errorf("unknown function %q", n.FunctionName)
	}
	args := make([]types.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, row)
		if err != nil {
			return types.Value{}, err
		}
		args[i] = v
	}
	for _, a := range args {
		if a.IsNull() {
			return types.NewValue(nil, n.ResolvedType), nil
		}
	}
	return fn(args)
}
