// Command adtrace records one of a small set of built-in example
// functions, runs a Forward(0)/Reverse(0) pass at a point given on
// the command line, and prints the value and gradient. It exists to
// give the engine a runnable end-to-end smoke test, in the shape of
// the small flag-driven demo binaries the example pack's own cmd/
// directories use.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/dtolpin/tapead/ad"
	"github.com/dtolpin/tapead/vector"
)

var functions = map[string]struct {
	domain int
	def    func(x []ad.Value[float64]) []ad.Value[float64]
}{
	"expsin": {2, func(x []ad.Value[float64]) []ad.Value[float64] {
		return []ad.Value[float64]{x[0].Exp().Mul(x[1].Sin())}
	}},
	"poly": {1, func(x []ad.Value[float64]) []ad.Value[float64] {
		x2 := x[0].Mul(x[0])
		x3 := x2.Mul(x[0])
		return []ad.Value[float64]{x3.Add(x2.Mul(ad.Const(&ad.Float64Field, 2)))}
	}},
	"condexp": {1, func(x []ad.Value[float64]) []ad.Value[float64] {
		// F(x) = CondExp(x<0, -x, x): CondExp(cmp, a, b) chooses a
		// when cmp>=0, so a=x and b=-x gives the spec's branch.
		return []ad.Value[float64]{ad.CondExp(x[0], x[0], x[0].Neg())}
	}},
}

func main() {
	name := flag.String("f", "expsin", "built-in function to trace: expsin, poly, condexp")
	point := flag.String("x", "", "comma-separated point to evaluate at")
	flag.Parse()

	spec, ok := functions[*name]
	if !ok {
		log.Fatalf("adtrace: unknown function %q", *name)
	}
	x0, err := parsePoint(*point, spec.domain)
	if err != nil {
		log.Fatalf("adtrace: %v", err)
	}

	x := make([]ad.Value[float64], spec.domain)
	for i := range x {
		x[i] = ad.Const(&ad.Float64Field, 0)
	}
	rec := ad.Independent(ad.Float64Field, x)
	y := spec.def(x)
	fn := ad.NewFunction(rec, y)

	yp := vector.Of(fn.Forward(0, x0.Slice()))
	grad := vector.Of(fn.Reverse(0, onesWeighted(yp)))

	fmt.Printf("value: %v\n", yp.Slice())
	fmt.Printf("gradient: %v\n", grad.Slice())
	if cc := fn.CompareChange(); cc > 0 {
		fmt.Printf("compare changes: %d\n", cc)
	}
}

func onesWeighted(y vector.Vector[float64]) []float64 {
	w := make([]float64, y.Len())
	for i := range w {
		w[i] = 1
	}
	return w
}

// parsePoint returns the point to evaluate at as a vector.Vector,
// the engine's bounds-checked counterpart of a bare []float64 (C12).
func parsePoint(s string, n int) (vector.Vector[float64], error) {
	x := vector.New[float64](n)
	if s == "" {
		for i := 0; i < n; i++ {
			x.Set(i, 1)
		}
		return x, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return x, fmt.Errorf("expected %d comma-separated values, got %d", n, len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return x, fmt.Errorf("value %d: %w", i, err)
		}
		x.Set(i, v)
	}
	return x, nil
}
