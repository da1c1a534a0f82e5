// Package globalregistry defines an analyzer that reports uses of the
// process-global Prometheus registry.
//
// Metrics must be registered on a registry the caller owns and passes
// around explicitly, so the analyzer flags:
//
//	prometheus.MustRegister, prometheus.Register, prometheus.Unregister
//	prometheus.DefaultRegisterer, prometheus.DefaultGatherer
//	promauto.NewCounter and the other package-level promauto constructors
//	promhttp.Handler
//
// promauto.With(reg).NewCounter and promhttp.HandlerFor are fine.
package globalregistry

import (
	"fmt"
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const (
	promPkg     = "github.com/prometheus/client_golang/prometheus"
	promautoPkg = promPkg + "/promauto"
	promhttpPkg = promPkg + "/promhttp"
)

var Analyzer = &analysis.Analyzer{
	Name:     "globalregistry",
	Doc:      "reports uses of the global Prometheus registry",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	insp, ok := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	if !ok {
		return nil, fmt.Errorf("failed to assert type: expected *inspector.Inspector")
	}

	insp.Preorder([]ast.Node{(*ast.SelectorExpr)(nil)}, func(n ast.Node) {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return
		}
		if msg := check(pass.TypesInfo.Uses[sel.Sel]); msg != "" {
			pass.Reportf(sel.Pos(), "%s uses the global Prometheus registry; %s", describe(sel), msg)
		}
	})
	return nil, nil
}

// check returns a hint when obj is one of the global-registry entry points.
func check(obj types.Object) string {
	if obj == nil || obj.Pkg() == nil {
		return ""
	}
	switch o := obj.(type) {
	case *types.Var:
		if o.Pkg().Path() == promPkg && !o.IsField() &&
			(o.Name() == "DefaultRegisterer" || o.Name() == "DefaultGatherer") {
			return "pass a *prometheus.Registry instead"
		}
	case *types.Func:
		sig, ok := o.Type().(*types.Signature)
		if !ok || sig.Recv() != nil {
			return ""
		}
		switch o.Pkg().Path() {
		case promPkg:
			switch o.Name() {
			case "MustRegister", "Register", "Unregister":
				return "call the method on an owned registry"
			}
		case promautoPkg:
			if o.Name() != "With" {
				return "use promauto.With(reg)"
			}
		case promhttpPkg:
			if o.Name() == "Handler" {
				return "use promhttp.HandlerFor"
			}
		}
	}
	return ""
}

func describe(sel *ast.SelectorExpr) string {
	if id, ok := sel.X.(*ast.Ident); ok {
		return id.Name + "." + sel.Sel.Name
	}
	return sel.Sel.Name
}
