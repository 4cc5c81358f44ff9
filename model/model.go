package model

import (
	"context"
	"fmt"

	"github.com/hupe1980/salesmesh/core"
)

// DefaultMaxModelCalls bounds the number of model rounds per turn. Each round
// either answers or requests function calls; the bound stops a model that
// keeps requesting tools from looping forever.
const DefaultMaxModelCalls = 8

// Index maps declared functions by name for dispatch.
func Index(fns []core.FunctionDecl) map[string]core.FunctionDecl {
	decls := make(map[string]core.FunctionDecl, len(fns))
	for _, fn := range fns {
		decls[fn.Name] = fn
	}
	return decls
}

// Execute dispatches one function call and always returns result text. An
// unknown function or a failing call renders as failure text the model can
// read and recover from; non-string return values render structurally via
// core.RenderResult.
func Execute(ctx context.Context, decls map[string]core.FunctionDecl, name string, args map[string]any) string {
	decl, ok := decls[name]
	if !ok {
		return fmt.Sprintf("unknown function %q", name)
	}
	result, err := decl.Call(ctx, args)
	if err != nil {
		return fmt.Sprintf("function %s failed: %v", name, err)
	}
	return core.RenderResult(result)
}
