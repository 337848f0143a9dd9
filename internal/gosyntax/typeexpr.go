// SPDX-License-Identifier: MPL-2.0

package gosyntax

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strconv"

	"github.com/invowk/metagen/pkg/model"
)

var predeclared = map[string]bool{
	"any": true, "bool": true, "byte": true, "comparable": true, "complex64": true,
	"complex128": true, "error": true, "float32": true, "float64": true, "int": true,
	"int8": true, "int16": true, "int32": true, "int64": true, "rune": true,
	"string": true, "uint": true, "uint8": true, "uint16": true, "uint32": true,
	"uint64": true, "uintptr": true,
}

type (
	// Resolver binds the identifiers of a type expression to declarations.
	Resolver interface {
		// Local returns the reference for an unqualified, non-predeclared name.
		Local(name string) model.TypeRef
		// Qualified returns the reference for qualifier.name, or false when
		// the qualifier is unknown.
		Qualified(qualifier, name string) (model.TypeRef, bool)
	}

	// Converter turns type expressions into model references.
	Converter struct {
		// Params holds the type parameter names in scope.
		Params   map[string]bool
		Resolver Resolver
	}
)

// IsPredeclared reports whether name is a predeclared Go type.
func IsPredeclared(name string) bool { return predeclared[name] }

// ParseType parses src as a Go type expression and converts it.
func (c Converter) ParseType(src string) (model.TypeRef, error) {
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return model.TypeRef{}, fmt.Errorf("type %q: %w", src, err)
	}
	if ell, ok := expr.(*ast.Ellipsis); ok {
		return model.TypeRef{}, fmt.Errorf("type %q: variadic marker outside a parameter list", types.ExprString(ell))
	}
	return c.TypeRef(expr), nil
}

// TypeRef converts expr. Shapes the model does not break down keep their
// source spelling as KindOther.
func (c Converter) TypeRef(expr ast.Expr) model.TypeRef {
	switch x := expr.(type) {
	case *ast.ParenExpr:
		return c.TypeRef(x.X)
	case *ast.Ident:
		switch {
		case c.Params[x.Name]:
			return model.TypeParamRef(x.Name)
		case predeclared[x.Name]:
			return model.Basic(x.Name)
		}
		return c.Resolver.Local(x.Name)
	case *ast.SelectorExpr:
		if q, ok := x.X.(*ast.Ident); ok {
			if t, ok := c.Resolver.Qualified(q.Name, x.Sel.Name); ok {
				return t
			}
		}
	case *ast.IndexExpr:
		if t := c.TypeRef(x.X); t.Kind == model.KindNamed {
			t.Args = []model.TypeRef{c.TypeRef(x.Index)}
			return t
		}
	case *ast.IndexListExpr:
		if t := c.TypeRef(x.X); t.Kind == model.KindNamed {
			for _, idx := range x.Indices {
				t.Args = append(t.Args, c.TypeRef(idx))
			}
			return t
		}
	case *ast.StarExpr:
		return model.Pointer(c.TypeRef(x.X))
	case *ast.ArrayType:
		elem := c.TypeRef(x.Elt)
		if x.Len == nil {
			return model.Slice(elem)
		}
		if lit, ok := x.Len.(*ast.BasicLit); ok && lit.Kind == token.INT {
			if n, err := strconv.ParseInt(lit.Value, 0, 64); err == nil {
				return model.Array(n, elem)
			}
		}
	case *ast.MapType:
		return model.Map(c.TypeRef(x.Key), c.TypeRef(x.Value))
	case *ast.ChanType:
		dir := model.ChanBoth
		switch x.Dir {
		case ast.SEND:
			dir = model.ChanSend
		case ast.RECV:
			dir = model.ChanRecv
		}
		return model.Chan(dir, c.TypeRef(x.Value))
	case *ast.FuncType:
		return model.TypeRef{Kind: model.KindFunc, Name: types.ExprString(expr)}
	case *ast.InterfaceType:
		return model.TypeRef{Kind: model.KindInterface, Name: types.ExprString(expr)}
	}
	return model.TypeRef{Kind: model.KindOther, Name: types.ExprString(expr)}
}
