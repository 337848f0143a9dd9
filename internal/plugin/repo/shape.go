// SPDX-License-Identifier: MPL-2.0

package repo

import (
	"github.com/invowk/metagen/pkg/meta"
	"github.com/invowk/metagen/pkg/model"
)

// Supported method return shapes.
const (
	shapeVoid       returnShape = "void"
	shapeError      returnShape = "error"
	shapeValue      returnShape = "value"
	shapeValueError returnShape = "value_error"
	shapeAsync      returnShape = "async"
	shapeChan       returnShape = "chan"
)

type returnShape string

// classify returns the shape of results and the value type T of the
// normalized meta.Async[T]. ok is false for unsupported shapes.
func classify(results []model.TypeRef) (shape returnShape, value model.TypeRef, ok bool) {
	unit := model.TypeRef{Kind: model.KindOther, Name: "struct{}"}
	switch len(results) {
	case 0:
		return shapeVoid, unit, true
	case 1:
		r := results[0]
		switch {
		case isError(r):
			return shapeError, unit, true
		case isMeta(r, "Async"):
			return shapeAsync, r.Args[0], true
		case r.Kind == model.KindChan && r.Dir != model.ChanSend && len(r.Args) == 1 && isMeta(r.Args[0], "Result"):
			return shapeChan, r.Args[0].Args[0], true
		default:
			return shapeValue, r, true
		}
	case 2:
		if isError(results[1]) && !isError(results[0]) {
			return shapeValueError, results[0], true
		}
	}
	return "", model.TypeRef{}, false
}

func isError(t model.TypeRef) bool {
	return t.Kind == model.KindBasic && t.Name == "error"
}

func isMeta(t model.TypeRef, name string) bool {
	return t.Is(meta.ImportPath, name) && len(t.Args) == 1
}
