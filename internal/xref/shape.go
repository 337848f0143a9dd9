// SPDX-License-Identifier: MPL-2.0

package xref

import "github.com/invowk/metagen/pkg/model"

// The closed list of recognized collection shapes.
const (
	ShapeSlice Shape = "slice"
	ShapeArray Shape = "array"
	ShapeMap   Shape = "map"
	ShapeSeq   Shape = "iter.Seq"
	ShapeSeq2  Shape = "iter.Seq2"
)

const iterNamespace = "iter"

// Shape names a recognized collection shape.
type Shape string

// CollectionShape returns the collection shape of t, if it is one of the
// closed list.
func CollectionShape(t model.TypeRef) (Shape, bool) {
	switch t.Kind {
	case model.KindSlice:
		return ShapeSlice, len(t.Args) == 1
	case model.KindArray:
		return ShapeArray, len(t.Args) == 1
	case model.KindMap:
		return ShapeMap, len(t.Args) == 2
	case model.KindNamed:
		switch {
		case t.Is(iterNamespace, "Seq") && len(t.Args) == 1:
			return ShapeSeq, true
		case t.Is(iterNamespace, "Seq2") && len(t.Args) == 2:
			return ShapeSeq2, true
		}
	}
	return "", false
}

// IsCollection reports whether t is a recognized collection shape.
func IsCollection(t model.TypeRef) bool {
	_, ok := CollectionShape(t)
	return ok
}

// ElementTypes returns the generic argument slots of a collection shape
// (element, or key then value), or nil when t is not a collection.
func ElementTypes(t model.TypeRef) []model.TypeRef {
	if !IsCollection(t) {
		return nil
	}
	return t.Args
}
