// SPDX-License-Identifier: MPL-2.0

package gosyntax

import (
	"strconv"
	"strings"

	"github.com/invowk/metagen/pkg/model"
)

// StructTags splits a struct tag into one decoration of namespace ns per key,
// with the value as the only argument. It follows the conventional
// key:"value" syntax and stops at the first malformed pair.
func StructTags(ns, tag string) []model.Decoration {
	var out []model.Decoration
	for {
		tag = strings.TrimLeft(tag, " ")
		if tag == "" {
			return out
		}
		i := 0
		for i < len(tag) && tag[i] > ' ' && tag[i] != ':' && tag[i] != '"' && tag[i] != 0x7f {
			i++
		}
		if i == 0 || i+1 >= len(tag) || tag[i] != ':' || tag[i+1] != '"' {
			return out
		}
		key := tag[:i]
		tag = tag[i+1:]

		i = 1
		for i < len(tag) && tag[i] != '"' {
			if tag[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(tag) {
			return out
		}
		value, err := strconv.Unquote(tag[:i+1])
		if err != nil {
			return out
		}
		tag = tag[i+1:]
		out = append(out, model.Decoration{Namespace: ns, Name: key, Args: []model.Literal{model.String(value)}})
	}
}
