// SPDX-License-Identifier: MPL-2.0

package basegen

import "text/template"

var descriptorTemplate = template.Must(template.New("descriptor").Parse(`{{.Header}}
// Source: {{.Display}}

package {{.Package}}

import (
	"sync"

	"github.com/invowk/metagen/pkg/meta"
)

var (
	{{.Once}} sync.Once
	{{.Value}} *meta.TypeDescriptor
)

// {{.Accessor}} returns the metadata descriptor of {{.Display}}.
func {{.Accessor}}() *meta.TypeDescriptor {
	{{.Once}}.Do(func() {
		{{.Value}} = &meta.TypeDescriptor{
			Module: {{printf "%q" .Module}},
			Namespace: {{printf "%q" .Namespace}},
			Name: {{printf "%q" .Name}},
{{- if .Arity}}
			Arity: {{.Arity}},
{{- end}}
			Kind: {{printf "%q" .Kind}},
{{- if .TypeParams}}
			GenericArguments: []meta.TypeParameter{
{{- range .TypeParams}}
				{Name: {{printf "%q" .Name}}, Constraint: {{printf "%q" .Constraint}}},
{{- end}}
			},
{{- end}}
{{- if .Decorations}}
			Decorations: []meta.Decoration{
{{- range .Decorations}}
				{Namespace: {{printf "%q" .Namespace}}, Name: {{printf "%q" .Name}}},
{{- end}}
			},
{{- end}}
{{- if .Members}}
			Members: []meta.MemberDescriptor{
{{- range .Members}}
				{
					Name: {{printf "%q" .Name}},
					Type: {{printf "%q" .Type}},
{{- if .Settable}}
					Settable: true,
{{- end}}
{{- if .Collection}}
					Collection: true,
{{- end}}
{{- if .GenericArguments}}
					GenericArguments: []string{ {{- range $i, $a := .GenericArguments}}{{if $i}}, {{end}}{{printf "%q" $a}}{{end -}} },
{{- end}}
{{- if .Decorations}}
					Decorations: []meta.Decoration{
{{- range .Decorations}}
						{Namespace: {{printf "%q" .Namespace}}, Name: {{printf "%q" .Name}}},
{{- end}}
					},
{{- end}}
{{- if .Reference}}
					Reference: {{.Reference}},
{{- end}}
				},
{{- end}}
			},
{{- end}}
		}
	})
	return {{.Value}}
}
`))

var registryTemplate = template.Must(template.New("registry").Parse(`{{.Header}}

package {{.Package}}

import "github.com/invowk/metagen/pkg/meta"

// Descriptors returns every metadata descriptor of this scope, sorted by
// descriptor name.
func Descriptors() []*meta.TypeDescriptor {
	return []*meta.TypeDescriptor{
{{- range .Accessors}}
		{{.}}(),
{{- end}}
	}
}

// {{.RegisterFunc}} adds every metadata descriptor of this scope to r.
func {{.RegisterFunc}}(r *meta.Registry) {
	r.Register(Descriptors()...)
}
`))
