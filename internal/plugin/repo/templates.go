// SPDX-License-Identifier: MPL-2.0

package repo

import "text/template"

var wrappersTemplate = template.Must(template.New("wrappers").Parse(`{{.Header}}
// Source: {{.Display}}

package {{.Package}}

{{.Imports}}
{{range .Wrappers}}
// {{.Name}} calls {{.Method}} and returns its result as a meta.Async.
func {{.Name}}(recv {{.Receiver}}{{range .Params}}, {{.Name}} {{.Type}}{{end}}) meta.Async[{{.Value}}] {
{{- if eq .Shape "void"}}
	recv.{{.Method}}({{.Args}})
	return meta.Value(struct{}{})
{{- else if eq .Shape "error"}}
	return meta.Resolved(struct{}{}, recv.{{.Method}}({{.Args}}))
{{- else if eq .Shape "value"}}
	return meta.Value(recv.{{.Method}}({{.Args}}))
{{- else if eq .Shape "value_error"}}
	v, err := recv.{{.Method}}({{.Args}})
	return meta.Resolved(v, err)
{{- else if eq .Shape "async"}}
	return recv.{{.Method}}({{.Args}})
{{- else if eq .Shape "chan"}}
	return meta.FromChan(recv.{{.Method}}({{.Args}}))
{{- end}}
}
{{end}}`))

var registryTemplate = template.Must(template.New("repo registry").Parse(`{{.Header}}

package {{.Package}}

import "github.com/invowk/metagen/pkg/meta"

// {{.RegisterFunc}} attaches the repository facets of this scope to their
// descriptors in r.
func {{.RegisterFunc}}(r *meta.Registry) {
{{- range .Facets}}
	r.AddFacet({{.Accessor}}(), &meta.RepositoryFacet{
		Bucket: {{printf "%q" .Bucket}},
		Operations: []meta.Operation{
{{- range .Operations}}
			{Name: {{printf "%q" .Method}}, Wrapper: {{printf "%q" .Name}}, Call: {{.Name}}},
{{- end}}
		},
	})
{{- end}}
}
`))
