// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	ConfigLoadFailedId Id = iota + 1
	ModelLoadFailedId
	UnknownStrategyId
	PassFailedId
	WriteFailedId
)

type (
	// Id identifies an entry of the issue catalog.
	Id int

	// MarkdownMsg is the Markdown guidance shown for an issue.
	MarkdownMsg string

	// HttpLink is a documentation link.
	HttpLink string

	// Issue is a catalog entry: what went wrong and how to recover.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

// Id returns the catalog identifier.
func (i *Issue) Id() Id { return i.id }

// MarkdownMsg returns the raw Markdown guidance.
func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

// DocLinks returns the documentation links of the issue.
func (i *Issue) DocLinks() []HttpLink { return slices.Clone(i.docLinks) }

// Markdown returns the guidance followed by a "See also" list.
func (i *Issue) Markdown() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(string(i.mdMsg)))
	if len(i.docLinks) > 0 {
		b.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			b.WriteString("\n- <" + string(link) + ">")
		}
	}
	b.WriteString("\n")
	return b.String()
}

// Render renders the guidance for a terminal with the named glamour style
// ("dark", "light", "notty" or a style file path).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded

metagen looks for **metagen.cue**, **metagen.json** or **metagen.toml** in the
working directory, or reads the file passed with ` + "`--config`" + `.

## Things you can try
- Check that the file exists and is readable
- Print the effective configuration:
~~~
$ metagen config show
~~~`,
		docLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	modelLoadFailedIssue = &Issue{
		id: ModelLoadFailedId,
		mdMsg: `
# Program model could not be loaded

The Go packages (or the model document given with ` + "`--model`" + `) could
not be read.

## Things you can try
- Run the command from inside the module that owns the packages
- Make sure the package patterns match at least one package
- Validate a model document against the embedded schema by loading it alone:
~~~
$ metagen generate --model shop.model.cue --dry-run
~~~`,
	}

	unknownStrategyIssue = &Issue{
		id: UnknownStrategyId,
		mdMsg: `
# Unknown discovery strategy

A strategy named in ` + "`discovery.strategies`" + ` is not registered, so no
artifact was produced.

## Things you can try
- List the registered strategies:
~~~
$ metagen strategies
~~~
- Strategy identifiers take the form ` + "`Domain.Name`" + `, for example ` + "`Meta.LocalMarker`",
	}

	passFailedIssue = &Issue{
		id: PassFailedId,
		mdMsg: `
# Generation pass failed

## Things you can try
- Re-run with ` + "`--verbose`" + ` to see every stage
- Turn on ` + "`diagnostics: true`" + ` and read **metagen_diagnostics.md**`,
	}

	writeFailedIssue = &Issue{
		id: WriteFailedId,
		mdMsg: `
# Artifacts could not be written

## Things you can try
- Check the permissions of the output directory
- Delete **.metagen-cache** in the output directory to force a full rewrite`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id(): configLoadFailedIssue,
		modelLoadFailedIssue.Id():  modelLoadFailedIssue,
		unknownStrategyIssue.Id():  unknownStrategyIssue,
		passFailedIssue.Id():       passFailedIssue,
		writeFailedIssue.Id():      writeFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, id := range slices.Sorted(maps.Keys(issues)) {
		out = append(out, issues[id])
	}
	return out
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
