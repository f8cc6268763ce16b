// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

const (
	NoEntrypointId Id = iota + 1
	MetadataExtractionFailedId
	BakeryNotFoundId
	BakeryAlreadyExistsId
	InconsistentBunId
	RemoteUnavailableId
	ConfigLoadFailedId
	PermissionDeniedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue's Markdown for the terminal. stylePath is a
// glamour style name ("dark", "light", "notty") or a path to a style file.
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
		for _, link := range i.extLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	noEntrypointIssue = &Issue{
		id: NoEntrypointId,
		mdMsg: `
# No entrypoint found!

A bun is baked from a single script, or from a directory holding a script
with the same name as the directory.

## Things you can try:
- Bake a single script:
~~~
$ bao bake hello.py
~~~

- Name the entrypoint after its directory:
~~~
helloworld/
├── helloworld.py
└── helpers.py
~~~

- Use a valid Python module name (letters, digits and underscores, not starting with a digit)`,
	}

	metadataExtractionFailedIssue = &Issue{
		id: MetadataExtractionFailedId,
		mdMsg: `
# Could not read the script metadata!

bao never runs your script. It reads the header assignments as plain string
literals, so every required field must be assigned a literal at module level.

## Required fields:
~~~python
"""What the script does."""      # or __doc__ = "..."
__author__ = "Jane Doe"
__copyright__ = "2024 Jane Doe"
__license__ = "MIT"
__version__ = "0.1.0"
~~~

## Things you can try:
- Replace computed values (f-strings, concatenation, function calls) with literals
- Use a semantic version such as ` + "`1.2.3`" + ` or ` + "`1.2.3-rc.1`",
		extLinks: []HttpLink{"https://semver.org"},
	}

	bakeryNotFoundIssue = &Issue{
		id: BakeryNotFoundId,
		mdMsg: `
# No bakery here!

The directory has no BAKERY.toml index.

## Things you can try:
- Create a bakery:
~~~
$ bao bakery init --nickname testing
~~~

- Point at an existing bakery:
~~~
$ bao bakery add --bakery path/to/bakery *.zip
~~~

- List a published bakery instead:
~~~
$ bao bakery list --remote owner/repo
~~~`,
	}

	bakeryAlreadyExistsIssue = &Issue{
		id: BakeryAlreadyExistsId,
		mdMsg: `
# Bakery already exists!

bao never overwrites an existing BAKERY.toml.

## Things you can try:
- Add buns to the existing bakery:
~~~
$ bao bakery add *.zip
~~~

- Initialize a bakery in another directory`,
	}

	inconsistentBunIssue = &Issue{
		id: InconsistentBunId,
		mdMsg: `
# Inconsistent bun!

A bun is an archive and a manifest that sit next to each other and share a
name. The archive must contain the entrypoint script.

## Things you can try:
- Re-bake the bun from its source:
~~~
$ bao bake helloworld/
~~~

- Keep ` + "`name.zip`" + ` and ` + "`name.toml`" + ` in the same directory
- Do not rename baked files by hand`,
	}

	remoteUnavailableIssue = &Issue{
		id: RemoteUnavailableId,
		mdMsg: `
# Remote bakery unavailable!

The repository listing could not be fetched.

## Things you can try:
- Check your network connection
- Check the repository identifier (` + "`owner/name` or `owner/name/path`" + `)
- Set a token to raise the API rate limit:
~~~
$ export GITHUB_TOKEN=...
~~~`,
		extLinks: []HttpLink{"https://docs.github.com/en/rest/using-the-rest-api/rate-limits-for-the-rest-api"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Configuration file locations:
- Linux: ~/.config/bao/config.toml
- macOS: ~/Library/Application Support/bao/config.toml
- Windows: %APPDATA%\bao\config.toml

## Things you can try:
- Show the effective configuration:
~~~
$ bao config show
~~~

- Check the TOML syntax

## Example configuration:
~~~toml
[remote]
repository = "owner/buns"
timeout = "15s"

[bake]
exclude = ["__pycache__", "*.pyc", ".*"]
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

## Things you can try:
- Check the permissions of the bakery directory and of BAKERY.toml
- Check that the output directory next to your script is writable`,
	}

	issues = map[Id]*Issue{
		noEntrypointIssue.Id():             noEntrypointIssue,
		metadataExtractionFailedIssue.Id(): metadataExtractionFailedIssue,
		bakeryNotFoundIssue.Id():           bakeryNotFoundIssue,
		bakeryAlreadyExistsIssue.Id():      bakeryAlreadyExistsIssue,
		inconsistentBunIssue.Id():          inconsistentBunIssue,
		remoteUnavailableIssue.Id():        remoteUnavailableIssue,
		configLoadFailedIssue.Id():         configLoadFailedIssue,
		permissionDeniedIssue.Id():         permissionDeniedIssue,
	}
)

// Values returns every catalog entry ordered by ID.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
