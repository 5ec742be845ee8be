// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ManifestNotFoundId Id = iota + 1
	ManifestParseErrorId
	NicheSettingsParseErrorId
	MissingThundercloudId
	CycleOrForwardRefId
	DuplicateCueId
	BadBoltNameId
	BadInvarConfigId
	UnbalancedPlaceholderId
	BuildCommandFailedId
	ConfigLoadFailedId
	NoNichesFoundId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation links; none of the built-in issues sets any
	extLinks []HttpLink  // external links that might be useful for the user
}

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

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No manifest found!

We searched for a CargoCult.toml but couldn't find one in the project root.

## Things you can try:
- Create a manifest in your project root:
~~~
$ igor init
~~~

- Or run igor from the directory that contains CargoCult.toml:
~~~
$ cd /path/to/your/project
$ igor run
~~~

## Example CargoCult.toml:
~~~toml
niches-directory = "yeth-marthter"
igor-settings = "igor-thettingth"

[[psychotropic.cues]]
name = "base"
~~~`,
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse CargoCult.toml!

Your manifest contains syntax errors or invalid configuration.

## Common issues:
- Invalid TOML syntax (missing quotes, brackets, etc.)
- Unknown field names
- Invalid values for known fields
- A psychotropic cue without a name

## Things you can try:
- Check the error message above for the specific field
- Run with verbose mode for more details:
~~~
$ igor --verbose run
~~~`,
	}

	nicheSettingsParseErrorIssue = &Issue{
		id: NicheSettingsParseErrorId,
		mdMsg: `
# Failed to parse niche settings!

A niche's settings file contains syntax errors or invalid configuration.

## Common issues:
- Invalid TOML syntax
- A thundercloud binding with neither directory nor git
- Invalid invar defaults (unknown write mode, non-string props)

## Things you can try:
- Check the error message above for the niche and field involved
- Compare against a working niche in the same project`,
	}

	missingThundercloudIssue = &Issue{
		id: MissingThundercloudId,
		mdMsg: `
# Thundercloud not found!

A niche points at a thundercloud directory that has no thundercloud.toml.

## Things you can try:
- Check the directory setting in the niche's settings file
- Verify the thundercloud working copy exists:
~~~
$ ls <thundercloud-dir>/thundercloud.toml
~~~

- For git-backed thunderclouds, fetch the working copy into the
  niche's thundercloud/ directory before running`,
	}

	cycleOrForwardRefIssue = &Issue{
		id: CycleOrForwardRefId,
		mdMsg: `
# Cue ordering problem detected!

A psychotropic cue waits for a cue declared after it (or for itself),
which would deadlock the run.

## Example of a forward reference:
~~~toml
[[psychotropic.cues]]
name = "app"
wait-for = ["base"]  # declared below, not above

[[psychotropic.cues]]
name = "base"
~~~

## Things you can try:
- Reorder the cues so every wait-for names an earlier cue
- Remove the self reference if a cue waits on its own name`,
	}

	duplicateCueIssue = &Issue{
		id: DuplicateCueId,
		mdMsg: `
# Duplicate cue name!

Two psychotropic cues in CargoCult.toml share the same name.

## Things you can try:
- Rename one of the cues
- Merge the two declarations into one, combining their wait-for lists`,
	}

	badBoltNameIssue = &Issue{
		id: BadBoltNameId,
		mdMsg: `
# Invalid bolt filename!

A file in a thundercloud or invar tree has a name that cannot be
decoded.

## Common issues:
- A feature or placeholder that is not an identifier (e.g. starts with a digit)
- A fragment bolt gated only on @ with no placeholder segment
- A config bolt whose name does not end in .toml

## Valid bolt shapes:
~~~
app.conf
app+option.conf
app+option-prod.conf
app+fragment-@-deps.conf
~~~

## Things you can try:
- Check the file named in the error message above
- Rename the file to match one of the valid shapes`,
	}

	badInvarConfigIssue = &Issue{
		id: BadInvarConfigId,
		mdMsg: `
# Invalid invar configuration!

An invar config bolt contains values igor does not understand.

## Common issues:
- An unknown write mode (valid: overwrite, write-new, ignore)
- A non-boolean interpolate or executable value
- Props that are not a string-to-string table

## Things you can try:
- Check the config file named in the error message above
- Compare against a working config bolt in the same tree`,
	}

	unbalancedPlaceholderIssue = &Issue{
		id: UnbalancedPlaceholderId,
		mdMsg: `
# Unbalanced placeholder markers!

A target file has BEGIN and END markers for a placeholder that do not
pair up, so the fragment was skipped with a warning.

## Things you can try:
- Open the target file and look for the marker lines:
~~~
==== BEGIN <id> ====
==== END <id> ====
~~~

- Remove stray markers or add the missing one
- Re-run igor; the fragment will be spliced once the markers pair`,
	}

	buildCommandFailedIssue = &Issue{
		id: BuildCommandFailedId,
		mdMsg: `
# Build command failed!

A niche's build command exited non-zero.

## Common causes:
- Command not found in PATH
- Syntax error in the command line
- The command itself reported a failure

## Things you can try:
- Run with verbose mode for more details:
~~~
$ igor --verbose run
~~~

- Test the command manually from the niche's directory
- Check the props the command reads from its environment`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the igor configuration file.

## Configuration file locations:
- Linux: ~/.config/igor/config.cue
- macOS: ~/Library/Application Support/igor/config.cue
- Windows: %APPDATA%\igor\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ igor config init
~~~

- Check the configuration syntax
- Remove the config file to use defaults`,
	}

	noNichesFoundIssue = &Issue{
		id: NoNichesFoundId,
		mdMsg: `
# No niches found!

The niches directory is missing, or none of its subdirectories
contains a settings file, so there is nothing to run.

## Things you can try:
- List the niches directory and check for settings files:
~~~
$ ls yeth-marthter/*/
~~~

- Check the igor-settings field in CargoCult.toml matches your filenames
- Create a niche:
~~~
$ igor init --niche <name>
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

You don't have permission to perform this operation.

## Common causes:
- Trying to write a target into a protected directory
- The thundercloud or invar tree is not readable

## Things you can try:
- Check file/directory permissions on the paths in the error above
- Run igor from a directory you own`,
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():        manifestNotFoundIssue,
		manifestParseErrorIssue.Id():      manifestParseErrorIssue,
		nicheSettingsParseErrorIssue.Id(): nicheSettingsParseErrorIssue,
		missingThundercloudIssue.Id():     missingThundercloudIssue,
		cycleOrForwardRefIssue.Id():       cycleOrForwardRefIssue,
		duplicateCueIssue.Id():            duplicateCueIssue,
		badBoltNameIssue.Id():             badBoltNameIssue,
		badInvarConfigIssue.Id():          badInvarConfigIssue,
		unbalancedPlaceholderIssue.Id():   unbalancedPlaceholderIssue,
		buildCommandFailedIssue.Id():      buildCommandFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		noNichesFoundIssue.Id():           noNichesFoundIssue,
		permissionDeniedIssue.Id():        permissionDeniedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
