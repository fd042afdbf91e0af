package manifest

// UndefinedVersion is the literal recorded in a project's graph identity
// when the report carries no version.
const UndefinedVersion = "undefined"

// ProjectManifest is the decoded dependency report for one project.
// It is built once per ingestion run and never mutated afterwards.
type ProjectManifest struct {
	Name           string          `json:"name"`
	Version        *string         `json:"version,omitempty"`
	Configurations []Configuration `json:"configurations"`
}

// ID returns the project's composite graph identity, "name:version".
// A missing version is recorded as the literal "undefined".
func (m ProjectManifest) ID() string {
	if m.Version == nil {
		return m.Name + ":" + UndefinedVersion
	}
	return m.Name + ":" + *m.Version
}

// Configuration is a named dependency scope (e.g. "compile", "runtime")
// holding the resolved dependency trees for that scope. A configuration
// without dependencies contributes no edges to the graph.
type Configuration struct {
	Name         string       `json:"name"`
	Description  *string      `json:"description,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// Dependency is one node of a configuration's resolved dependency tree.
// The same logical dependency (same Name) may appear in several trees or
// several times within one tree; the graph layer merges those occurrences
// into a single node keyed by Name.
type Dependency struct {
	Module          *string      `json:"module,omitempty"`
	Name            string       `json:"name"`
	Resolvable      bool         `json:"resolvable"`
	HasConflict     *bool        `json:"hasConflict,omitempty"`
	AlreadyRendered bool         `json:"alreadyRendered"`
	Children        []Dependency `json:"children,omitempty"`
}
