// Package studio generates Roblox Studio systems through an
// OpenAI-compatible chat completions API and parses the model output into
// named script artifacts.
package studio

// Kind classifies an artifact by Roblox script type.
type Kind int

const (
	// KindServer is a server-side Script (ServerScriptService).
	KindServer Kind = iota
	// KindClient is a LocalScript (StarterPack/StarterGui).
	KindClient
	// KindModule is a ModuleScript (ReplicatedStorage).
	KindModule
)

// String returns the Roblox Studio object name for the kind.
func (k Kind) String() string {
	switch k {
	case KindClient:
		return "LocalScript"
	case KindModule:
		return "ModuleScript"
	default:
		return "Script"
	}
}

// Artifact is one named code segment extracted from generated output.
// Transient: produced by a parse call, consumed by the presentation layer.
type Artifact struct {
	// Name is the filename from the generation header, e.g.
	// "ServerScriptService/System/Main.server.lua".
	Name string

	// Body is the script source.
	Body string

	Kind Kind

	// Location is the Roblox Studio placement path derived from the name.
	Location string
}

// SystemResult is the outcome of a system generation request.
// Failure is a value, not an error: Reason carries the human-readable cause.
type SystemResult struct {
	Success      bool
	Artifacts    []Artifact
	InstallGuide string
	Reason       string

	// Raw is the full model response, kept for the presentation layer.
	Raw string
}
