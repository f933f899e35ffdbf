// Package studio – parser.go splits one model response into named script
// artifacts. Pure functions of the input text: no I/O, no state. Malformed
// or partially-matching model output is the common case, so every step has
// a fallback.
package studio

import (
	"fmt"
	"regexp"
	"strings"
)

// fileHeaderRe matches generation headers like
// "=== FILE 1: ServerScriptService/System/Main.server.lua ===".
// The filename must end in a recognized Lua suffix.
var fileHeaderRe = regexp.MustCompile(`(?i)===+\s*FILE\s*\d+:\s*([\w\/\-\.]+\.(?:server\.lua|client\.lua|lua))\s*===+`)

// codeFenceRe matches a fenced code region, optionally tagged lua/luau.
var codeFenceRe = regexp.MustCompile("(?s)```(?:lua|luau)?\\s*(.*?)\\s*```")

// minArtifactBody is the noise threshold: bodies this short or shorter
// (after trimming) are discarded.
const minArtifactBody = 10

// ExtractArtifacts splits generated text into script artifacts.
//
// When FILE headers are present, each artifact body is the span between its
// header and the next (narrowed to the innermost code fence if one exists).
// Without headers, every independent code fence becomes its own artifact
// with a synthesized sequential name and the default kind/location.
func ExtractArtifacts(text string) []Artifact {
	headers := fileHeaderRe.FindAllStringSubmatchIndex(text, -1)

	if len(headers) == 0 {
		return fencedFallback(text)
	}

	var artifacts []Artifact
	for i, m := range headers {
		name := strings.TrimSpace(text[m[2]:m[3]])

		end := len(text)
		if i < len(headers)-1 {
			end = headers[i+1][0]
		}
		body := strings.TrimSpace(text[m[1]:end])

		// Narrow to the fenced region when the captured span has one.
		if fence := codeFenceRe.FindStringSubmatch(body); fence != nil {
			body = strings.TrimSpace(fence[1])
		}

		if len(body) <= minArtifactBody {
			continue
		}

		artifacts = append(artifacts, Artifact{
			Name:     name,
			Body:     body,
			Kind:     classifyKind(name),
			Location: DetermineLocation(name),
		})
	}
	return artifacts
}

// fencedFallback extracts every independent code fence as its own artifact.
func fencedFallback(text string) []Artifact {
	var artifacts []Artifact
	for _, m := range codeFenceRe.FindAllStringSubmatch(text, -1) {
		body := strings.TrimSpace(m[1])
		if body == "" {
			continue
		}
		n := len(artifacts) + 1
		artifacts = append(artifacts, Artifact{
			Name:     fmt.Sprintf("System_%d.server.lua", n),
			Body:     body,
			Kind:     KindServer,
			Location: "ServerScriptService/System",
		})
	}
	return artifacts
}

// classifyKind maps a filename to its script kind. Suffix-driven by
// contract: a server-named file containing module-style code is still a
// server script.
func classifyKind(name string) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".client.lua"):
		return KindClient
	case strings.HasSuffix(lower, ".server.lua"):
		return KindServer
	case strings.HasSuffix(lower, ".lua") && strings.Contains(lower, "module"):
		return KindModule
	default:
		return KindServer
	}
}

// DetermineLocation derives the Roblox Studio placement path from the
// filename. The rules are ordered and first-match-wins; downstream
// installation instructions depend on this exact ordering.
func DetermineLocation(name string) string {
	lower := strings.ToLower(name)

	switch {
	case strings.HasSuffix(lower, ".client.lua"):
		if strings.Contains(lower, "startergui") ||
			strings.Contains(lower, "gui") ||
			strings.Contains(lower, "interface") {
			return "StarterGui/Interface"
		}
		return "StarterPack/System"

	case strings.HasSuffix(lower, ".server.lua"):
		if strings.Contains(lower, "module") || strings.Contains(lower, "config") {
			return "ServerScriptService/System/Modules"
		}
		return "ServerScriptService/System"

	case strings.Contains(lower, "module"):
		return "ReplicatedStorage/SharedModules"

	default:
		return "ServerScriptService/System"
	}
}

// guidePatterns are the known installation-guide heading patterns, searched
// in order. The capture runs until the next blank line or header.
var guidePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)INSTRUCTIONS[:\s]*\n?(.*?)(?:\n\n|\n===|$)`),
	regexp.MustCompile(`(?is)INSTALLATION[:\s]*\n?(.*?)(?:\n\n|\n===|$)`),
	regexp.MustCompile(`(?is)HOW TO INSTALL[:\s]*\n?(.*?)(?:\n\n|\n===|$)`),
	regexp.MustCompile(`(?is)ROBLOX STUDIO[:\s]*\n?(.*?)(?:\n\n|\n===|$)`),
}

// minGuideLength rejects implausibly short guide matches.
const minGuideLength = 50

// ExtractInstallGuide pulls the natural-language installation section from
// generated text. Best-effort: when no heading matches, or the match is
// implausibly short, the canned step-by-step guide is returned instead.
func ExtractInstallGuide(text string) string {
	for _, re := range guidePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			guide := strings.TrimSpace(m[1])
			if len(guide) >= minGuideLength {
				return guide
			}
		}
	}
	return DefaultInstallGuide
}

// DefaultInstallGuide is the canned installation walkthrough used when the
// model response carries no usable instructions section.
const DefaultInstallGuide = `**STEP BY STEP — INSTALLING IN ROBLOX STUDIO:**

1. **OPEN YOUR GAME** in Roblox Studio
2. **CREATE THE FOLDERS** following this structure:
   - ServerScriptService/System/
   - StarterPack/System/
   - ReplicatedStorage/SharedModules/ (if needed)

3. **FOR EACH GENERATED FILE:**
   - Right-click the matching folder
   - Insert Object -> pick the type (Script, LocalScript or ModuleScript)
   - Rename it to the file name
   - Double-click the script and paste the matching code

4. **REQUIRED ADJUSTMENTS:**
   - Configure variables such as GAME_ID or DATASTORE_NAME
   - Adjust RemoteEvent/Function names if needed

5. **TEST:**
   - First in Play Solo (local mode)
   - Then publish and test online
   - Watch the Output window for errors

Tip: always keep a copy of your project before making large changes.`
