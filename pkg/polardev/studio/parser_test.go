package studio

import (
	"strings"
	"testing"
)

const multiFileResponse = "Here is your complete system.\n\n" +
	"=== FILE 1: MainSystem.server.lua ===\n" +
	"```lua\nlocal Players = game:GetService(\"Players\")\nprint(\"server boot\")\n```\n\n" +
	"=== FILE 2: InterfaceGui.client.lua ===\n" +
	"```lua\nlocal player = game.Players.LocalPlayer\nprint(\"client gui\")\n```\n\n" +
	"=== FILE 3: SharedModule.lua ===\n" +
	"```lua\nlocal M = {}\nfunction M.value() return 42 end\nreturn M\n```\n\n" +
	"INSTRUCTIONS:\n" +
	"1. Open Roblox Studio and insert each script into the location shown.\n" +
	"2. Publish the place and press Play to verify the system starts.\n"

func TestExtractArtifactsMultiFile(t *testing.T) {
	artifacts := ExtractArtifacts(multiFileResponse)
	if len(artifacts) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(artifacts))
	}

	want := []struct {
		name     string
		kind     Kind
		location string
		contains string
	}{
		{"MainSystem.server.lua", KindServer, "ServerScriptService/System", "server boot"},
		{"InterfaceGui.client.lua", KindClient, "StarterGui/Interface", "client gui"},
		{"SharedModule.lua", KindModule, "ReplicatedStorage/SharedModules", "return M"},
	}
	for i, w := range want {
		got := artifacts[i]
		if got.Name != w.name {
			t.Errorf("artifact %d: name = %q, want %q", i, got.Name, w.name)
		}
		if got.Kind != w.kind {
			t.Errorf("artifact %d: kind = %v, want %v", i, got.Kind, w.kind)
		}
		if got.Location != w.location {
			t.Errorf("artifact %d: location = %q, want %q", i, got.Location, w.location)
		}
		if !strings.Contains(got.Body, w.contains) {
			t.Errorf("artifact %d: body %q missing %q", i, got.Body, w.contains)
		}
		if strings.Contains(got.Body, "```") {
			t.Errorf("artifact %d: body still contains fence markers", i)
		}
	}
}

func TestExtractArtifactsBodyStopsAtNextHeader(t *testing.T) {
	text := "=== FILE 1: A.server.lua ===\n" +
		"```lua\nprint(\"alpha script body\")\n```\n" +
		"=== FILE 2: B.server.lua ===\n" +
		"```lua\nprint(\"beta script body\")\n```\n"

	artifacts := ExtractArtifacts(text)
	if len(artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(artifacts))
	}
	if strings.Contains(artifacts[0].Body, "beta") {
		t.Errorf("first artifact body bled into the second: %q", artifacts[0].Body)
	}
}

func TestExtractArtifactsDropsTinyBodies(t *testing.T) {
	text := "=== FILE 1: Noise.server.lua ===\n```lua\nok\n```\n" +
		"=== FILE 2: Real.server.lua ===\n```lua\nprint(\"a real script body here\")\n```\n"

	artifacts := ExtractArtifacts(text)
	if len(artifacts) != 1 {
		t.Fatalf("expected 1 artifact after dropping tiny body, got %d", len(artifacts))
	}
	if artifacts[0].Name != "Real.server.lua" {
		t.Errorf("kept artifact = %q, want Real.server.lua", artifacts[0].Name)
	}
}

func TestExtractArtifactsFencedFallback(t *testing.T) {
	text := "No headers here, just code.\n\n" +
		"```lua\nprint(\"first block\")\n```\n\nsome prose\n\n" +
		"```lua\nprint(\"second block\")\n```\n"

	artifacts := ExtractArtifacts(text)
	if len(artifacts) != 2 {
		t.Fatalf("expected 2 fallback artifacts, got %d", len(artifacts))
	}
	for i, a := range artifacts {
		if a.Kind != KindServer {
			t.Errorf("fallback artifact %d: kind = %v, want KindServer", i, a.Kind)
		}
		if a.Location != "ServerScriptService/System" {
			t.Errorf("fallback artifact %d: location = %q", i, a.Location)
		}
	}
	if artifacts[0].Name != "System_1.server.lua" || artifacts[1].Name != "System_2.server.lua" {
		t.Errorf("fallback names = %q, %q", artifacts[0].Name, artifacts[1].Name)
	}
}

func TestExtractArtifactsNoCode(t *testing.T) {
	if got := ExtractArtifacts("Sorry, I cannot help with that."); len(got) != 0 {
		t.Fatalf("expected no artifacts from prose, got %d", len(got))
	}
}

func TestClassifyKindStrings(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Main.server.lua", "Script"},
		{"Input.client.lua", "LocalScript"},
		{"DataModule.lua", "ModuleScript"},
		{"Plain.lua", "Script"},
	}
	for _, tc := range cases {
		if got := classifyKind(tc.name).String(); got != tc.want {
			t.Errorf("classifyKind(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestDetermineLocationOrdering(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"ShopGui.client.lua", "StarterGui/Interface"},
		{"MainInterface.client.lua", "StarterGui/Interface"},
		{"Controller.client.lua", "StarterPack/System"},
		// Client suffix wins over module keyword.
		{"GuiModule.client.lua", "StarterGui/Interface"},
		{"ConfigModule.server.lua", "ServerScriptService/System/Modules"},
		{"Main.server.lua", "ServerScriptService/System"},
		{"SharedModule.lua", "ReplicatedStorage/SharedModules"},
		{"Startup.lua", "ServerScriptService/System"},
	}
	for _, tc := range cases {
		if got := DetermineLocation(tc.name); got != tc.want {
			t.Errorf("DetermineLocation(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestExtractInstallGuideFound(t *testing.T) {
	guide := ExtractInstallGuide(multiFileResponse)
	if guide == DefaultInstallGuide {
		t.Fatal("expected extracted guide, got canned fallback")
	}
	if !strings.Contains(guide, "Roblox Studio") {
		t.Errorf("guide missing expected content: %q", guide)
	}
}

func TestExtractInstallGuideFallback(t *testing.T) {
	// A heading with a body under the minimum length must fall back.
	short := "=== FILE 1: A.server.lua ===\n```lua\nprint(\"script body here\")\n```\n\nINSTRUCTIONS:\nput it in\n\n"
	if got := ExtractInstallGuide(short); got != DefaultInstallGuide {
		t.Errorf("expected canned guide for short instructions, got %q", got)
	}
	if got := ExtractInstallGuide("no guide at all"); got != DefaultInstallGuide {
		t.Errorf("expected canned guide when absent, got %q", got)
	}
}

func TestOnTopicGate(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"make me a roblox shop system", true},
		{"I need a Luau datastore script", true},
		{"write me a python web scraper", false},
	}
	for _, tc := range cases {
		if got := onTopic(tc.text, defaultTopicKeywords); got != tc.want {
			t.Errorf("onTopic(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
	// An empty keyword list disables the gate entirely.
	if !onTopic("anything at all", []string{}) {
		t.Error("empty keyword list should disable the gate")
	}
}
