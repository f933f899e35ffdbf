// Package studio – prompts.go holds the system instruction and prompt
// builders for conversational replies and full system generation.
package studio

import (
	"fmt"
	"strings"
)

// systemPrompt is the fixed instruction sent with every request. It pins
// the model to Roblox Lua/Luau work and mandates the FILE header format the
// parser depends on.
const systemPrompt = `YOU ARE A SENIOR ROBLOX LUA/LUAU DEVELOPMENT SPECIALIST.
YOUR ONLY JOB IS TO PRODUCE CODE FOR THE ROBLOX PLATFORM.

ABSOLUTE GUIDELINES:
1. REFUSE ANY REQUEST THAT IS NOT ABOUT ROBLOX
2. ONLY GENERATE LUA/LUAU CODE FOR ROBLOX STUDIO
3. FOCUS ON Script, LocalScript AND ModuleScript
4. ALWAYS FOLLOW ROBLOX BEST PRACTICES

ROBLOX FILE TYPES:
- Script (ServerScriptService) - server logic
- LocalScript (StarterPack/StarterGui) - client logic
- ModuleScript (ReplicatedStorage) - reusable modules

CODE RULES:
1. English snake_case names
2. Comment every function briefly
3. Use Luau type annotations where possible
4. Error handling with pcall() and warn()
5. Validate all client input on the server

RESPONSE FORMAT FOR SYSTEMS:
=== FILE 1: ServerScriptService/System/Main.server.lua ===
[COMPLETE SERVER SCRIPT CODE]

=== FILE 2: ServerScriptService/System/Config.server.lua ===
[COMPLETE CONFIG MODULESCRIPT CODE]

=== FILE 3: StarterPack/System/Main.client.lua ===
[COMPLETE CLIENT LOCALSCRIPT CODE]

INSTALLATION INSTRUCTIONS:
1. Create the folders in Roblox Studio per the structure above
2. Create the Scripts/LocalScripts/ModuleScripts with matching names
3. Paste the matching code into each file
4. Adjust configuration where needed
5. Test in Play Solo, then on a live server

REFUSE any request that is not Roblox development.`

// conversePrompt wraps a chat question so the model stays on topic.
func conversePrompt(message string) string {
	return "ROBLOX QUESTION: " + message +
		"\n\nAnswer only if this is about Roblox development. Politely refuse otherwise."
}

// creationPrompt builds the large structured prompt requesting a complete
// multi-file system for the given description.
func creationPrompt(description string) string {
	return fmt.Sprintf(`CREATE A COMPLETE ROBLOX LUA/LUAU SYSTEM FROM THE DESCRIPTION BELOW.

SYSTEM DESCRIPTION:
%s

TECHNICAL REQUIREMENTS (ROBLOX SPECIFIC):
1. Fully functional code for Roblox Studio
2. Organized into Scripts, LocalScripts and ModuleScripts
3. Use Roblox services correctly (DataStoreService, ReplicatedStorage, etc.)
4. Security: validate everything on the server
5. Performance: optimized for Roblox (avoid waits, use Heartbeat)
6. Luau best practices (types, annotations)

MANDATORY STRUCTURE:
=== FILE 1: ServerScriptService/System/Main.server.lua ===
[COMPLETE, FUNCTIONAL SERVER LUA/LUAU CODE]

=== FILE 2: StarterPack/System/Main.client.lua ===
[COMPLETE, FUNCTIONAL CLIENT LUA/LUAU CODE]

=== FILE 3: ServerScriptService/System/Config.module.lua ===
[CONFIG MODULESCRIPT CODE]

DETAILED INSTALLATION INSTRUCTIONS FOR ROBLOX STUDIO:
Explain step by step:
1. Where to create each folder
2. How to create each script type
3. How to name each file
4. How to test the system (Play Solo then live server)
5. Common Roblox troubleshooting

The system must be COMPLETE and ready to copy/paste into Roblox Studio.`, description)
}

// defaultTopicKeywords is the allow-list used to gate requests before
// spending an API call. Empty config disables the gate entirely.
var defaultTopicKeywords = []string{
	"roblox", "lua", "luau", "script", "localscript", "modulescript",
	"datastore", "remoteevent", "replicatedstorage", "starterpack",
	"serverscriptservice", "roblox studio", "game", "player", "part",
	"brick", "tool", "gui", "interface", "ui", "hud", "camera",
	"money", "xp", "experience", "inventory", "shop", "combat",
	"gun", "sword", "damage", "health", "mana", "stamina",
}

// onTopic reports whether text mentions at least one allowed keyword.
func onTopic(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// offTopicNotice is returned without calling the API when the topic gate
// rejects a conversational message.
const offTopicNotice = "**Heads up:** I specialize in Roblox Lua/Luau development only.\n" +
	"Please ask something specific about Roblox Studio, scripts, or Roblox systems."

// offTopicCreationReason explains a gated system-creation request.
const offTopicCreationReason = "**I specialize in Roblox development only.**\n" +
	"Please describe a system, script, or mechanic for Roblox Studio."

// converseFallback is the canned degradation when every conversational
// attempt fails. Conversational replies never surface errors.
const converseFallback = "I'm still processing your request. " +
	"To build a complete Roblox system, use the Create System button below."

// creationFailureReason explains an exhausted system-creation request.
const creationFailureReason = "Could not generate the Roblox system. " +
	"Try again with a more detailed description."
