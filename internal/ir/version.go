package ir

// Version constants for the manifest schema and engine.
const (
	// IRVersion is the ModuleSpec schema version.
	IRVersion = "1"

	// EngineVersion is the refguard engine version.
	EngineVersion = "0.1.0"
)
