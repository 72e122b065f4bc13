package ir

// Version constants for the persisted document format and engine.
const (
	// SchemaVersion is the node record format version.
	SchemaVersion = "1"

	// EngineVersion is the outliner engine version.
	EngineVersion = "0.1.0"
)
