package ir

// Version constants for the IR and the emitted text contract.
const (
	// IRVersion is the IR model version.
	IRVersion = "1"

	// GeneratorVersion changes whenever emitted text for the same
	// fragment may change. Cached artifacts are keyed by it.
	GeneratorVersion = "0.3.0"
)
