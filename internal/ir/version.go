package ir

// Version constants for generated artifacts.
const (
	// GeneratorVersion is stamped into generated source headers. Bumping it
	// changes every generated file and therefore invalidates persistent
	// caches.
	GeneratorVersion = "0.1.0"
)
