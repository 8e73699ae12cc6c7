// Package build turns generated artifacts into callable units.
//
// Manager.Load drives one request through the state machine
//
//	source_generated -> cache_hit -> loaded
//	source_generated -> build_invoked -> build_succeeded -> loaded [-> artifact_purged]
//	source_generated -> build_invoked -> build_failed
//
// A Driver per backend owns the toolchain: the interpreted driver
// evaluates CUE in-process and never builds, the C driver shells out to a
// C compiler and loads the shared library with purego, and the Go driver
// builds a plugin and opens it with the plugin package.
//
// Ephemeral requests build under a process-unique name in the temp dir
// and delete source and binary once loaded. Persistent requests keep
// <module>.<ext> and its artifact in the work dir; a byte-identical source
// skips the build, and a cached artifact that fails to load is rebuilt.
// Concurrent persistent builds of one module are not serialized: the last
// rename wins.
package build
