// Package harness runs conformance scenarios against frozen models.
//
// A scenario names a model document, the backends and calling conventions
// to freeze it for, sample rows with their expected predictions, and
// assertions over the resulting trace.
//
// # Scenario Format
//
//	name: depth_one
//	description: "Single split on feature 0"
//	model: ../models/depth_one.yaml
//	backends: [interpreted, unmanaged-native]
//	conventions: [scalar, batch]
//	tolerance: 1e-10
//	cases:
//	  - row: [0.1]
//	    expect: 0.2
//	  - row: [0.9]
//	    expect: 0.9
//	assertions:
//	  - type: matches_model
//	  - type: states
//	    backend: interpreted
//	    states: [source_generated, loaded]
//
// Paths are relative to the scenario file. Omitted backends and
// conventions mean all of them.
//
// # Assertion Types
//
//   - matches_model: every prediction equals the model's own traversal
//   - states: compiles for a backend took exactly the given state path
//   - compile_error: every compile fails with the given error code
//
// # Toolchains
//
// A backend whose toolchain is missing is skipped, not failed. Result.Skipped
// lists the skipped backend/convention pairs.
//
// # Golden Files
//
// AssertGolden snapshots a result's trace under testdata/golden. Regenerate
// with:
//
//	go test ./internal/harness -update
package harness
