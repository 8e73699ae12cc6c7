// Package ir provides the immutable intermediate representation of fitted
// tree models.
//
// A Tree holds its nodes in root-first (pre-order) order, so traversal order
// is reproducible across runs. An Ensemble holds members in model order;
// members are trees or nested ensembles. Every IR value is built once by
// Extract and never mutated afterwards. Accessors return copies.
//
// This package imports only the model contract and the error taxonomy;
// code generation and the build manager sit on top of it.
package ir
