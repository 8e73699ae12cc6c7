// Package treefreeze freezes fitted binary decision trees and tree
// ensembles into source code and loads the result as a callable.
//
// A model is extracted into a backend-neutral IR, emitted as nested
// conditionals for one of three backends, wrapped in a scalar or batch
// entry point, and handed to a build manager that builds, caches and
// loads it:
//
//	u, err := treefreeze.Compile(ctx, tree, treefreeze.UnmanagedNative,
//		treefreeze.WithBatch(),
//		treefreeze.WithModuleName("churn"),
//	)
//	if err != nil {
//		return err
//	}
//	out, err := u.Batch(rows)
//
// The interpreted backend evaluates CUE in-process and never touches the
// disk. The managed-native backend builds a Go plugin and needs the same
// go toolchain that built the host. The unmanaged-native backend builds a
// C shared library and loads it without cgo.
//
// Without a module name, artifacts are ephemeral: they are built under a
// unique name in the temp dir and deleted once loaded. With a module name,
// the source and artifact stay in the work dir and a later compile of
// byte-identical source loads the existing artifact.
package treefreeze
