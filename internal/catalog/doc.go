// Package catalog implements the user-facing operations on top of a
// repository.Repository: assigning targets to sources, editing descriptions,
// tags, and render settings, and importing image directories.
//
// Mutating calls report whether anything changed. The repository signals a
// no-op mutation with a nil result, and the service turns that into false.
package catalog
