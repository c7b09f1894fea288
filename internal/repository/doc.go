// Package repository persists the image catalog: sources, targets, and the
// ordered assignment of targets to sources.
//
// Three backends implement Repository. MemoryRepository keeps everything in
// maps. FileRepository wraps it and rewrites a JSON snapshot
// (images-repository.dat) after each effective mutation. SQLiteRepository
// keeps the same model in images-repository.db. Factory selects a backend;
// Registry makes sure each data directory is opened once per process.
//
// Errors wrap the sentinels in errors.go and are matched with errors.Is.
// A mutation that finds its requested state already in place returns a nil
// record and a nil error.
package repository
