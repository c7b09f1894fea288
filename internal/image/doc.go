// Package image defines the catalog's value records.
//
// A Source is an original image; a Target is a derived (inpainted) variant
// rendered with a Sampler and a Checkpoint. Both are plain values: the
// repository hands out clones, so callers may mutate what they receive.
// Builders apply the defaults (EULER_A, SD, no tags) and keep tag lists free
// of duplicates.
package image
