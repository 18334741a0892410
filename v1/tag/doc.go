// Package tag issues the identifiers that name lock domains. A Tag is a plain
// comparable value: handles store a copy of their root's tag and compare it by
// value against the tag carried by a guard. Tags are never reused within the
// lifetime of an allocator, and the process-wide allocator is salted with a
// random value so tags from independent processes sharing memory are unlikely
// to collide.
package tag
