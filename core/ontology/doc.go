// Package ontology provides the in-memory representation shared by every
// classification hierarchy the module ingests (KEGG BRITE, Gene Ontology,
// MetaCyc).
//
// # Core Types
//
//   - Term: a canonical classification entry, deduplicated by its stable id
//   - Registry: the arena that owns every Term of one hierarchy
//   - Node: one placement of a Term at a specific depth under a specific parent
//   - Index: id-keyed parent and child sets used for multi-parent traversal
//   - Hierarchy: a Registry, its Node arena, the designated root and the Index
//
// Nodes and the Index refer to Terms by id and to other Nodes by NodeID, so
// the structure holds no pointer cycles and serializes directly to JSON.
//
// # Content Hashing
//
// Every Term exposes its hash-relevant fields through HashFields. The content
// hash is BLAKE3-256 over the canonical JSON of that projection. Registering
// an id a second time with a different hash is a ContentMismatchError.
//
// Everything in this package is built once by a parser and treated as
// read-only afterwards.
package ontology
