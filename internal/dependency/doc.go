// Package dependency orders scripts by the objects they reference.
//
// A Graph is built fresh for every run. Nodes are scripts keyed by ID; edges are
// inferred from identifier references once all nodes are known, chained between
// the versions of one migration object, and declared explicitly through
// configuration overrides or manual lineage. TopologicalSort uses Kahn's
// algorithm with the smallest ready ID first, so the same input always yields
// the same order.
package dependency
