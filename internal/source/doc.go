// Package source reads and writes the script tree.
//
// The tree is laid out as <root>/<DB>/<SCHEMA>/<TYPE>/<NAME>.SQL. Files at the
// root (config.yaml, parameter files, lineage_config.txt) are not scripts.
// Files are parsed concurrently; the resulting script list is always in path
// order so repeated runs see the same input.
package source
