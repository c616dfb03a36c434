package dependency

import (
	"container/heap"
	"sort"
	"strings"

	"github.com/vvka-141/dlsync/internal/parser"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// EdgeSource records why an edge exists. Higher values take precedence when the
// same pair is connected more than once.
type EdgeSource int

const (
	// EdgeInferred edges come from identifier references in script content.
	EdgeInferred EdgeSource = iota
	// EdgeVersion edges chain consecutive versions of one migration object.
	EdgeVersion
	// EdgeOverride edges are declared in the project configuration.
	EdgeOverride
	// EdgeManual edges come from the manual lineage file.
	EdgeManual
)

func (s EdgeSource) String() string {
	switch s {
	case EdgeInferred:
		return "inferred"
	case EdgeVersion:
		return "version"
	case EdgeOverride:
		return "override"
	case EdgeManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Edge is a materialized dependency with its origin.
type Edge struct {
	Dependent *dlsync.Script
	DependsOn *dlsync.Script
	Source    EdgeSource
}

type objectEdge struct {
	dependent string
	dependsOn string
	source    EdgeSource
}

// Graph is a dependency graph over scripts. It is not safe for concurrent use.
type Graph struct {
	logger   dlsync.Logger
	nodes    map[string]*dlsync.Script
	declared []objectEdge

	// edges[dependent][dependsOn] is rebuilt lazily after nodes or declarations change.
	edges map[string]map[string]EdgeSource
	built bool
}

// NewGraph creates an empty graph.
func NewGraph(logger dlsync.Logger) *Graph {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Graph{
		logger: logger,
		nodes:  make(map[string]*dlsync.Script),
	}
}

// AddNodes registers scripts. A script whose ID is already present is ignored.
func (g *Graph) AddNodes(scripts []*dlsync.Script) {
	for _, s := range scripts {
		if _, exists := g.nodes[s.ID()]; exists {
			continue
		}
		g.nodes[s.ID()] = s
		g.built = false
	}
}

// AddDependency declares that dep.Dependent's object depends on dep.DependsOn's object.
func (g *Graph) AddDependency(dep dlsync.ScriptDependency, source EdgeSource) {
	g.AddObjectDependency(dep.Dependent.FullObjectName(), dep.DependsOn.FullObjectName(), source)
}

// AddObjectDependency declares a dependency between two objects by full name
// (DB.SCHEMA.NAME, case-insensitive). Every script of the dependent object will
// follow every script of the other. Names without registered scripts are ignored
// when the graph is built.
func (g *Graph) AddObjectDependency(dependent, dependsOn string, source EdgeSource) {
	g.declared = append(g.declared, objectEdge{
		dependent: strings.ToUpper(strings.TrimSpace(dependent)),
		dependsOn: strings.ToUpper(strings.TrimSpace(dependsOn)),
		source:    source,
	})
	g.built = false
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// TopologicalSort orders the scripts so every script follows the scripts it
// depends on. Among scripts that are ready at the same time the smallest ID goes
// first. A cycle returns a *CycleError and no order.
func (g *Graph) TopologicalSort() ([]*dlsync.Script, error) {
	g.build()

	pending := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string)
	ready := &idHeap{}
	for id := range g.nodes {
		pending[id] = len(g.edges[id])
		if pending[id] == 0 {
			heap.Push(ready, id)
		}
		for on := range g.edges[id] {
			dependents[on] = append(dependents[on], id)
		}
	}

	order := make([]*dlsync.Script, 0, len(g.nodes))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(string)
		order = append(order, g.nodes[id])
		for _, d := range dependents[id] {
			pending[d]--
			if pending[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}

	if len(order) < len(g.nodes) {
		remaining := make(map[string]bool)
		for id, n := range pending {
			if n > 0 {
				remaining[id] = true
			}
		}
		return nil, &CycleError{Cycle: g.findCycle(remaining)}
	}
	return order, nil
}

// Edges returns every edge between distinct scripts sorted by dependent ID,
// then dependency ID.
func (g *Graph) Edges() []Edge {
	g.build()

	var out []Edge
	for _, id := range sortedKeys(g.edges) {
		for _, on := range sortedKeys(g.edges[id]) {
			out = append(out, Edge{Dependent: g.nodes[id], DependsOn: g.nodes[on], Source: g.edges[id][on]})
		}
	}
	return out
}

// Dependencies returns the lineage between objects: one edge per pair of
// distinct objects, version chains excluded, sorted by object ID.
func (g *Graph) Dependencies() []dlsync.ScriptDependency {
	seen := make(map[[2]string]bool)
	var out []dlsync.ScriptDependency
	for _, e := range g.Edges() {
		if e.Source == EdgeVersion {
			continue
		}
		key := [2]string{e.Dependent.ObjectID(), e.DependsOn.ObjectID()}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, dlsync.ScriptDependency{Dependent: e.Dependent, DependsOn: e.DependsOn})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Dependent.ObjectID() != b.Dependent.ObjectID() {
			return a.Dependent.ObjectID() < b.Dependent.ObjectID()
		}
		return a.DependsOn.ObjectID() < b.DependsOn.ObjectID()
	})
	return out
}

func (g *Graph) build() {
	if g.built {
		return
	}
	g.edges = make(map[string]map[string]EdgeSource, len(g.nodes))

	objects := make(map[string][]*dlsync.Script)
	byName := make(map[string][]string)
	byFullName := make(map[string][]*dlsync.Script)
	for _, id := range sortedKeys(g.nodes) {
		s := g.nodes[id]
		if _, ok := objects[s.ObjectID()]; !ok {
			name := strings.ToLower(strings.Trim(s.ObjectName, `"`))
			byName[name] = append(byName[name], s.ObjectID())
		}
		objects[s.ObjectID()] = append(objects[s.ObjectID()], s)
		byFullName[s.FullObjectName()] = append(byFullName[s.FullObjectName()], s)
	}

	for _, scripts := range objects {
		sort.Slice(scripts, func(i, j int) bool { return scripts[i].Version() < scripts[j].Version() })
		for i := 1; i < len(scripts); i++ {
			g.addEdge(scripts[i], scripts[i-1], EdgeVersion)
		}
	}

	refs := make(map[string]map[string]bool, len(g.nodes))
	for _, id := range sortedKeys(g.nodes) {
		from := g.nodes[id]
		refs[id] = make(map[string]bool)
		for _, ident := range parser.ExtractIdentifiers(parser.StripSQL(from.Content)) {
			parts := parser.SplitIdentifier(ident)
			for _, objectID := range byName[strings.ToLower(parts[len(parts)-1])] {
				if objectID != from.ObjectID() && resolves(parts, from, objects[objectID][0]) {
					refs[id][objectID] = true
				}
			}
		}
	}

	// A reference needs the object's first version. Later versions are awaited
	// too unless they reference the dependent back, as in an ALTER adding a
	// foreign key to a table created after the first version.
	for _, id := range sortedKeys(g.nodes) {
		from := g.nodes[id]
		for _, objectID := range sortedKeys(refs[id]) {
			for i, to := range objects[objectID] {
				if i > 0 && refs[to.ID()][from.ObjectID()] {
					continue
				}
				g.addEdge(from, to, EdgeInferred)
			}
		}
	}

	for _, d := range g.declared {
		dependents, ons := byFullName[d.dependent], byFullName[d.dependsOn]
		if len(dependents) == 0 || len(ons) == 0 {
			g.logger.Verbose("Skipping %s dependency %s -> %s: object not in graph", d.source, d.dependent, d.dependsOn)
			continue
		}
		for _, from := range dependents {
			for _, to := range ons {
				if from.ObjectID() != to.ObjectID() {
					g.addEdge(from, to, d.source)
				}
			}
		}
	}

	g.built = true
}

func (g *Graph) addEdge(from, to *dlsync.Script, source EdgeSource) {
	deps := g.edges[from.ID()]
	if deps == nil {
		deps = make(map[string]EdgeSource)
		g.edges[from.ID()] = deps
	}
	if current, ok := deps[to.ID()]; ok && current >= source {
		return
	}
	deps[to.ID()] = source
}

// resolves reports whether an identifier written in from refers to target.
// Unqualified parts are resolved against from's own database and schema.
func resolves(parts []string, from, target *dlsync.Script) bool {
	switch len(parts) {
	case 3:
		return sameIdent(parts[0], target.Database) && sameIdent(parts[1], target.Schema)
	case 2:
		return sameIdent(parts[0], target.Schema) && sameIdent(from.Database, target.Database)
	case 1:
		return sameIdent(from.Database, target.Database) && sameIdent(from.Schema, target.Schema)
	default:
		return false
	}
}

func sameIdent(a, b string) bool {
	return strings.EqualFold(strings.Trim(a, `"`), strings.Trim(b, `"`))
}

// findCycle walks the unresolved nodes depth-first in ID order and returns the
// first loop found, closed with its starting ID.
func (g *Graph) findCycle(remaining map[string]bool) []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int)
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		stack = append(stack, id)
		for _, on := range sortedKeys(g.edges[id]) {
			if !remaining[on] {
				continue
			}
			switch color[on] {
			case gray:
				for i, s := range stack {
					if s == on {
						return append(append([]string{}, stack[i:]...), on)
					}
				}
			case white:
				if cycle := visit(on); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, id := range sortedKeys(remaining) {
		if color[id] == white {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return sortedKeys(remaining)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// idHeap is a min-heap of script IDs.
type idHeap []string

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(string)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
