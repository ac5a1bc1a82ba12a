package modeling

// GraphLink describes where a reference may appear on a resource and which
// types it may point to. An empty TargetTypes accepts any type.
type GraphLink struct {
	Path        string   `json:"path"`
	TargetTypes []string `json:"target_types,omitempty"`
}

// GraphEdge is one followed reference.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Path string `json:"path"`
}

// GraphTraversalResult is the outcome of FollowGraph.
type GraphTraversalResult struct {
	Start      string      `json:"start"`
	Edges      []GraphEdge `json:"edges"`
	Unresolved []string    `json:"unresolved"`
	Expanded   []string    `json:"expanded"`
}

// expansion records why a reference was or was not expanded.
type expansion int

const (
	expanded expansion = iota
	depthExhausted
	unresolvedRef
	alreadyVisited
)

func (e expansion) String() string {
	switch e {
	case expanded:
		return "expanded"
	case depthExhausted:
		return "depth-exhausted"
	case unresolvedRef:
		return "unresolved"
	case alreadyVisited:
		return "already-visited"
	}
	return "unknown"
}

type queueItem struct {
	resource map[string]interface{}
	depth    int
	ref      string
}

// graphTraverser holds state for a single traversal.
type graphTraverser struct {
	links    []GraphLink
	pool     map[string]map[string]interface{}
	maxDepth int

	visited    map[string]bool
	unresolved map[string]bool
	result     *GraphTraversalResult

	// outcomes keeps the last decision per reference.
	outcomes map[string]expansion
}

func newGraphTraverser(links []GraphLink, pool []map[string]interface{}, maxDepth int) *graphTraverser {
	if maxDepth < 0 {
		maxDepth = 0
	}
	lookup := make(map[string]map[string]interface{}, len(pool))
	for _, r := range pool {
		ref, err := ReferenceOf(r)
		if err != nil {
			continue
		}
		lookup[ref] = r
	}
	return &graphTraverser{
		links:      links,
		pool:       lookup,
		maxDepth:   maxDepth,
		visited:    make(map[string]bool),
		unresolved: make(map[string]bool),
		outcomes:   make(map[string]expansion),
	}
}

// FollowGraph performs a bounded breadth-first walk from start over the
// references described by links, resolving targets against pool. Edges are
// recorded for every matching reference, including those not expanded.
// References missing from pool are reported in Unresolved. The only error is
// a start resource without resource_type or id.
func FollowGraph(start map[string]interface{}, links []GraphLink, pool []map[string]interface{}, maxDepth int) (*GraphTraversalResult, error) {
	startRef, err := ReferenceOf(start)
	if err != nil {
		return nil, err
	}
	t := newGraphTraverser(links, pool, maxDepth)
	t.run(start, startRef)
	return t.result, nil
}

func (t *graphTraverser) run(start map[string]interface{}, startRef string) {
	t.result = &GraphTraversalResult{
		Start:      startRef,
		Edges:      []GraphEdge{},
		Unresolved: []string{},
		Expanded:   []string{startRef},
	}
	t.visited[startRef] = true
	t.outcomes[startRef] = expanded

	queue := []queueItem{{resource: start, depth: 0, ref: startRef}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		for _, link := range t.links {
			for _, ref := range ExtractReferences(item.resource, link.Path) {
				if !t.accepts(link, ref) {
					continue
				}
				t.result.Edges = append(t.result.Edges, GraphEdge{From: item.ref, To: ref, Path: link.Path})

				switch t.classify(ref, item.depth) {
				case expanded:
					t.visited[ref] = true
					t.result.Expanded = append(t.result.Expanded, ref)
					queue = append(queue, queueItem{resource: t.pool[ref], depth: item.depth + 1, ref: ref})
				case unresolvedRef:
					if !t.unresolved[ref] {
						t.unresolved[ref] = true
						t.result.Unresolved = append(t.result.Unresolved, ref)
					}
				}
			}
		}
	}
}

// accepts applies the link's type filter.
func (t *graphTraverser) accepts(link GraphLink, ref string) bool {
	if len(link.TargetTypes) == 0 {
		return true
	}
	rt := referenceType(ref)
	for _, want := range link.TargetTypes {
		if want == rt {
			return true
		}
	}
	return false
}

// classify decides what happens to ref found at depth and records it. A
// reference absent from the pool is unresolved whatever its depth; the depth
// bound only stops expansion of references the pool can satisfy.
func (t *graphTraverser) classify(ref string, depth int) expansion {
	var e expansion
	switch {
	case t.visited[ref]:
		e = alreadyVisited
	case t.pool[ref] == nil:
		e = unresolvedRef
	case depth >= t.maxDepth:
		e = depthExhausted
	default:
		e = expanded
	}
	if prev, seen := t.outcomes[ref]; !seen || prev != expanded {
		t.outcomes[ref] = e
	}
	return e
}
