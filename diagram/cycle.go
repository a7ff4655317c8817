package diagram

// Cycle detection runs iteratively with an explicit stack so large
// diagrams cannot exhaust the call stack.

type visitColor uint8

const (
	colorWhite visitColor = iota // unvisited
	colorGray                    // on the current path
	colorBlack                   // fully explored
)

// HasCycle reports whether the diagram's edge relation contains a
// directed cycle. O(V+E).
func (d *Diagram) HasCycle() bool {
	colors := make(map[string]visitColor, len(d.Nodes))

	type frame struct {
		id   string
		next int // index into successors, resumed on revisit
	}

	for _, start := range d.Nodes {
		if colors[start.ID] != colorWhite {
			continue
		}
		stack := []frame{{id: start.ID}}
		colors[start.ID] = colorGray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succs := d.out[top.id]
			if top.next >= len(succs) {
				colors[top.id] = colorBlack
				stack = stack[:len(stack)-1]
				continue
			}
			next := succs[top.next]
			top.next++
			switch colors[next] {
			case colorGray:
				return true
			case colorWhite:
				colors[next] = colorGray
				stack = append(stack, frame{id: next})
			}
		}
	}
	return false
}
