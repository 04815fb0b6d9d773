package category

import "github.com/xaenox/promptlab/internal/models"

// Node is a category with its ordered children.
type Node struct {
	models.Category
	Children []*Node
}

// BuildForest links a flat category list into roots. A parent id that does not
// resolve makes the category a root; sibling order follows input order.
func BuildForest(categories []models.Category) []*Node {
	nodes := make(map[string]*Node, len(categories))
	for _, c := range categories {
		nodes[c.ID] = &Node{Category: c, Children: []*Node{}}
	}

	broken := cycleBreakers(categories)
	roots := make([]*Node, 0)
	for _, c := range categories {
		node := nodes[c.ID]
		parent, ok := resolveParent(c, nodes)
		if !ok || broken[c.ID] {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots
}

func resolveParent(c models.Category, nodes map[string]*Node) (*Node, bool) {
	if c.ParentID == nil {
		return nil, false
	}
	p, ok := nodes[*c.ParentID]
	return p, ok
}

// cycleBreakers returns, for each parent cycle in the input, the member that
// appears first in input order. Those members are promoted to roots so every
// category stays reachable exactly once.
func cycleBreakers(categories []models.Category) map[string]bool {
	parent := make(map[string]string, len(categories))
	for _, c := range categories {
		if c.ParentID != nil {
			parent[c.ID] = *c.ParentID
		}
	}

	broken := make(map[string]bool)
	settled := make(map[string]bool, len(categories))
	for _, c := range categories {
		onPath := make(map[string]bool)
		loopAt := ""
		for id := c.ID; !settled[id]; {
			if onPath[id] {
				loopAt = id
				break
			}
			onPath[id] = true
			next, ok := parent[id]
			if !ok || broken[next] {
				break
			}
			id = next
		}
		if loopAt != "" {
			broken[firstInLoop(loopAt, parent, categories)] = true
		}
		for member := range onPath {
			settled[member] = true
		}
	}
	return broken
}

func firstInLoop(start string, parent map[string]string, categories []models.Category) string {
	loop := map[string]bool{start: true}
	for id := parent[start]; id != start; id = parent[id] {
		loop[id] = true
	}
	for _, c := range categories {
		if loop[c.ID] {
			return c.ID
		}
	}
	return start
}
