package waitgraph

import (
	"sort"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
)

const (
	stateUnvisited = iota
	stateOnPath
	stateDone
)

// Resolve enumerates every blocking chain in the graph. One report is
// produced per leaf-to-root chain plus exactly one report per cycle; chains
// feeding into a cycle are reported truncated at the cycle entry so the cycle
// itself is never duplicated. Resolve never fails on malformed graphs, it
// reports what is known and flags the rest.
func Resolve(g *Graph) []models.BlockerReport {
	reports := make([]models.BlockerReport, 0)

	cycleOf := findCycles(g)
	seenCycles := make(map[int]bool)

	for _, node := range g.Nodes() {
		id, inCycle := cycleOf[node]
		if !inCycle || seenCycles[id] {
			continue
		}
		seenCycles[id] = true
		reports = append(reports, cycleReport(g, cycleOf, node, id))
	}

	for _, leaf := range g.Nodes() {
		if len(g.in[leaf]) > 0 {
			continue
		}
		_, hasBlocker := g.Blocker(leaf)
		if !hasBlocker && !g.IsTruncated(leaf) {
			continue // not part of any chain
		}
		if _, inCycle := cycleOf[leaf]; inCycle {
			continue // cycle members are covered by the cycle report
		}
		reports = append(reports, chainReport(g, cycleOf, leaf))
	}

	sort.Slice(reports, func(i, j int) bool {
		di, dj := effectiveDepth(reports[i]), effectiveDepth(reports[j])
		if di != dj {
			return di > dj
		}
		if reports[i].RootSession != reports[j].RootSession {
			return reports[i].RootSession.Less(reports[j].RootSession)
		}
		return reports[i].Chain[0].Less(reports[j].Chain[0])
	})

	return reports
}

// findCycles colors the functional graph (out-degree at most one) and maps
// every cycle member to a cycle id.
func findCycles(g *Graph) map[models.SessionKey]int {
	cycleOf := make(map[models.SessionKey]int)
	state := make(map[models.SessionKey]int)
	nextID := 0

	for _, start := range g.Nodes() {
		if state[start] != stateUnvisited {
			continue
		}

		path := []models.SessionKey{}
		node := start
		for {
			if state[node] == stateOnPath {
				// Back-edge: everything from the first occurrence of node on
				// the path is a cycle.
				for i := len(path) - 1; i >= 0; i-- {
					cycleOf[path[i]] = nextID
					if path[i] == node {
						break
					}
				}
				nextID++
				break
			}
			if state[node] == stateDone {
				break
			}
			state[node] = stateOnPath
			path = append(path, node)

			next, ok := g.Blocker(node)
			if !ok {
				break
			}
			node = next
		}
		for _, n := range path {
			state[n] = stateDone
		}
	}

	return cycleOf
}

// cycleReport builds the single report for one cycle, chain ordered along
// the blocked-by edges starting from the smallest member key. Depth carries
// no root-distance meaning for cycles and is left zero.
func cycleReport(g *Graph, cycleOf map[models.SessionKey]int, member models.SessionKey, id int) models.BlockerReport {
	smallest := member
	for k, cid := range cycleOf {
		if cid == id && k.Less(smallest) {
			smallest = k
		}
	}

	chain := []models.SessionKey{smallest}
	node := smallest
	for {
		next, ok := g.Blocker(node)
		if !ok || next == smallest {
			break
		}
		chain = append(chain, next)
		node = next
	}

	return models.BlockerReport{
		RootSession: smallest,
		Chain:       chain,
		IsCycle:     true,
	}
}

// chainReport follows the blocked-by edges from a leaf until a real root, a
// truncated session, or a cycle entry terminates the walk.
func chainReport(g *Graph, cycleOf map[models.SessionKey]int, leaf models.SessionKey) models.BlockerReport {
	chain := []models.SessionKey{leaf}
	node := leaf
	truncated := g.IsTruncated(leaf)

	for steps := 0; steps < len(g.nodes); steps++ {
		next, ok := g.Blocker(node)
		if !ok {
			break
		}
		chain = append(chain, next)
		node = next
		if _, inCycle := cycleOf[node]; inCycle {
			// The chain feeds a deadlock that is reported separately.
			truncated = true
			break
		}
		if g.IsTruncated(node) {
			truncated = true
			break
		}
	}

	root := chain[len(chain)-1]
	return models.BlockerReport{
		RootSession: root,
		Chain:       chain,
		Depth:       len(chain) - 1,
		RootUnknown: g.IsPlaceholder(root) || g.IsTruncated(root),
		Truncated:   truncated,
	}
}

func effectiveDepth(r models.BlockerReport) int {
	if r.IsCycle {
		return len(r.Chain)
	}
	return r.Depth
}
