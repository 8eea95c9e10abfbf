// Package waitgraph builds a directed session-wait graph from GV$SESSION
// snapshot rows and resolves blocking chains, root blockers and deadlock
// candidates from it.
package waitgraph

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
)

// Graph is a directed wait-for graph. An edge A -> B means session A is
// blocked by session B. A node has at most one outgoing edge; fan-in is
// unbounded.
type Graph struct {
	nodes map[models.SessionKey]bool
	out   map[models.SessionKey]models.SessionKey
	in    map[models.SessionKey][]models.SessionKey

	// placeholders are blocker nodes referenced by a row but missing from
	// the snapshot itself. They keep chains from silently truncating.
	placeholders map[models.SessionKey]bool
	// truncated marks sessions whose blocker id is known but whose blocker
	// instance is not, so no qualified edge could be added.
	truncated map[models.SessionKey]bool

	rows    map[models.SessionKey]models.SessionSnapshotRow
	dropped int
}

// Build constructs the wait graph from one coherent snapshot. Malformed rows
// (self-blocking) are dropped and counted, never turned into edges. Pure
// transformation: the input slice is not modified.
func Build(rows []models.SessionSnapshotRow) *Graph {
	g := &Graph{
		nodes:        make(map[models.SessionKey]bool),
		out:          make(map[models.SessionKey]models.SessionKey),
		in:           make(map[models.SessionKey][]models.SessionKey),
		placeholders: make(map[models.SessionKey]bool),
		truncated:    make(map[models.SessionKey]bool),
		rows:         make(map[models.SessionKey]models.SessionSnapshotRow),
	}

	for _, row := range rows {
		key := row.Key()
		g.nodes[key] = true
		if _, seen := g.rows[key]; !seen {
			g.rows[key] = row
		}

		if row.BlockingSessionID == nil {
			continue
		}
		if row.BlockingInstanceID == nil {
			// Blocker id without an instance cannot be qualified; the chain
			// ends here and is flagged rather than silently shortened.
			log.WithField("session", key.String()).Warn("blocker instance unknown, chain truncated")
			g.truncated[key] = true
			continue
		}

		blocker := models.SessionKey{
			InstanceID: int(*row.BlockingInstanceID),
			SessionID:  int(*row.BlockingSessionID),
		}
		if blocker == key {
			log.WithField("session", key.String()).Warn("dropping self-blocking session row")
			g.dropped++
			continue
		}
		if existing, ok := g.out[key]; ok {
			if existing != blocker {
				log.WithFields(log.Fields{
					"session": key.String(),
					"kept":    existing.String(),
					"dropped": blocker.String(),
				}).Warn("duplicate snapshot row with conflicting blocker")
				g.dropped++
			}
			continue
		}

		g.out[key] = blocker
		g.in[blocker] = append(g.in[blocker], key)
		if !g.nodes[blocker] {
			g.nodes[blocker] = true
			g.placeholders[blocker] = true
		}
	}

	// A placeholder stops being one as soon as its own row shows up later in
	// the input.
	for key := range g.placeholders {
		if _, ok := g.rows[key]; ok {
			delete(g.placeholders, key)
		}
	}

	return g
}

// Nodes returns all node keys in deterministic order.
func (g *Graph) Nodes() []models.SessionKey {
	keys := make([]models.SessionKey, 0, len(g.nodes))
	for k := range g.nodes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// EdgeCount returns the number of directed blocked-by edges.
func (g *Graph) EdgeCount() int {
	return len(g.out)
}

// Blocker returns the node the given session waits on, if any.
func (g *Graph) Blocker(k models.SessionKey) (models.SessionKey, bool) {
	b, ok := g.out[k]
	return b, ok
}

// BlockedBy returns the sessions waiting on the given node, sorted.
func (g *Graph) BlockedBy(k models.SessionKey) []models.SessionKey {
	waiters := append([]models.SessionKey(nil), g.in[k]...)
	sort.Slice(waiters, func(i, j int) bool { return waiters[i].Less(waiters[j]) })
	return waiters
}

// IsPlaceholder reports whether the node was synthesized for a blocker whose
// own session row was missing from the snapshot.
func (g *Graph) IsPlaceholder(k models.SessionKey) bool {
	return g.placeholders[k]
}

// IsTruncated reports whether the session references a blocker that could not
// be located even as a placeholder.
func (g *Graph) IsTruncated(k models.SessionKey) bool {
	return g.truncated[k]
}

// Row returns the snapshot row backing a node, if the node is not a
// placeholder.
func (g *Graph) Row(k models.SessionKey) (models.SessionSnapshotRow, bool) {
	row, ok := g.rows[k]
	return row, ok
}

// DroppedRows returns the number of malformed input rows that were discarded.
func (g *Graph) DroppedRows() int {
	return g.dropped
}
