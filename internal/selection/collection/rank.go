package collection

import (
	"sort"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

var statusRank = map[domain.NodeStatus]int{
	domain.NodeStatusActive:      0,
	domain.NodeStatusStandby:     1,
	domain.NodeStatusMaintenance: 2,
	domain.NodeStatusUnreachable: 3,
	domain.NodeStatusUnknown:     4,
}

var syncRank = map[domain.SyncStatus]int{
	domain.SyncStatusSynchronized:  0,
	domain.SyncStatusSynchronizing: 1,
	domain.SyncStatusOutOfSync:     2,
	domain.SyncStatusUnknown:       3,
}

// neTypeRank prefers radio-access elements over core elements when
// everything else ties.
var neTypeRank = map[string]int{
	"ERBS":      0,
	"RadioNode": 1,
	"GNB":       2,
	"MSC":       3,
	"SGSN":      4,
}

const neTypeRankDefault = 9

func rankOf(m map[domain.NodeStatus]int, k domain.NodeStatus) int {
	if r, ok := m[k]; ok {
		return r
	}
	return m[domain.NodeStatusUnknown]
}

// rank orders nodes deterministically: status, then sync status, then the
// NE-type priority table, then lexicographic id. The sort is stable so
// equal nodes keep their prior (prioritize-action) order.
func rank(nodes []*domain.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]

		if ra, rb := rankOf(statusRank, a.Status), rankOf(statusRank, b.Status); ra != rb {
			return ra < rb
		}

		sa, ok := syncRank[a.SyncStatus]
		if !ok {
			sa = syncRank[domain.SyncStatusUnknown]
		}
		sb, ok := syncRank[b.SyncStatus]
		if !ok {
			sb = syncRank[domain.SyncStatusUnknown]
		}
		if sa != sb {
			return sa < sb
		}

		na, nb := neTypeRankDefault, neTypeRankDefault
		if r, ok := neTypeRank[a.NEType]; ok {
			na = r
		}
		if r, ok := neTypeRank[b.NEType]; ok {
			nb = r
		}
		if na != nb {
			return na < nb
		}

		return a.ID < b.ID
	})
}
