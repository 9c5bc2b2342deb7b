package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rollercoaster-sim/loopix/internal/node"
)

func members(n int) (node.ID, []node.ID) {
	source := node.ID{Kind: node.User, Index: 0}
	all := []node.ID{source}
	for i := 1; i < n; i++ {
		all = append(all, node.ID{Kind: node.User, Index: i})
	}
	return source, all
}

func TestBuildCoversEveryMemberExactlyOnce(t *testing.T) {
	source, all := members(10)
	s := Build(source, all, 2, 0)

	seen := map[node.ID]int{}
	for _, children := range s.children {
		for _, c := range children {
			seen[c]++
		}
	}
	for _, m := range all {
		if m == source {
			require.Zero(t, seen[m], "source must not appear as anyone's child")
			continue
		}
		require.Equal(t, 1, seen[m], "member %v should appear as exactly one child", m)
	}
}

func TestParentChildConsistency(t *testing.T) {
	source, all := members(13)
	s := Build(source, all, 3, 5)

	for child, parent := range s.parent {
		require.Contains(t, s.children[parent], child)
	}
}

func TestParentsReachesSource(t *testing.T) {
	source, all := members(16)
	s := Build(source, all, 2, 123)

	for _, m := range all {
		if m == source {
			continue
		}
		p := s.Parents(m)
		require.NotEmpty(t, p)
		require.Equal(t, source, p[len(p)-1])
		require.Equal(t, len(p), s.HopsBetween(source, m))
	}
}

func TestIsLeafMatchesChildren(t *testing.T) {
	source, all := members(9)
	s := Build(source, all, 2, 0)

	for _, m := range all {
		require.Equal(t, len(s.children[m]) == 0, s.IsLeaf(m))
	}
}

func TestNextReceiverWrapsToSource(t *testing.T) {
	source, all := members(6)
	s := Build(source, all, 2, 0)

	last := all[len(all)-1]
	// Walking NextReceiver from an element with no declared successor
	// eventually returns to source (its fallback order is cyclic).
	cur := last
	visited := map[node.ID]bool{}
	for i := 0; i < len(all)+1; i++ {
		cur = s.NextReceiver(cur)
		if cur == source {
			return
		}
		require.False(t, visited[cur], "NextReceiver looped without reaching source")
		visited[cur] = true
	}
	t.Fatal("NextReceiver never wrapped back to source")
}

func TestBuildDeterministicForSameNonce(t *testing.T) {
	source, all := members(20)
	a := Build(source, all, 3, 42)
	b := Build(source, all, 3, 42)

	require.Equal(t, a.order, b.order)
	for k := range a.children {
		require.Equal(t, a.children[k], b.children[k])
	}
}

func TestEstimatedRTTAtRootIncludesRootsOwnQueueingTerm(t *testing.T) {
	source, all := members(4)
	s := Build(source, all, 2, 0)
	// source has 3 direct children (1, 2, 3): 10 + (10 + 5*(1+3)) == 40.
	require.Equal(t, 40.0, s.EstimatedRTT(source, source, 10, 5))
}
