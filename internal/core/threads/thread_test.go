package threads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(id int) *int { return &id }

func msg(id int, replyTo *int) Message[int, string] {
	return Message[int, string]{ID: id, ReplyToID: replyTo}
}

func ids(nodes []*Node[int, string]) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestBuild_OrphanBecomesRoot(t *testing.T) {
	roots := Build([]Message[int, string]{
		msg(1, nil),
		msg(2, ref(1)),
		msg(3, ref(99)),
	})

	require.Len(t, roots, 2)
	assert.Equal(t, []int{1, 3}, ids(roots))
	assert.Equal(t, []int{2}, ids(roots[0].Children))
	assert.Empty(t, roots[1].Children)

	// The orphan keeps its dangling reference
	require.NotNil(t, roots[1].ParentID)
	assert.Equal(t, 99, *roots[1].ParentID)
	assert.Equal(t, 3, Count(roots))
}

func TestBuild_PreservesInputOrder(t *testing.T) {
	roots := Build([]Message[int, string]{
		msg(10, nil),
		msg(11, ref(10)),
		msg(20, nil),
		msg(12, ref(10)),
		msg(13, ref(11)),
		msg(21, ref(20)),
	})

	assert.Equal(t, []int{10, 20}, ids(roots))
	assert.Equal(t, []int{11, 12}, ids(roots[0].Children))
	assert.Equal(t, []int{13}, ids(roots[0].Children[0].Children))
	assert.Equal(t, []int{21}, ids(roots[1].Children))
	assert.Equal(t, []int{10, 11, 13, 12, 20, 21}, ids(Flatten(roots)))
	assert.Equal(t, 3, Depth(roots))
}

func TestBuild_ReplyBeforeParent(t *testing.T) {
	roots := Build([]Message[int, string]{
		msg(2, ref(1)),
		msg(1, nil),
	})

	assert.Equal(t, []int{1}, ids(roots))
	assert.Equal(t, []int{2}, ids(roots[0].Children))
}

func TestBuild_Empty(t *testing.T) {
	roots := Build[int, string](nil)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
	assert.Equal(t, 0, Count(roots))
	assert.Equal(t, 0, Depth(roots))
	assert.Empty(t, Flatten(roots))
}

func TestBuild_BreaksCycles(t *testing.T) {
	tests := []struct {
		name      string
		messages  []Message[int, string]
		wantRoots []int
	}{
		{
			name:      "self reply",
			messages:  []Message[int, string]{msg(1, ref(1))},
			wantRoots: []int{1},
		},
		{
			name:      "two-message loop",
			messages:  []Message[int, string]{msg(1, ref(2)), msg(2, ref(1))},
			wantRoots: []int{1},
		},
		{
			name:      "chain into a loop",
			messages:  []Message[int, string]{msg(0, ref(1)), msg(1, ref(2)), msg(2, ref(1)), msg(3, nil)},
			wantRoots: []int{1, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roots := Build(tt.messages)
			assert.Equal(t, tt.wantRoots, ids(roots))
			assert.Equal(t, len(tt.messages), Count(roots))
		})
	}
}

func TestBuild_DuplicateIDs(t *testing.T) {
	roots := Build([]Message[int, string]{
		{ID: 1, Payload: "first"},
		{ID: 1, Payload: "second"},
		{ID: 2, ReplyToID: ref(1), Payload: "reply"},
	})

	require.Len(t, roots, 2)
	assert.Equal(t, "first", roots[0].Payload)
	assert.Equal(t, "second", roots[1].Payload)
	assert.Equal(t, []int{2}, ids(roots[0].Children))
	assert.Equal(t, 3, Count(roots))
}

func TestBuild_CountIsPreserved(t *testing.T) {
	const n = 5000
	messages := make([]Message[string, int], 0, n)
	for i := 0; i < n; i++ {
		id := string(rune('a'+i%26)) + string(rune('0'+i/26%10)) + string(rune('A'+i/260))
		m := Message[string, int]{ID: id, Payload: i}
		if i > 0 && i%7 != 0 {
			parent := messages[i/2].ID
			m.ReplyToID = &parent
		}
		if i%97 == 0 {
			missing := "missing"
			m.ReplyToID = &missing
		}
		messages = append(messages, m)
	}

	roots := Build(messages)
	assert.Equal(t, n, Count(roots))
	assert.Len(t, Flatten(roots), n)

	seen := make(map[int]bool, n)
	for _, node := range Flatten(roots) {
		assert.False(t, seen[node.Payload], "payload %d appears twice", node.Payload)
		seen[node.Payload] = true
	}
}

func TestDepth_DeepChain(t *testing.T) {
	const n = 100000
	messages := make([]Message[int, string], n)
	messages[0] = msg(0, nil)
	for i := 1; i < n; i++ {
		messages[i] = msg(i, ref(i-1))
	}

	roots := Build(messages)
	assert.Equal(t, n, Depth(roots))
	assert.Equal(t, n, Count(roots))
}
