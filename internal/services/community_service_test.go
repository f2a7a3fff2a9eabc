// internal/services/community_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabhub/fabhub-backend/internal/models"
)

func makeComment(id uuid.UUID, parentID *uuid.UUID, score int64, createdAt time.Time) models.Comment {
	c := models.Comment{ParentID: parentID, Score: score}
	c.ID = id
	c.CreatedAt = createdAt
	return c
}

func countNodes(nodes []*CommentNode) int {
	total := 0
	for _, n := range nodes {
		total += 1 + countNodes(n.Replies)
	}
	return total
}

func TestBuildCommentTreePreservesAllComments(t *testing.T) {
	base := time.Now()
	root1 := uuid.New()
	root2 := uuid.New()
	child := uuid.New()

	comments := []models.Comment{
		makeComment(root1, nil, 0, base),
		makeComment(root2, nil, 0, base.Add(time.Minute)),
		makeComment(child, &root1, 0, base.Add(2*time.Minute)),
	}

	tree := BuildCommentTree(comments)

	assert.Len(t, tree, 2)
	assert.Equal(t, len(comments), countNodes(tree))
}

func TestBuildCommentTreeAssignsDepth(t *testing.T) {
	base := time.Now()
	root := uuid.New()
	reply := uuid.New()
	nested := uuid.New()

	comments := []models.Comment{
		makeComment(root, nil, 0, base),
		makeComment(reply, &root, 0, base.Add(time.Minute)),
		makeComment(nested, &reply, 0, base.Add(2*time.Minute)),
	}

	tree := BuildCommentTree(comments)
	require.Len(t, tree, 1)

	assert.Equal(t, 0, tree[0].Depth)
	require.Len(t, tree[0].Replies, 1)
	assert.Equal(t, 1, tree[0].Replies[0].Depth)
	require.Len(t, tree[0].Replies[0].Replies, 1)
	assert.Equal(t, 2, tree[0].Replies[0].Replies[0].Depth)
}

func TestBuildCommentTreePromotesOrphans(t *testing.T) {
	base := time.Now()
	missingParent := uuid.New()
	orphan := uuid.New()
	root := uuid.New()

	comments := []models.Comment{
		makeComment(root, nil, 0, base),
		makeComment(orphan, &missingParent, 0, base.Add(time.Minute)),
	}

	tree := BuildCommentTree(comments)

	// The orphan becomes a root instead of being dropped
	assert.Len(t, tree, 2)
	assert.Equal(t, 2, countNodes(tree))
	for _, node := range tree {
		assert.Equal(t, 0, node.Depth)
	}
}

func TestBuildCommentTreeSortsSiblingsByScoreThenAge(t *testing.T) {
	base := time.Now()
	low := uuid.New()
	high := uuid.New()
	oldTied := uuid.New()
	newTied := uuid.New()

	comments := []models.Comment{
		makeComment(low, nil, 1, base),
		makeComment(high, nil, 10, base.Add(time.Hour)),
		makeComment(oldTied, nil, 5, base.Add(time.Minute)),
		makeComment(newTied, nil, 5, base.Add(30*time.Minute)),
	}

	tree := BuildCommentTree(comments)
	require.Len(t, tree, 4)

	assert.Equal(t, high, tree[0].Comment.ID)
	assert.Equal(t, oldTied, tree[1].Comment.ID)
	assert.Equal(t, newTied, tree[2].Comment.ID)
	assert.Equal(t, low, tree[3].Comment.ID)
}

func TestBuildCommentTreeEmptyInput(t *testing.T) {
	assert.Empty(t, BuildCommentTree(nil))
	assert.Empty(t, BuildCommentTree([]models.Comment{}))
}
