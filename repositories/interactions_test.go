package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"newsiq/models"
)

func stageKey(t *testing.T, stage interface{}) string {
	t.Helper()
	m, ok := stage.(bson.M)
	assert.True(t, ok)
	for k := range m {
		return k
	}
	return ""
}

func TestLastNPipelineLimitsAfterEmbeddingJoin(t *testing.T) {
	pipeline := lastNWithEmbeddingsPipeline(primitive.NewObjectID(), models.SessionInteractionTypes, 5)

	var keys []string
	for _, stage := range pipeline {
		keys = append(keys, stageKey(t, stage))
	}

	// the limit must come last so dropped unembedded articles cannot
	// shorten the result below n
	assert.Equal(t, "$limit", keys[len(keys)-1])

	matchIdx, limitIdx := -1, -1
	for i, k := range keys {
		switch k {
		case "$match":
			matchIdx = i // keeps the later embedding-exists match
		case "$limit":
			limitIdx = i
		}
	}
	assert.Greater(t, limitIdx, matchIdx)
}

func TestEmbeddingLookupProjectsReadTime(t *testing.T) {
	for _, stage := range embeddingLookup() {
		m := stage.(bson.M)
		if project, ok := m["$project"]; ok {
			fields := project.(bson.M)
			assert.Contains(t, fields, "read_time_seconds")
			return
		}
	}
	t.Fatal("no $project stage in embedding lookup")
}

func TestInteractionEmbeddingWeightLongReadBoundary(t *testing.T) {
	atThreshold := models.LongReadSeconds
	pastThreshold := models.LongReadSeconds + 1

	plain := InteractionEmbedding{Type: models.InteractionView}
	assert.Equal(t, 1.0, plain.Weight())

	short := InteractionEmbedding{Type: models.InteractionView, ReadTimeSeconds: &atThreshold}
	assert.Equal(t, 1.0, short.Weight())

	long := InteractionEmbedding{Type: models.InteractionView, ReadTimeSeconds: &pastThreshold}
	assert.Equal(t, 1.5, long.Weight())

	// only views get the boost
	bookmark := InteractionEmbedding{Type: models.InteractionBookmark, ReadTimeSeconds: &pastThreshold}
	assert.Equal(t, 3.0, bookmark.Weight())
}
