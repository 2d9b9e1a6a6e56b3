package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"newsiq/models"
)

func TestEntityMentionsAllNamesSalienceOrder(t *testing.T) {
	m := &models.EntityMentions{
		People:        []string{"Jane Doe", "John Smith"},
		Organizations: []string{"Acme Corp"},
		Locations:     []string{"Berlin"},
	}
	assert.Equal(t, []string{"Jane Doe", "John Smith", "Acme Corp", "Berlin"}, m.AllNames())
}

func TestEntityMentionsAllNamesDeduplicatesCaseInsensitive(t *testing.T) {
	m := &models.EntityMentions{
		People:        []string{"Jane Doe"},
		Organizations: []string{"JANE DOE", "Acme Corp"},
	}
	assert.Equal(t, []string{"Jane Doe", "Acme Corp"}, m.AllNames())
}

func TestEntityMentionsAllNamesNilReceiver(t *testing.T) {
	var m *models.EntityMentions
	assert.Nil(t, m.AllNames())
}

func TestCredibilityOrDefault(t *testing.T) {
	rated := 85
	a := models.Article{SourceCredibility: &rated}
	assert.Equal(t, 85, a.CredibilityOrDefault(70))

	unrated := models.Article{}
	assert.Equal(t, 70, unrated.CredibilityOrDefault(70))
}

func TestClusterStatusFor(t *testing.T) {
	now := time.Now()
	assert.Equal(t, models.ClusterDeveloping, models.StatusFor(now.Add(-23*time.Hour), now))
	assert.Equal(t, models.ClusterOngoing, models.StatusFor(now.Add(-25*time.Hour), now))
}

func TestInteractionWeight(t *testing.T) {
	i := models.UserInteraction{Type: models.InteractionMute}
	assert.Equal(t, -5.0, i.Weight())

	unknown := models.UserInteraction{Type: "share"}
	assert.Equal(t, 0.0, unknown.Weight())
}

func TestResearchCacheValid(t *testing.T) {
	now := time.Now()
	fresh := models.ResearchCache{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, fresh.Valid(now))

	expired := models.ResearchCache{ExpiresAt: now.Add(-time.Hour)}
	assert.False(t, expired.Valid(now))

	flagged := models.ResearchCache{ExpiresAt: now.Add(time.Hour), Invalidated: true}
	assert.False(t, flagged.Valid(now))
}
