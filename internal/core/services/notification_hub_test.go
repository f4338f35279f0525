package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/core/domain"
)

func TestNotificationHub_PublishesToMemberStreams(t *testing.T) {
	hub := NewNotificationHub()
	mine := hub.Subscribe("a", 1)
	other := hub.Subscribe("b", 2)
	require.Equal(t, 2, hub.ClientCount())

	sent := hub.Publish(&models.Notification{MemberID: 1, Type: models.NotifyRiskChanged})
	assert.Equal(t, 1, sent)

	event := <-mine.Channel
	assert.Equal(t, "notification", event.Event)
	assert.Empty(t, other.Channel)

	hub.Unsubscribe("a")
	hub.Unsubscribe("a")
	_, open := <-mine.Channel
	assert.False(t, open)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestNotificationHub_DropsWhenFull(t *testing.T) {
	hub := NewNotificationHub()
	client := hub.Subscribe("slow", 7)

	for i := 0; i < hubClientBuffer; i++ {
		require.Equal(t, 1, hub.Publish(&models.Notification{MemberID: 7}))
	}
	assert.Equal(t, 0, hub.Publish(&models.Notification{MemberID: 7}))
	assert.Len(t, client.Channel, hubClientBuffer)
}

func TestNotificationService_PushesAfterStore(t *testing.T) {
	repo := &fakeNotificationRepo{}
	hub := NewNotificationHub()
	svc := NewNotificationService(repo, "E").WithHub(hub)
	client := hub.Subscribe("m3", 3)

	svc.NotifyRiskChanged(context.Background(), 3, domain.RiskLow, domain.RiskMedium)

	require.Len(t, repo.rows, 1)
	require.Len(t, client.Channel, 1)
	event := <-client.Channel
	n, ok := event.Data.(*models.Notification)
	require.True(t, ok)
	assert.Equal(t, repo.rows[0].ID, n.ID)
}
