package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/marketplace-payments/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/p1/topics/payment-events", topicResourceName("p1", "payment-events"))
	assert.Equal(t, "projects/other/topics/x", topicResourceName("p1", "projects/other/topics/x"))
	assert.Empty(t, topicResourceName("", "payment-events"))
	assert.Empty(t, topicResourceName("p1", "  "))
}

func TestSubscriptionResourceName(t *testing.T) {
	assert.Equal(t, "projects/p1/subscriptions/payment-events-analytics", subscriptionResourceName("p1", "payment-events-analytics"))
	assert.Equal(t, "projects/p1/subscriptions/s", subscriptionResourceName("p2", "projects/p1/subscriptions/s"))
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{PaymentEventsTopic: "payment-events", AlertsTopic: " "})
	assert.Equal(t, []string{"payment-events"}, names)
	assert.Empty(t, topicNames(config.PubSubConfig{}))
}
