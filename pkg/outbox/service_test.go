package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-payments/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	"github.com/angelmondragon/marketplace-payments/pkg/outbox"
	"github.com/angelmondragon/marketplace-payments/pkg/outbox/payloads"
)

func TestEmitWritesEnvelopeInTransaction(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	svc := outbox.NewService(repo, nil)

	sourceID := uuid.New()
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSourceStateChanged,
			AggregateType: enums.AggregatePaymentSource,
			AggregateID:   sourceID,
			Actor:         &outbox.ActorRef{ID: "paypal", Role: "processor"},
			Data:          payloads.PaymentSourceStateChanged{PaymentSourceID: sourceID, To: enums.PaymentSourceStatusCompleted},
		})
	})
	require.NoError(t, err)

	rows, err := repo.FetchUnpublishedForPublish(client.DB(), 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, sourceID, rows[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, "paypal", envelope.Actor.ID)
}

func TestEmitRolledBackWithTransaction(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	svc := outbox.NewService(repo, nil)

	boom := errors.New("boom")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSourceStateChanged,
			AggregateType: enums.AggregatePaymentSource,
			AggregateID:   uuid.New(),
			Data:          map[string]string{"k": "v"},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitRequiresTransactionAndKnownType(t *testing.T) {
	svc := outbox.NewService(outbox.NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, outbox.DomainEvent{EventType: enums.EventPaymentSourceStateChanged})
	assert.Error(t, err)

	client := dbtest.Open(t)
	err = svc.Emit(context.Background(), client.DB(), outbox.DomainEvent{EventType: "nope"})
	assert.Error(t, err)
}

func TestRepositoryAttemptsAndTerminal(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	conn := client.DB()

	row := models.OutboxEvent{
		EventType:     enums.EventPaymentSourceStateChanged,
		AggregateType: enums.AggregatePaymentSource,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	require.NoError(t, conn.Create(&row).Error)

	require.NoError(t, repo.MarkFailedTx(conn, row.ID, errors.New("unavailable")))
	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "unavailable", *rows[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(conn, row.ID, errors.New("gave up"), 3))
	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRepositoryMarkPublished(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	conn := client.DB()

	row := models.OutboxEvent{
		EventType:     enums.EventWebhookReconciliationFailed,
		AggregateType: enums.AggregateWebhookDelivery,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	require.NoError(t, conn.Create(&row).Error)
	require.NoError(t, repo.MarkPublishedTx(conn, row.ID))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	conn := client.DB()

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	old := cutoff.Add(-time.Hour)
	recent := cutoff.Add(time.Hour)
	for _, publishedAt := range []*time.Time{&old, &recent, nil} {
		row := models.OutboxEvent{
			EventType:     enums.EventPaymentSourceStateChanged,
			AggregateType: enums.AggregatePaymentSource,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			PublishedAt:   publishedAt,
		}
		require.NoError(t, conn.Create(&row).Error)
	}

	deleted, err := repo.DeletePublishedBefore(conn, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	assert.Equal(t, int64(2), remaining)
}
