package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/fairshare/internal/clock"
	"github.com/smallbiznis/fairshare/internal/events/mock"
	"github.com/smallbiznis/fairshare/pkg/db/dbtest"
	"github.com/smallbiznis/fairshare/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type relayFixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
	outbox *Outbox
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC))
	return &relayFixture{
		db:     dbtest.Open(t, &Event{}),
		node:   node,
		clock:  clk,
		outbox: NewOutbox(node, clk),
	}
}

func (f *relayFixture) stage(t *testing.T, ctx context.Context, tenantID snowflake.ID, typ Type, payload BookingPayload) {
	t.Helper()
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return f.outbox.Stage(ctx, tx, tenantID, typ, f.node.Generate(), payload)
	}))
}

func (f *relayFixture) relay(pub Publisher) *Relay {
	return NewRelay(RelayParams{
		DB:        f.db,
		Log:       zap.NewNop(),
		Clock:     f.clock,
		Publisher: pub,
		Config:    RelayConfig{Interval: time.Second, BatchSize: 10, MaxAttempts: 2},
	})
}

func TestRelayPublishesInOrder(t *testing.T) {
	f := newRelayFixture(t)
	ctrl := gomock.NewController(t)
	pub := mock.NewMockPublisher(ctrl)

	tenantID := f.node.Generate()
	ctx := correlation.ContextWithCorrelationID(context.Background(), "cid-7")
	f.stage(t, ctx, tenantID, BookingGranted, BookingPayload{BookingID: "1", Status: "granted"})
	f.stage(t, ctx, tenantID, BookingDisplaced, BookingPayload{BookingID: "2", Status: "waitlisted"})

	gomock.InOrder(
		pub.EXPECT().Publish(gomock.Any(), string(BookingGranted), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, body []byte) error {
				var env Envelope
				require.NoError(t, json.Unmarshal(body, &env))
				assert.Equal(t, tenantID.String(), env.TenantID)
				assert.Equal(t, "cid-7", env.CorrelationID)

				var payload BookingPayload
				require.NoError(t, json.Unmarshal(env.Data, &payload))
				assert.Equal(t, "1", payload.BookingID)
				return nil
			}),
		pub.EXPECT().Publish(gomock.Any(), string(BookingDisplaced), gomock.Any()).Return(nil),
	)

	relay := f.relay(pub)
	result, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Published)

	backlog, err := relay.Backlog(context.Background())
	require.NoError(t, err)
	assert.Zero(t, backlog)

	again, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.Published)
}

func TestRelayRetriesUntilMaxAttempts(t *testing.T) {
	f := newRelayFixture(t)
	ctrl := gomock.NewController(t)
	pub := mock.NewMockPublisher(ctrl)

	f.stage(t, context.Background(), f.node.Generate(), BookingCancelled, BookingPayload{BookingID: "9"})

	pub.EXPECT().Publish(gomock.Any(), string(BookingCancelled), gomock.Any()).Return(errors.New("broker down")).Times(2)

	relay := f.relay(pub)
	for i := 0; i < 3; i++ {
		_, err := relay.RunOnce(context.Background())
		require.NoError(t, err)
	}

	var evt Event
	require.NoError(t, f.db.First(&evt).Error)
	assert.False(t, evt.Published)
	assert.Equal(t, 2, evt.Attempts)
	require.NotNil(t, evt.LastError)
	assert.Equal(t, "broker down", *evt.LastError)
}

func TestOutboxRollsBackWithTransaction(t *testing.T) {
	f := newRelayFixture(t)

	_ = f.db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, f.outbox.Stage(context.Background(), tx, f.node.Generate(), BookingGranted, f.node.Generate(), BookingPayload{}))
		return errors.New("abort")
	})

	var count int64
	require.NoError(t, f.db.Model(&Event{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLogPublisher(t *testing.T) {
	pub := NewLogPublisher(zap.NewNop())
	assert.NoError(t, pub.Publish(context.Background(), "booking.granted", []byte(`{}`)))
}
