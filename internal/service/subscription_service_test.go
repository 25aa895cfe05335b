package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/apperr"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/basket"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/repository"
)

func TestCreatePricesByClientType(t *testing.T) {
	e := newEnv(t, "2025-07-23")
	ctx := context.Background()

	part, err := e.subs.Create(ctx, tomatoBasket(), client(models.ClientParticulier), weekly())
	require.NoError(t, err)
	assert.True(t, d("750").Equal(part.TotalAmount))
	assert.True(t, part.DiscountRate.IsZero())
	assert.True(t, d("750").Equal(part.FinalAmount))

	pro, err := e.subs.Create(ctx, tomatoBasket(), client(models.ClientPro), weekly())
	require.NoError(t, err)
	assert.True(t, d("750").Equal(pro.TotalAmount))
	assert.True(t, d("0.1").Equal(pro.DiscountRate))
	assert.True(t, d("675").Equal(pro.FinalAmount))

	stored, err := e.subs.Get(ctx, pro.ID)
	require.NoError(t, err)
	assert.True(t, d("675").Equal(stored.FinalAmount))
	assert.Equal(t, models.SubscriptionActive, stored.Status)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Tomate", stored.Items[0].ProductName)
	assert.True(t, d("750").Equal(stored.Items[0].TotalPrice))
}

func TestCreateSchedulesFirstDelivery(t *testing.T) {
	e := newEnv(t, "2025-07-23")

	sub := e.create(t, weekly())
	require.NotNil(t, sub.NextDeliveryDate)
	assert.Equal(t, "2025-07-30", sub.NextDeliveryDate.String())

	monthly := weekly()
	monthly.Frequency = models.FrequencyMonthly
	e.clock.set("2025-01-31")
	sub = e.create(t, monthly)
	assert.Equal(t, "2025-02-28", sub.NextDeliveryDate.String())
}

func TestCreateUnknownFrequencyFallsBackToWeekly(t *testing.T) {
	e := newEnv(t, "2025-07-23")
	schedule := weekly()
	schedule.Frequency = "fortnightly"

	sub := e.create(t, schedule)
	assert.Equal(t, models.FrequencyWeekly, sub.Schedule.Frequency)
	assert.Equal(t, "2025-07-30", sub.NextDeliveryDate.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.CadenceFallbacks))
}

func TestCreateValidation(t *testing.T) {
	e := newEnv(t, "2025-07-23")
	ctx := context.Background()

	offLattice := basket.Basket{Lines: []basket.Line{{Offering: tomato(), Quantity: d("0.75")}}}
	noName := client(models.ClientParticulier)
	noName.Name = "  "
	noPhone := client(models.ClientParticulier)
	noPhone.Phone = ""
	wholesale := client("wholesale")

	cases := []struct {
		name   string
		basket basket.Basket
		client models.Client
		want   apperr.Kind
	}{
		{"empty basket", basket.Basket{}, client(models.ClientPro), apperr.EmptyBasket},
		{"missing name", tomatoBasket(), noName, apperr.MissingClientField},
		{"missing phone", tomatoBasket(), noPhone, apperr.MissingClientField},
		{"unknown client type", tomatoBasket(), wholesale, apperr.UnknownClientType},
		{"quantity off lattice", offLattice, client(models.ClientPro), apperr.QuantityOutOfLattice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.subs.Create(ctx, tc.basket, tc.client, weekly())
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.want, ve.Kind)
		})
	}
	assert.Zero(t, e.count(t, "subscriptions"))
}

func TestCreateRollsBackWhenItemsFail(t *testing.T) {
	e := newEnv(t, "2025-07-23", func(deps *Deps) {
		deps.Subscriptions = failingSubscriptions{repository.NewSubscriptionRepo()}
	})

	_, err := e.subs.Create(context.Background(), tomatoBasket(), client(models.ClientPro), weekly())
	var pe *apperr.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, errInjected)

	assert.Zero(t, e.count(t, "subscriptions"))
	assert.Zero(t, e.count(t, "subscription_items"))
}

func TestCreateSyncsClientDirectory(t *testing.T) {
	e := newEnv(t, "2025-07-23", func(deps *Deps) {
		deps.Clients = repository.NewClientRepo(deps.DB)
	})
	e.create(t, weekly())
	e.subs.Wait()

	var name string
	require.NoError(t, e.db.QueryRow(`SELECT name FROM clients WHERE phone = $1`, "+221770000001").Scan(&name))
	assert.Equal(t, "Awa Diop", name)
}

func TestCreateIgnoresClientDirectoryFailure(t *testing.T) {
	e := newEnv(t, "2025-07-23", func(deps *Deps) {
		deps.Clients = failingDirectory{}
	})
	sub := e.create(t, weekly())
	e.subs.Wait()
	assert.Equal(t, models.SubscriptionActive, sub.Status)
}

func TestPauseAndResumeKeepAnchor(t *testing.T) {
	e := newEnv(t, "2025-07-23")
	ctx := context.Background()
	sub := e.create(t, weekly())

	paused, err := e.subs.Pause(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPaused, paused.Status)
	assert.Equal(t, "2025-07-30", paused.NextDeliveryDate.String())

	due, err := e.subs.ListDue(ctx, civilDate(t, "2025-08-30"))
	require.NoError(t, err)
	assert.Empty(t, due, "paused subscriptions are never due")

	e.clock.set("2025-07-27")
	resumed, err := e.subs.Resume(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, resumed.Status)
	assert.Equal(t, "2025-07-30", resumed.NextDeliveryDate.String())
}

func TestResumeRecomputesStaleDate(t *testing.T) {
	e := newEnv(t, "2025-07-23")
	ctx := context.Background()
	sub := e.create(t, weekly())
	_, err := e.subs.Pause(ctx, sub.ID)
	require.NoError(t, err)

	e.clock.set("2025-08-20")
	resumed, err := e.subs.Resume(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-08-27", resumed.NextDeliveryDate.String())

	stored, err := e.subs.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-08-27", stored.NextDeliveryDate.String())
}

func TestInvalidTransitions(t *testing.T) {
	e := newEnv(t, "2025-07-23")
	ctx := context.Background()
	sub := e.create(t, weekly())

	_, err := e.subs.Resume(ctx, sub.ID)
	assert.Equal(t, apperr.InvalidTransition, apperr.KindOf(err), "resume an active subscription")

	_, err = e.subs.Pause(ctx, sub.ID)
	require.NoError(t, err)
	_, err = e.subs.Pause(ctx, sub.ID)
	assert.Equal(t, apperr.InvalidTransition, apperr.KindOf(err), "pause a paused subscription")

	cancelled, err := e.subs.Cancel(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, cancelled.Status)
	assert.Nil(t, cancelled.NextDeliveryDate)

	for name, op := range map[string]func(context.Context, string) (*models.Subscription, error){
		"pause": e.subs.Pause, "resume": e.subs.Resume, "cancel": e.subs.Cancel,
	} {
		_, err := op(ctx, sub.ID)
		var se *apperr.StateError
		require.ErrorAs(t, err, &se, name)
		assert.Equal(t, apperr.InvalidTransition, se.Kind, name)
	}

	stored, err := e.subs.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, stored.Status)
	assert.Nil(t, stored.NextDeliveryDate)

	_, err = e.subs.Pause(ctx, "does-not-exist")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
