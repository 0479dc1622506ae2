package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"

	"github.com/facilohq/facilo/app/models"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(t *testing.T, secret, payload string) (body []byte, header string) {
	t.Helper()
	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Payload, signed.Header
}

func TestVerifyAndParseValidSignature(t *testing.T) {
	reconciler := NewReconciler(newTestService(newFakeRepo(), &fakeProvider{}), testWebhookSecret)

	payload := `{"id":"evt_1","object":"event","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","status":"active"}}}`
	body, header := signPayload(t, testWebhookSecret, payload)

	event, err := reconciler.VerifyAndParse(body, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "customer.subscription.updated", string(event.Type))
}

func TestVerifyAndParseForgedSignature(t *testing.T) {
	repo := newFakeRepo()
	repo.subs[1] = &models.Subscription{ID: 1, OrganizationID: 1, PlanID: 2, Status: models.SubscriptionStatusActive}
	before := *repo.subs[1]

	reconciler := NewReconciler(newTestService(repo, &fakeProvider{}), testWebhookSecret)

	payload := `{"id":"evt_1","object":"event","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","metadata":{"organization_id":"1"}}}}`
	body, header := signPayload(t, "whsec_wrong_secret", payload)

	_, err := reconciler.VerifyAndParse(body, header)
	require.Error(t, err)

	// No state change on a forged signature.
	assert.Equal(t, before, *repo.subs[1])
}

func TestVerifyAndParseMissingHeader(t *testing.T) {
	reconciler := NewReconciler(newTestService(newFakeRepo(), &fakeProvider{}), testWebhookSecret)

	_, err := reconciler.VerifyAndParse([]byte(`{}`), "")
	require.Error(t, err)
}

func TestVerifyAndParseUnconfigured(t *testing.T) {
	reconciler := NewReconciler(newTestService(newFakeRepo(), &fakeProvider{}), "")

	_, err := reconciler.VerifyAndParse([]byte(`{}`), "t=1,v1=abc")
	require.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestHandleEventUnknownTypeIsIgnored(t *testing.T) {
	repo := newFakeRepo()
	reconciler := NewReconciler(newTestService(repo, &fakeProvider{}), testWebhookSecret)

	payload := `{"id":"evt_2","object":"event","type":"invoice.finalized","data":{"object":{}}}`
	body, header := signPayload(t, testWebhookSecret, payload)

	event, err := reconciler.VerifyAndParse(body, header)
	require.NoError(t, err)
	require.NoError(t, reconciler.HandleEvent(context.Background(), event))
	assert.Empty(t, repo.subs)
}

func TestHandleEventSubscriptionUpdated(t *testing.T) {
	repo := newFakeRepo()
	reconciler := NewReconciler(newTestService(repo, &fakeProvider{}), testWebhookSecret)

	payload := `{
		"id": "evt_3",
		"object": "event",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_9",
			"customer": "cus_9",
			"status": "active",
			"cancel_at_period_end": true,
			"current_period_start": 1767225600,
			"current_period_end": 1769904000,
			"items": {"data": [{"price": {"id": "price_personal_123"}}]},
			"metadata": {"organization_id": "1", "plan_id": "2"}
		}}
	}`
	body, header := signPayload(t, testWebhookSecret, payload)

	event, err := reconciler.VerifyAndParse(body, header)
	require.NoError(t, err)
	require.NoError(t, reconciler.HandleEvent(context.Background(), event))

	sub := repo.subs[1]
	require.NotNil(t, sub)
	assert.Equal(t, uint(2), sub.PlanID)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.True(t, sub.CancelAtPeriodEnd)
	require.NotNil(t, sub.StripeSubscriptionID)
	assert.Equal(t, "sub_9", *sub.StripeSubscriptionID)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, int64(1769904000), sub.CurrentPeriodEnd.Unix())
}

func TestHandleEventCheckoutCompleted(t *testing.T) {
	repo := newFakeRepo()
	reconciler := NewReconciler(newTestService(repo, &fakeProvider{}), testWebhookSecret)

	payload := `{
		"id": "evt_4",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"mode": "subscription",
			"customer": "cus_9",
			"subscription": "sub_9",
			"metadata": {"organization_id": "1", "plan_id": "2"}
		}}
	}`
	body, header := signPayload(t, testWebhookSecret, payload)

	event, err := reconciler.VerifyAndParse(body, header)
	require.NoError(t, err)
	require.NoError(t, reconciler.HandleEvent(context.Background(), event))

	sub := repo.subs[1]
	require.NotNil(t, sub)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	require.NotNil(t, sub.StripeCustomerID)
	assert.Equal(t, "cus_9", *sub.StripeCustomerID)
}

func TestHandleEventMissingMetadata(t *testing.T) {
	repo := newFakeRepo()
	reconciler := NewReconciler(newTestService(repo, &fakeProvider{}), testWebhookSecret)

	// No organization metadata and no known identifiers: logged no-op.
	payload := `{"id":"evt_5","object":"event","type":"customer.subscription.deleted","data":{"object":{"id":"sub_unknown","status":"canceled"}}}`
	body, header := signPayload(t, testWebhookSecret, payload)

	event, err := reconciler.VerifyAndParse(body, header)
	require.NoError(t, err)
	require.NoError(t, reconciler.HandleEvent(context.Background(), event))
	assert.Empty(t, repo.subs)
}
