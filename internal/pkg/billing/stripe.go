package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"

	"github.com/facilohq/facilo/internal/pkg/env"
)

// StripeClient wraps the Stripe SDK for customer and checkout session
// creation. An empty secret key means the provider is not configured and
// payable checkouts must fail fast instead of degrading silently.
type StripeClient struct {
	secretKey  string
	successURL string
	cancelURL  string
}

// NewStripeClientFromEnv reads STRIPE_SECRET_KEY and the checkout redirect
// URLs from the environment and sets the SDK's global key.
func NewStripeClientFromEnv() *StripeClient {
	key := strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))
	if key != "" {
		stripe.Key = key
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:3000"), "/")
	return &StripeClient{
		secretKey:  key,
		successURL: base + "/account/billing?checkout=success&session_id={CHECKOUT_SESSION_ID}",
		cancelURL:  base + "/account/billing?checkout=canceled",
	}
}

// Configured reports whether the secret key is present.
func (c *StripeClient) Configured() bool {
	return c != nil && c.secretKey != ""
}

// EnsureCustomer returns the existing customer ID when present, otherwise
// creates a customer tagged with the organization and user identifiers.
func (c *StripeClient) EnsureCustomer(ctx context.Context, in CustomerInput) (string, error) {
	if !c.Configured() {
		return "", ErrProviderUnavailable
	}
	if in.ExistingID != "" {
		return in.ExistingID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(in.UserEmail),
		Name:  stripe.String(in.OrgName),
	}
	params.Context = ctx
	params.AddMetadata("organization_id", strconv.FormatUint(uint64(in.OrganizationID), 10))
	params.AddMetadata("user_id", strconv.FormatUint(uint64(in.UserID), 10))
	params.AddMetadata("user_name", in.UserName)

	cus, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}
	return cus.ID, nil
}

// CreateCheckoutSession opens a subscription-mode checkout for one price.
// The organization and plan identifiers ride along in both the session and
// the subscription metadata so every later webhook can be resolved without
// a customer lookup.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (string, error) {
	if !c.Configured() {
		return "", ErrProviderUnavailable
	}

	meta := map[string]string{
		"organization_id": strconv.FormatUint(uint64(in.OrganizationID), 10),
		"plan_id":         strconv.FormatUint(uint64(in.PlanID), 10),
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(in.CustomerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.successURL),
		CancelURL:  stripe.String(c.cancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: meta,
		},
	}
	params.Context = ctx
	for k, v := range meta {
		params.AddMetadata(k, v)
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return sess.URL, nil
}
