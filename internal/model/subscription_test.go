package model

import "testing"

func TestSubscriptionStatusFromStripe(t *testing.T) {
	cases := []struct {
		stripe string
		want   SubscriptionStatus
	}{
		{"active", SubscriptionStatusActive},
		{"canceled", SubscriptionStatusCanceled},
		{"incomplete", SubscriptionStatusIncomplete},
		{"incomplete_expired", SubscriptionStatusIncompleteExpired},
		{"past_due", SubscriptionStatusPastDue},
		{"trialing", SubscriptionStatusTrialing},
		{"unpaid", SubscriptionStatusUnpaid},
		{"paused", SubscriptionStatusPaused},
	}
	for _, c := range cases {
		if got := SubscriptionStatusFromStripe(c.stripe); got != c.want {
			t.Fatalf("SubscriptionStatusFromStripe(%q) = %q, want %q", c.stripe, got, c.want)
		}
	}
}

func TestSubscriptionStatusFromStripeUnknownFallsBack(t *testing.T) {
	if got := SubscriptionStatusFromStripe("some_future_status"); got != SubscriptionStatusIncomplete {
		t.Fatalf("unknown status must map to INCOMPLETE, got %q", got)
	}
	if got := SubscriptionStatusFromStripe(""); got != SubscriptionStatusIncomplete {
		t.Fatalf("empty status must map to INCOMPLETE, got %q", got)
	}
}
