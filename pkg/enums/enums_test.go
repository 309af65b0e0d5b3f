package enums

import "testing"

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("admin")
	if err != nil || role != UserRoleAdmin {
		t.Fatalf("expected admin, got %q err=%v", role, err)
	}
	if _, err := ParseUserRole("owner"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestParseUserStatus(t *testing.T) {
	for _, raw := range []string{"pending", "approved", "rejected"} {
		if _, err := ParseUserStatus(raw); err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
	}
	if _, err := ParseUserStatus("banned"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	cases := map[OrderStatus]bool{
		OrderStatusPending:    false,
		OrderStatusProcessing: false,
		OrderStatusCompleted:  true,
		OrderStatusFailed:     true,
		OrderStatusCancelled:  true,
	}
	for status, want := range cases {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("%s: expected terminal=%v got %v", status, want, got)
		}
	}
}

func TestPaymentStatusMapsToOrderStatus(t *testing.T) {
	if PaymentStatusSucceeded.OrderStatus() != OrderStatusCompleted {
		t.Fatalf("succeeded payment should complete the order")
	}
	if PaymentStatusFailed.OrderStatus() != OrderStatusFailed {
		t.Fatalf("failed payment should fail the order")
	}
}

func TestOutboxTypesValidate(t *testing.T) {
	if !EventOrderExpired.IsValid() || !AggregateOrder.IsValid() {
		t.Fatal("expected known outbox types to be valid")
	}
	if _, err := ParseOutboxEventType("store_created"); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
