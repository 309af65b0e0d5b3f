package instance

import (
	"strings"
	"testing"
)

func TestIDPrefersEnvironment(t *testing.T) {
	t.Setenv(envInstanceID, "api-7")
	if got := ID("api"); got != "api-7" {
		t.Fatalf("expected env id, got %q", got)
	}
}

func TestIDFallsBackToService(t *testing.T) {
	t.Setenv(envInstanceID, "")
	if got := ID("cron-worker"); !strings.HasPrefix(got, "cron-worker") {
		t.Fatalf("expected service prefix, got %q", got)
	}
}
