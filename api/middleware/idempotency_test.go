package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgAuth "github.com/angelmondragon/arepera-backend/pkg/auth"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func checkoutRequest(caller pkgAuth.Caller, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(WithCaller(req.Context(), caller))
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"checkout", http.MethodPost, "/api/v1/checkout", criticalIdempotencyTTL, true},
		{"complete order", http.MethodPost, "/api/v1/orders/123/complete", criticalIdempotencyTTL, true},
		{"register", http.MethodPost, "/api/v1/auth/register", defaultIdempotencyTTL, true},
		{"add to cart", http.MethodPost, "/api/v1/cart/items", defaultIdempotencyTTL, true},
		{"admin coupon", http.MethodPost, "/api/admin/v1/coupons", defaultIdempotencyTTL, true},
		{"login", http.MethodPost, "/api/v1/auth/login", 0, false},
		{"cart read", http.MethodGet, "/api/v1/cart", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, checkoutRequest(approvedCaller(), "", `{"totalAmount":100}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"status":"succeeded"}}`))
	})

	caller := approvedCaller()
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, checkoutRequest(caller, "abc", `{"totalAmount":100}`))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, checkoutRequest(caller, "abc", `{"totalAmount":100}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"data":{"status":"succeeded"}}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyKeysAreScopedPerCaller(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest(approvedCaller(), "shared", `{}`))
	mw(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest(approvedCaller(), "shared", `{}`))
	if calls != 2 {
		t.Fatalf("expected each caller to run the handler, got %d calls", calls)
	}
}

func TestIdempotencyMiddlewareSkipsServerErrors(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	caller := approvedCaller()
	mw(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest(caller, "retry", `{}`))
	mw(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest(caller, "retry", `{}`))
	if calls != 2 {
		t.Fatalf("expected retry after server error, got %d calls", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected nothing stored, got %d records", len(store.data))
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	caller := approvedCaller()
	mw(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest(caller, "xyz", `{"totalAmount":100}`))

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, checkoutRequest(caller, "xyz", `{"totalAmount":200}`))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func approvedCaller() pkgAuth.Caller {
	return pkgAuth.Caller{UserID: uuid.New(), Role: enums.UserRoleUser, Status: enums.UserStatusApproved}
}
