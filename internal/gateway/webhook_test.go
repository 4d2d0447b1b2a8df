package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
)

func TestWebhookGatewaySendSuccess(t *testing.T) {
	t.Parallel()

	var gotBody webhookRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("X-Request-ID", "gw-msg-1")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	g, err := NewWebhookGateway(server.URL, 0)
	if err != nil {
		t.Fatalf("NewWebhookGateway() error = %v", err)
	}

	departure := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	resp, err := g.Send(context.Background(), Reminder{
		Recipient:     "a@example.com",
		FlightID:      "f1",
		DepartureTime: departure,
	})
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("StatusCode = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	if resp.MessageID != "gw-msg-1" {
		t.Fatalf("MessageID = %q, want %q", resp.MessageID, "gw-msg-1")
	}

	if gotBody.To != "a@example.com" {
		t.Fatalf("request.to = %q, want a@example.com", gotBody.To)
	}
	if gotBody.FlightID != "f1" {
		t.Fatalf("request.flightId = %q, want f1", gotBody.FlightID)
	}
	if gotBody.DepartureTime != "2024-01-01T12:00:00Z" {
		t.Fatalf("request.departureTime = %q, want 2024-01-01T12:00:00Z", gotBody.DepartureTime)
	}
	if gotBody.Kind != "departure_reminder" {
		t.Fatalf("request.kind = %q, want departure_reminder", gotBody.Kind)
	}
}

func TestWebhookGatewaySendStatusClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantTransient bool
	}{
		{name: "too many requests is transient", statusCode: http.StatusTooManyRequests, wantTransient: true},
		{name: "bad request is permanent", statusCode: http.StatusBadRequest, wantTransient: false},
		{name: "internal server error is transient", statusCode: http.StatusInternalServerError, wantTransient: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte("gateway failed"))
			}))
			defer server.Close()

			g, err := NewWebhookGateway(server.URL, 0)
			if err != nil {
				t.Fatalf("NewWebhookGateway() error = %v", err)
			}

			_, err = g.Send(context.Background(), Reminder{
				Recipient:     "a@example.com",
				FlightID:      "f1",
				DepartureTime: time.Now().UTC(),
			})
			if err == nil {
				t.Fatal("expected error")
			}

			if got := IsTransient(err); got != tc.wantTransient {
				t.Fatalf("IsTransient() = %v, want %v", got, tc.wantTransient)
			}

			var gatewayErr *GatewayError
			if !errors.As(err, &gatewayErr) {
				t.Fatalf("expected GatewayError, got %T", err)
			}
			if gatewayErr.StatusCode != tc.statusCode {
				t.Fatalf("GatewayError.StatusCode = %d, want %d", gatewayErr.StatusCode, tc.statusCode)
			}
		})
	}
}

func TestWebhookGatewaySendTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := resty.New()
	client.SetTimeout(50 * time.Millisecond)

	g, err := NewWebhookGatewayWithClient(server.URL, client)
	if err != nil {
		t.Fatalf("NewWebhookGatewayWithClient() error = %v", err)
	}

	_, err = g.Send(context.Background(), Reminder{
		Recipient:     "a@example.com",
		FlightID:      "f1",
		DepartureTime: time.Now().UTC(),
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTransient(err) {
		t.Fatalf("IsTransient() = false for timeout, want true: %v", err)
	}
}

func TestNewWebhookGatewayValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewWebhookGateway("", 0); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	if _, err := NewWebhookGateway("not a url", 0); err == nil {
		t.Fatal("expected error for malformed endpoint")
	}
	if _, err := NewWebhookGatewayWithClient("https://hooks.example.com/x", nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}
