package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantitva/market-intel/config"
)

func testRelay() *Relay {
	// Private hosts allowed so the relay can reach httptest loopback servers.
	return NewRelay(config.RelayConfig{
		TimeoutSeconds:    5,
		RequestsPerSecond: 100,
		Burst:             100,
		AllowPrivateHosts: true,
	})
}

func testHook(url, hookType string) *Config {
	return &Config{
		ID:   "hook-1",
		Name: "Test Handler",
		URL:  url,
		Type: hookType,
	}
}

func TestRelaySendObjectResponse(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(Report{
			WebReport:   "<h1>Market Overview</h1>",
			EmailReport: "summary",
		})
	}))
	defer server.Close()

	report, err := testRelay().Send(context.Background(), testHook(server.URL, TypeRecurring), &Request{
		MarketCategory: "SaaS Analytics",
		SubNiche:       "Churn prediction",
		Email:          "owner@example.com",
		Frequency:      "weekly",
	})
	require.NoError(t, err)
	assert.Equal(t, "<h1>Market Overview</h1>", report.WebReport)
	assert.Equal(t, "summary", report.EmailReport)

	// Relay stamps its own metadata onto the payload.
	assert.Equal(t, "Test Handler", received["webhookName"])
	assert.Equal(t, TypeRecurring, received["researchType"])
	assert.Equal(t, true, received["isInitialRun"])
	assert.NotEmpty(t, received["submittedAt"])
	assert.Equal(t, "SaaS Analytics", received["marketCategory"])
}

func TestRelaySendOnDemandOmitsInitialRun(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(Report{WebReport: "report"})
	}))
	defer server.Close()

	_, err := testRelay().Send(context.Background(), testHook(server.URL, TypeOnDemand), &Request{
		MarketCategory: "Fintech",
		Email:          "owner@example.com",
	})
	require.NoError(t, err)

	_, present := received["isInitialRun"]
	assert.False(t, present)
	assert.Equal(t, TypeOnDemand, received["researchType"])
}

func TestRelaySendArrayResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Report{{WebReport: "first"}, {WebReport: "second"}})
	}))
	defer server.Close()

	report, err := testRelay().Send(context.Background(), testHook(server.URL, TypeOnDemand), &Request{})
	require.NoError(t, err)
	assert.Equal(t, "first", report.WebReport)
}

func TestRelaySendRawTextFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<h1>Plain report</h1>"))
	}))
	defer server.Close()

	report, err := testRelay().Send(context.Background(), testHook(server.URL, TypeOnDemand), &Request{})
	require.NoError(t, err)
	assert.Equal(t, "<h1>Plain report</h1>", report.WebReport)
	assert.Empty(t, report.EmailReport)
}

func TestRelaySendStatusFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow not active", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testRelay().Send(context.Background(), testHook(server.URL, TypeOnDemand), &Request{})
	require.Error(t, err)

	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, FailureStatus, relayErr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, relayErr.StatusCode)
}

func TestRelaySendNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // closed before the call

	_, err := testRelay().Send(context.Background(), testHook(server.URL, TypeOnDemand), &Request{})
	require.Error(t, err)

	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, FailureNetwork, relayErr.Kind)
}

func TestRelaySendEmptyBodyUnparsable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := testRelay().Send(context.Background(), testHook(server.URL, TypeOnDemand), &Request{})
	require.Error(t, err)

	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, FailureUnparsable, relayErr.Kind)
}

func TestRelayBlocksPrivateHostsByDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Report{WebReport: "report"})
	}))
	defer server.Close()

	relay := NewRelay(config.RelayConfig{
		TimeoutSeconds:    5,
		RequestsPerSecond: 100,
		Burst:             100,
	})
	_, err := relay.Send(context.Background(), testHook(server.URL, TypeOnDemand), &Request{})
	require.Error(t, err)

	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, FailureNetwork, relayErr.Kind)
}
