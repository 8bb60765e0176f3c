package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BumpBTC/bumpcore/internal/models"
)

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Errorf("Expected path /simple/price, got %s", r.URL.Path)
		}
		if ids := r.URL.Query().Get("ids"); ids != "bitcoin,litecoin" {
			t.Errorf("Expected ids=bitcoin,litecoin, got %s", ids)
		}
		if vs := r.URL.Query().Get("vs_currencies"); vs != "usd" {
			t.Errorf("Expected vs_currencies=usd, got %s", vs)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"usd":43250.75},"litecoin":{"usd":72.4}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zerolog.Nop())
	table, err := client.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 43250.75, table["bitcoin"].USD)
	assert.Equal(t, 72.4, table["litecoin"].USD)
}

func TestFetchRejectsIncompleteTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"usd":43250.75}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zerolog.Nop())
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "litecoin")
}

func TestFetchRejectsZeroQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"usd":0},"litecoin":{"usd":72.4}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zerolog.Nop())
	_, err := client.Fetch(context.Background())
	assert.Error(t, err)
}

func TestFetchSurfacesProviderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zerolog.Nop())
	_, err := client.Fetch(context.Background())
	assert.Error(t, err)
}

func TestPollerDeliversUpdatesAndStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"usd":43250.75},"litecoin":{"usd":72.4}}`))
	}))
	defer server.Close()

	var mu sync.Mutex
	var got models.ExchangeRateTable
	updates := make(chan struct{}, 16)

	client := NewClient(server.URL, 5*time.Second, zerolog.Nop())
	poller := NewPoller(client, 50*time.Millisecond, func(table models.ExchangeRateTable) {
		mu.Lock()
		got = table
		mu.Unlock()
		select {
		case updates <- struct{}{}:
		default:
		}
	}, zerolog.Nop())

	poller.Start(context.Background())
	defer poller.Stop()

	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatal("poller never delivered an update")
	}

	mu.Lock()
	assert.Equal(t, 43250.75, got["bitcoin"].USD)
	mu.Unlock()

	poller.Stop()
}

func TestPollerSurvivesFetchFailures(t *testing.T) {
	var mu sync.Mutex
	fail := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		shouldFail := fail
		mu.Unlock()
		if shouldFail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"usd":50000},"litecoin":{"usd":80}}`))
	}))
	defer server.Close()

	updates := make(chan models.ExchangeRateTable, 16)
	client := NewClient(server.URL, 5*time.Second, zerolog.Nop())
	poller := NewPoller(client, 50*time.Millisecond, func(table models.ExchangeRateTable) {
		select {
		case updates <- table:
		default:
		}
	}, zerolog.Nop())

	poller.Start(context.Background())
	defer poller.Stop()

	// Let the failing fetch happen, then recover the provider.
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	fail = false
	mu.Unlock()

	select {
	case table := <-updates:
		assert.Equal(t, float64(50000), table["bitcoin"].USD)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not recover after provider came back")
	}
}
