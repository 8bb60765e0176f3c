package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BumpBTC/bumpcore/internal/api"
	"github.com/BumpBTC/bumpcore/internal/keystore"
	"github.com/BumpBTC/bumpcore/internal/models"
)

// A 401 from any authenticated call must cascade: token cleared from the
// keystore, session expiry surfaced to the caller, and Restore returning
// nil afterwards.
func TestSessionExpiryCascade(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store, err := keystore.Open(filepath.Join(t.TempDir(), "keystore.db"))
	require.NoError(t, err)
	require.NoError(t, store.Put(models.Session{Token: "tok-stale", Username: "satoshi", CreatedAt: time.Now()}))

	client := api.NewClient(server.URL, 5*time.Second, store, zerolog.Nop())
	manager := NewManager(client, store, zerolog.Nop())

	restored := manager.Restore()
	require.NotNil(t, restored)
	assert.Equal(t, "tok-stale", restored.Token)

	_, err = client.GetWalletInfo(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsSessionExpired(err))

	assert.Nil(t, manager.Restore(), "expired session must not be restorable")
	_, ok := store.Token()
	assert.False(t, ok, "no token may remain in storage after a 401")
}
