package slack

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
)

func TestForwardsCriticalAlerts(t *testing.T) {
	var received []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		received = append(received, payload["text"])
	}))
	defer server.Close()

	notifier := NewNotifier(server.URL)
	require.NoError(t, notifier.EmitAlert(domain.SeverityCritical, "validator 7 slashed"))
	require.Equal(t, []string{"validator 7 slashed"}, received)
}

func TestFiltersBelowMinSeverity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for info alerts")
	}))
	defer server.Close()

	notifier := NewNotifier(server.URL)
	require.NoError(t, notifier.EmitAlert(domain.SeverityInfo, "routine report line"))
	require.NoError(t, notifier.EmitAlert(domain.SeverityWarning, "unwatched miss"))
}

func TestNon2xxIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewNotifier(server.URL)
	require.Error(t, notifier.EmitAlert(domain.SeverityCritical, "boom"))
}
