package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyonpay/amlscreen/internal/config"
)

func TestChecker_DetectsRowDropBetweenChecks(t *testing.T) {
	var received []Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var al Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&al))
		received = append(received, al)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.MonitoringConfig{
		WebhookURL:       srv.URL,
		StaleHours:       48,
		RowDropThreshold: 0.5,
	}

	now := time.Now().UTC()
	idx := &fakeIndex{
		built:      true,
		generation: 1,
		counts:     map[string]int{"OFAC_SDN": 12000},
	}
	log := fakeLog{"ofac_sdn": now}
	collector := NewCollector(idx, log, []SourceInfo{{Name: "ofac_sdn", ListName: "OFAC_SDN"}})

	checker := NewChecker(collector, NewAlerter(cfg), cfg)
	zl := zap.NewNop()

	// First check establishes the baseline; nothing alerts.
	checker.check(context.Background(), zl)
	assert.Empty(t, received)

	// The list shrinks below the threshold before the second check.
	idx.counts = map[string]int{"OFAC_SDN": 100}
	checker.check(context.Background(), zl)

	require.Len(t, received, 1)
	assert.Equal(t, AlertRowDrop, received[0].Type)
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1}
	collector := NewCollector(&fakeIndex{}, fakeLog{}, nil)
	checker := NewChecker(collector, NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	var done atomic.Bool
	go func() {
		checker.Run(ctx)
		done.Store(true)
	}()

	cancel()
	assert.Eventually(t, done.Load, time.Second, 10*time.Millisecond)
}
