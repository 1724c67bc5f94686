package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/trafficpulse/internal/domain"
)

// scriptedRandom returns fixed rolls and always picks index 0.
type scriptedRandom struct {
	rolls []float64
	i     int
}

func (r *scriptedRandom) Float64() float64 {
	v := r.rolls[r.i%len(r.rolls)]
	r.i++
	return v
}

func (r *scriptedRandom) IntN(int) int { return 0 }

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 14, 32, 0, 0, time.UTC)
}

func newTestAlertService(t *testing.T, rolls ...float64) *AlertService {
	t.Helper()
	catalog, err := DefaultAlertCatalog()
	require.NoError(t, err)

	svc := NewAlertService(
		AlertConfig{Probability: DefaultAlertProbability},
		catalog,
		WithRandom(&scriptedRandom{rolls: rolls}),
		WithAlertClock(fixedClock),
		WithAlertLogger(discardLogger()),
	)
	counter := 0
	svc.newID = func() string {
		counter++
		return fmt.Sprintf("alert-%d", counter)
	}
	return svc
}

func TestDefaultAlertCatalog(t *testing.T) {
	catalog, err := DefaultAlertCatalog()
	require.NoError(t, err)

	seen := map[domain.AlertCategory]bool{}
	for _, e := range catalog.Entries {
		seen[e.Category] = true
	}
	for _, c := range domain.AlertCategories() {
		assert.True(t, seen[c], "catalog missing %s", c)
	}
	assert.NotEmpty(t, catalog.Locations)
}

func TestParseAlertCatalog_Invalid(t *testing.T) {
	_, err := ParseAlertCatalog([]byte("locations: [a]\nentries: []\n"))
	assert.Error(t, err)

	_, err = ParseAlertCatalog([]byte("locations: [a]\nentries:\n  - category: weather\n    titles: [x]\n    descriptions: [y]\n"))
	assert.Error(t, err)

	_, err = ParseAlertCatalog([]byte("entries: ["))
	assert.Error(t, err)
}

func TestLoadAlertCatalog_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
locations: ["Av. Angamos"]
entries:
  - category: trafficLight
    titles: ["Semáforo apagado"]
    descriptions: ["Sin energía"]
`), 0o600))

	catalog, err := LoadAlertCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Av. Angamos"}, catalog.Locations)

	_, err = LoadAlertCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTick_RespectsProbability(t *testing.T) {
	svc := newTestAlertService(t, 0.15, 0.99, 0.5)

	for i := 0; i < 3; i++ {
		_, ok := svc.Tick()
		assert.False(t, ok)
	}
	assert.Empty(t, svc.List())

	raised := newTestAlertService(t, 0.149)
	alert, ok := raised.Tick()
	require.True(t, ok)
	assert.Equal(t, "alert-1", alert.ID)
	assert.Equal(t, domain.AlertActive, alert.Status)
	assert.Equal(t, "14:32", alert.TimestampLabel)
	assert.True(t, alert.Category.Valid())
	assert.True(t, alert.Severity.Valid())
	assert.NotEmpty(t, alert.Title)
	assert.NotEmpty(t, alert.Location)
}

func TestTick_IncidentCarriesSubtype(t *testing.T) {
	svc := newTestAlertService(t, 0)

	alert, ok := svc.Tick()
	require.True(t, ok)
	// index 0 of the embedded catalog is the incident entry
	assert.Equal(t, domain.AlertIncident, alert.Category)
	assert.Equal(t, "collision", alert.IncidentSubtype)
}

func TestAlerts_BoundedToMostRecent(t *testing.T) {
	svc := newTestAlertService(t, 0)

	for i := 0; i < 12; i++ {
		_, ok := svc.Tick()
		require.True(t, ok)
		assert.LessOrEqual(t, len(svc.List()), DefaultMaxAlerts)
	}

	list := svc.List()
	require.Len(t, list, DefaultMaxAlerts)
	assert.Equal(t, "alert-12", list[0].ID)
	assert.Equal(t, "alert-8", list[4].ID)
}

func TestResolve_RemovesExactlyOne(t *testing.T) {
	svc := newTestAlertService(t, 0)
	for i := 0; i < 4; i++ {
		svc.Tick()
	}

	assert.True(t, svc.Resolve("alert-2"))

	var ids []string
	for _, a := range svc.List() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"alert-4", "alert-3", "alert-1"}, ids)

	assert.False(t, svc.Resolve("alert-2"))
	assert.False(t, svc.Resolve("unknown"))
	assert.Len(t, svc.List(), 3)
}

func TestPush_FillsDefaultsAndBounds(t *testing.T) {
	svc := newTestAlertService(t, 1)

	pushed := svc.Push(domain.Alert{Category: domain.AlertCongestionCritical, Severity: domain.SeverityHigh, Title: "Congestión"})
	assert.Equal(t, "alert-1", pushed.ID)
	assert.Equal(t, "14:32", pushed.TimestampLabel)
	assert.Equal(t, domain.AlertActive, pushed.Status)

	for i := 0; i < 10; i++ {
		svc.Push(domain.Alert{Category: domain.AlertIncident})
	}
	assert.Len(t, svc.List(), DefaultMaxAlerts)
}

func TestPush_SameIDReplaces(t *testing.T) {
	svc := newTestAlertService(t, 1)

	svc.Push(domain.Alert{ID: "ext-1", Title: "old"})
	svc.Push(domain.Alert{ID: "ext-2", Title: "other"})
	svc.Push(domain.Alert{ID: "ext-1", Title: "new"})

	list := svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Title)
	assert.Equal(t, "ext-2", list[1].ID)
}

func TestList_ReturnsCopy(t *testing.T) {
	svc := newTestAlertService(t, 0)
	svc.Tick()

	list := svc.List()
	list[0].Title = "mutated"

	assert.NotEqual(t, "mutated", svc.List()[0].Title)
}

func TestRun_StopsWithContext(t *testing.T) {
	catalog, err := DefaultAlertCatalog()
	require.NoError(t, err)
	svc := NewAlertService(
		AlertConfig{Tick: time.Millisecond, Probability: 1},
		catalog,
		WithAlertLogger(discardLogger()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(svc.List()) == DefaultMaxAlerts }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
