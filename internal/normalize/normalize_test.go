package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/trafficpulse/internal/domain"
)

func mustObject(t *testing.T, body string) Record {
	t.Helper()
	r, err := DecodeObject([]byte(body))
	require.NoError(t, err)
	return r
}

func mustArray(t *testing.T, body string) []Record {
	t.Helper()
	items, err := DecodeArray([]byte(body))
	require.NoError(t, err)
	return items
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := DecodeObject([]byte(`{"broken":`))
	assert.Error(t, err)

	_, err = DecodeArray([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecode_TrailingData(t *testing.T) {
	_, err := DecodeObject([]byte(`{"intervals": ["06:00 - 06:15"]} trailing`))
	assert.Error(t, err)

	_, err = DecodeArray([]byte(`[{"interval": "a"}] [{"interval": "b"}]`))
	assert.Error(t, err)

	_, err = DecodeObject([]byte(`{"a": 1}}`))
	assert.Error(t, err)

	r, err := DecodeObject([]byte("{\"a\": 1}\n  "))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Int("a"))
}

func TestDecode_WrongShape(t *testing.T) {
	assert.Empty(t, mustObject(t, `[1,2,3]`))
	assert.Nil(t, mustArray(t, `{"a":1}`))
}

func TestRecord_Float(t *testing.T) {
	r := mustObject(t, `{
		"num": 12.5,
		"str": "7.25",
		"nan": "NaN",
		"inf": "Infinity",
		"bad": "abc",
		"null": null,
		"bool": true,
		"obj": {"x": 1}
	}`)

	assert.Equal(t, 12.5, r.Float("num"))
	assert.Equal(t, 7.25, r.Float("str"))
	assert.Zero(t, r.Float("nan"))
	assert.Zero(t, r.Float("inf"))
	assert.Zero(t, r.Float("bad"))
	assert.Zero(t, r.Float("null"))
	assert.Zero(t, r.Float("bool"))
	assert.Zero(t, r.Float("obj"))
	assert.Zero(t, r.Float("missing"))
}

func TestRecord_CountsAndPercent(t *testing.T) {
	r := mustObject(t, `{"neg": -4, "frac": 2.6, "pct_high": 130, "pct_neg": -1, "pct": 45.5}`)

	assert.Zero(t, r.Count("neg"))
	assert.Equal(t, 3, r.Count("frac"))
	assert.Equal(t, -4, r.Int("neg"))
	assert.Equal(t, 100.0, r.Percent("pct_high"))
	assert.Zero(t, r.Percent("pct_neg"))
	assert.Equal(t, 45.5, r.Percent("pct"))
}

func TestRecord_IntSaturates(t *testing.T) {
	r := mustObject(t, `{"huge": 1e300, "tiny": -1e300}`)

	assert.Equal(t, math.MaxInt, r.Int("huge"))
	assert.Equal(t, math.MinInt, r.Int("tiny"))
	assert.Equal(t, math.MaxInt, r.Count("huge"))
	assert.Zero(t, r.Count("tiny"))

	got := SegmentVehicles(mustArray(t, `[{"segment_id": "A", "autos": 1e300}]`))
	require.Len(t, got, 1)
	assert.Equal(t, math.MaxInt, got[0].Autos)
}

func TestRecord_String(t *testing.T) {
	r := mustObject(t, `{"s": "06:00 - 06:15", "n": 42, "b": false}`)

	assert.Equal(t, "06:00 - 06:15", r.String("s"))
	assert.Equal(t, "42", r.String("n"))
	assert.Empty(t, r.String("b"))
	assert.Empty(t, r.String("missing"))
}

func TestRecord_Strings(t *testing.T) {
	r := mustObject(t, `{"intervals": ["a", 3, null, "b"], "notlist": "x"}`)

	assert.Equal(t, []string{"a", "b"}, r.Strings("intervals"))
	assert.Equal(t, []string{}, r.Strings("notlist"))
	assert.Equal(t, []string{}, r.Strings("missing"))
}

func TestSegmentVehicle_MalformedFieldsDefaultToZero(t *testing.T) {
	items := mustArray(t, `[{"segment_id": "A", "ucp": "NaN"}]`)
	require.Len(t, items, 1)

	got := SegmentVehicles(items)

	assert.Equal(t, []domain.SegmentVehicleRecord{{SegmentID: "A"}}, got)
}

func TestSegmentVehicle_OneBadFieldKeepsOthers(t *testing.T) {
	items := mustArray(t, `[
		{"segment_id": "1 - Av. Pachacutec VTM -> SJM", "segment_name": "1 - Av. Pachacutec VTM -> SJM",
		 "autos": 40, "buses": "oops", "motos": "12", "camionetas": null,
		 "total_vehicles": 57, "ucp": 88.5, "ocupacion": 73.2},
		"garbage"
	]`)

	got := SegmentVehicles(items)
	require.Len(t, got, 2)

	assert.Equal(t, domain.SegmentVehicleRecord{
		SegmentID:           "1 - Av. Pachacutec VTM -> SJM",
		SegmentName:         "1 - Av. Pachacutec VTM -> SJM",
		Autos:               40,
		Motos:               12,
		TotalVehicles:       57,
		UCP:                 88.5,
		OccupancyPercentage: 73.2,
	}, got[0])
	assert.Equal(t, domain.SegmentVehicleRecord{}, got[1])
}

func TestKPIs(t *testing.T) {
	got := KPIs(mustObject(t, `{
		"overall_occupancy_percentage": 82.5,
		"congestion_percentage": 70,
		"red_segments_count": 4,
		"total_segments_count": "6"
	}`))

	assert.Equal(t, domain.KPISnapshot{
		OverallOccupancyPercentage: 82.5,
		CongestionPercentage:       70,
		RedSegmentsCount:           4,
		TotalSegmentsCount:         6,
	}, got)
}

func TestInterval(t *testing.T) {
	got := Interval(mustObject(t, `{"current_interval": "07:00 - 07:15", "simulation_step": 4, "total_intervals": 24}`))
	assert.Equal(t, domain.IntervalState{CurrentInterval: "07:00 - 07:15", SimulationStep: 4, TotalIntervals: 24}, got)

	clamped := Interval(mustObject(t, `{"current_interval": "x", "simulation_step": 30, "total_intervals": 24}`))
	assert.Equal(t, 23, clamped.SimulationStep)

	empty := Interval(mustObject(t, `{}`))
	assert.Equal(t, domain.IntervalState{}, empty)
}

func TestUCPPoints_PreservesOrder(t *testing.T) {
	got := UCPPoints(mustArray(t, `[
		{"interval": "08:00 - 08:15", "total_ucp": 750.4},
		{"interval": "06:00 - 06:15", "total_ucp": null},
		{"interval": "07:00 - 07:15", "total_ucp": "bad"}
	]`))

	assert.Equal(t, []domain.UCPPoint{
		{Interval: "08:00 - 08:15", TotalUCP: 750.4},
		{Interval: "06:00 - 06:15"},
		{Interval: "07:00 - 07:15"},
	}, got)
}

func TestTrafficSegments(t *testing.T) {
	got := TrafficSegments(mustArray(t, `[{
		"segment_name": "2 - Av. Pachacutec SJM -> VTM",
		"direction": "SJM -> VTM",
		"vehicle_counts": {"Auto": 10, "Mototaxi": "3", "Omnibus": -2},
		"ucp_density": 31.5,
		"edges": [1, 2],
		"occupancy_percentage": 64,
		"total_vehicles": 13
	}]`))

	require.Len(t, got, 1)
	assert.Equal(t, map[string]int{"Auto": 10, "Mototaxi": 3, "Omnibus": 0}, got[0].VehicleCounts)
	assert.Equal(t, 31.5, got[0].UCPDensity)
	assert.Equal(t, 13, got[0].TotalVehicles)
}

func TestDebug(t *testing.T) {
	got := Debug(mustObject(t, `{
		"total_segments_in_polygon": 120,
		"total_route_sections": 6,
		"current_simulation_step": 2,
		"current_interval": "06:30 - 06:45",
		"sections_info": [{"name": "1 - Av. Pachacutec VTM -> SJM", "ucp": 12.5, "vehicles": 9}, 7]
	}`))

	assert.Equal(t, 120, got.TotalSegmentsInPolygon)
	assert.Equal(t, "06:30 - 06:45", got.CurrentInterval)
	require.Len(t, got.SectionsInfo, 2)
	assert.Equal(t, domain.SectionInfo{Name: "1 - Av. Pachacutec VTM -> SJM", UCP: 12.5, Vehicles: 9}, got.SectionsInfo[0])
	assert.Equal(t, domain.SectionInfo{}, got.SectionsInfo[1])
}

func TestAlert(t *testing.T) {
	alert, ok := Alert(mustObject(t, `{
		"id": "a-1", "category": "trafficLight", "severity": "urgent",
		"title": "Semáforo apagado", "location": "Av. Larco", "status": "resolved"
	}`))
	require.True(t, ok)
	assert.Equal(t, "a-1", alert.ID)
	assert.Equal(t, domain.AlertTrafficLight, alert.Category)
	assert.Equal(t, domain.SeverityLow, alert.Severity)
	assert.Equal(t, domain.AlertActive, alert.Status)

	_, ok = Alert(mustObject(t, `{"category": "weather"}`))
	assert.False(t, ok)
}
