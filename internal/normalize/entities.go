package normalize

import (
	"github.com/smartcity/trafficpulse/internal/domain"
)

// KPIs maps /api/kpis. AverageTravelTime is left for the caller to derive.
func KPIs(r Record) domain.KPISnapshot {
	return domain.KPISnapshot{
		OverallOccupancyPercentage: r.Percent("overall_occupancy_percentage"),
		CongestionPercentage:       r.Percent("congestion_percentage"),
		RedSegmentsCount:           r.Count("red_segments_count"),
		TotalSegmentsCount:         r.Count("total_segments_count"),
	}
}

// Interval maps /api/current_interval and keeps simulation_step inside the interval range.
func Interval(r Record) domain.IntervalState {
	s := domain.IntervalState{
		CurrentInterval: r.String("current_interval"),
		SimulationStep:  r.Count("simulation_step"),
		TotalIntervals:  r.Count("total_intervals"),
	}
	if s.TotalIntervals > 0 && s.SimulationStep >= s.TotalIntervals {
		s.SimulationStep = s.TotalIntervals - 1
	}
	return s
}

// Intervals maps /api/intervals, preserving backend order.
func Intervals(r Record) []string {
	return r.Strings("intervals")
}

// UCPPoints maps /api/ucp_by_interval, preserving backend order.
func UCPPoints(items []Record) []domain.UCPPoint {
	out := make([]domain.UCPPoint, 0, len(items))
	for _, r := range items {
		out = append(out, domain.UCPPoint{
			Interval: r.String("interval"),
			TotalUCP: r.NonNegative("total_ucp"),
		})
	}
	return out
}

// SegmentVehicle maps one /api/vehicles_by_interval_and_segment row.
func SegmentVehicle(r Record) domain.SegmentVehicleRecord {
	return domain.SegmentVehicleRecord{
		SegmentID:           r.String("segment_id"),
		SegmentName:         r.String("segment_name"),
		Autos:               r.Count("autos"),
		Buses:               r.Count("buses"),
		Motos:               r.Count("motos"),
		Camionetas:          r.Count("camionetas"),
		TotalVehicles:       r.Count("total_vehicles"),
		UCP:                 r.NonNegative("ucp"),
		OccupancyPercentage: r.Percent("ocupacion"),
	}
}

// SegmentVehicles maps /api/vehicles_by_interval_and_segment.
func SegmentVehicles(items []Record) []domain.SegmentVehicleRecord {
	out := make([]domain.SegmentVehicleRecord, 0, len(items))
	for _, r := range items {
		out = append(out, SegmentVehicle(r))
	}
	return out
}

// TrafficSegments maps /api/traffic_data.
func TrafficSegments(items []Record) []domain.TrafficSegment {
	out := make([]domain.TrafficSegment, 0, len(items))
	for _, r := range items {
		out = append(out, domain.TrafficSegment{
			SegmentName:         r.String("segment_name"),
			Direction:           r.String("direction"),
			VehicleCounts:       r.IntMap("vehicle_counts"),
			UCPDensity:          r.NonNegative("ucp_density"),
			OccupancyPercentage: r.Percent("occupancy_percentage"),
			TotalVehicles:       r.Count("total_vehicles"),
		})
	}
	return out
}

// Debug maps /api/debug.
func Debug(r Record) domain.DebugInfo {
	sections := r.Records("sections_info")
	info := domain.DebugInfo{
		TotalSegmentsInPolygon: r.Count("total_segments_in_polygon"),
		TotalRouteSections:     r.Count("total_route_sections"),
		CurrentSimulationStep:  r.Count("current_simulation_step"),
		CurrentInterval:        r.String("current_interval"),
		SectionsInfo:           make([]domain.SectionInfo, 0, len(sections)),
	}
	for _, s := range sections {
		info.SectionsInfo = append(info.SectionsInfo, domain.SectionInfo{
			Name:     s.String("name"),
			UCP:      s.NonNegative("ucp"),
			Vehicles: s.Count("vehicles"),
		})
	}
	return info
}

// Alert maps a pushed alert message. It reports false when the category is unknown,
// since the dashboard cannot render an alert it cannot classify. Unknown severities
// fall back to low, and status is always active on arrival.
func Alert(r Record) (domain.Alert, bool) {
	category := domain.AlertCategory(r.String("category"))
	if !category.Valid() {
		return domain.Alert{}, false
	}
	severity := domain.AlertSeverity(r.String("severity"))
	if !severity.Valid() {
		severity = domain.SeverityLow
	}

	return domain.Alert{
		ID:              r.String("id"),
		Category:        category,
		Severity:        severity,
		Title:           r.String("title"),
		Location:        r.String("location"),
		TimestampLabel:  r.String("timestampLabel"),
		Description:     r.String("description"),
		Status:          domain.AlertActive,
		Value:           r.String("value"),
		IncidentSubtype: r.String("incidentSubtype"),
	}, true
}
