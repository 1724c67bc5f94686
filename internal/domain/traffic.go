package domain

// KPISnapshot represents the network-wide indicators reported by the simulation backend
type KPISnapshot struct {
	OverallOccupancyPercentage float64 `json:"overallOccupancyPercentage"`
	CongestionPercentage       float64 `json:"congestionPercentage"`
	RedSegmentsCount           int     `json:"redSegmentsCount"`
	TotalSegmentsCount         int     `json:"totalSegmentsCount"`
	AverageTravelTime          int     `json:"averageTravelTime"` // minutes, derived from congestion
}

// IntervalUnavailable labels the current interval when the backend cannot be reached
const IntervalUnavailable = "Unavailable"

// IntervalState describes where the simulation currently is
type IntervalState struct {
	CurrentInterval string `json:"current_interval"`
	SimulationStep  int    `json:"simulation_step"`
	TotalIntervals  int    `json:"total_intervals"`
}

// UnavailableInterval returns the sentinel state rendered while the backend is down
func UnavailableInterval() IntervalState {
	return IntervalState{CurrentInterval: IntervalUnavailable}
}

// Available reports whether the state names a real backend interval
func (s IntervalState) Available() bool {
	return s.CurrentInterval != "" && s.CurrentInterval != IntervalUnavailable
}

// UCPPoint is the aggregated UCP for one interval
type UCPPoint struct {
	Interval string  `json:"interval"`
	TotalUCP float64 `json:"total_ucp"`
}

// ChartPoint is one bar of the UCP-per-interval chart
type ChartPoint struct {
	Interval          string  `json:"interval"`
	TotalUCP          float64 `json:"totalUCP"`
	IsCurrentInterval bool    `json:"isCurrentInterval"`
}

// SegmentVehicleRecord holds vehicle counts for one segment in one interval
type SegmentVehicleRecord struct {
	SegmentID           string  `json:"segment_id"`
	SegmentName         string  `json:"segment_name"`
	Autos               int     `json:"autos"`
	Buses               int     `json:"buses"`
	Motos               int     `json:"motos"`
	Camionetas          int     `json:"camionetas"`
	TotalVehicles       int     `json:"total_vehicles"`
	UCP                 float64 `json:"ucp"`
	OccupancyPercentage float64 `json:"ocupacion"`
}

// TrafficSegment is the live state of a road segment
type TrafficSegment struct {
	SegmentName         string         `json:"segment_name"`
	Direction           string         `json:"direction"`
	VehicleCounts       map[string]int `json:"vehicle_counts"`
	UCPDensity          float64        `json:"ucp_density"`
	OccupancyPercentage float64        `json:"occupancy_percentage"`
	TotalVehicles       int            `json:"total_vehicles"`
}

// SectionInfo summarises one route section in the debug payload
type SectionInfo struct {
	Name     string  `json:"name"`
	UCP      float64 `json:"ucp"`
	Vehicles int     `json:"vehicles"`
}

// DebugInfo is the diagnostic payload of the backend probe endpoint
type DebugInfo struct {
	TotalSegmentsInPolygon int           `json:"total_segments_in_polygon"`
	TotalRouteSections     int           `json:"total_route_sections"`
	CurrentSimulationStep  int           `json:"current_simulation_step"`
	CurrentInterval        string        `json:"current_interval"`
	SectionsInfo           []SectionInfo `json:"sections_info"`
}
