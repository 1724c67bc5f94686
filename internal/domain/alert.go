package domain

import "time"

// AlertCategory classifies what triggered an alert
type AlertCategory string

const (
	AlertIncident           AlertCategory = "incident"
	AlertCongestionCritical AlertCategory = "congestionCritical"
	AlertTravelTimeExceeded AlertCategory = "travelTimeExceeded"
	AlertTrafficLight       AlertCategory = "trafficLight"
)

// AlertCategories lists every known category
func AlertCategories() []AlertCategory {
	return []AlertCategory{
		AlertIncident,
		AlertCongestionCritical,
		AlertTravelTimeExceeded,
		AlertTrafficLight,
	}
}

// Valid reports whether c is a known category
func (c AlertCategory) Valid() bool {
	for _, known := range AlertCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// AlertSeverity is the display priority of an alert
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// AlertSeverities lists severities from most to least urgent
func AlertSeverities() []AlertSeverity {
	return []AlertSeverity{SeverityHigh, SeverityMedium, SeverityLow}
}

// Valid reports whether s is a known severity
func (s AlertSeverity) Valid() bool {
	return s == SeverityHigh || s == SeverityMedium || s == SeverityLow
}

// AlertStatus tracks whether an alert still needs attention
type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

// Alert is an ephemeral dashboard notification
type Alert struct {
	ID              string        `json:"id"`
	Category        AlertCategory `json:"category"`
	Severity        AlertSeverity `json:"severity"`
	Title           string        `json:"title"`
	Location        string        `json:"location"`
	TimestampLabel  string        `json:"timestampLabel"`
	Description     string        `json:"description"`
	Status          AlertStatus   `json:"status"`
	Value           string        `json:"value,omitempty"`
	IncidentSubtype string        `json:"incidentSubtype,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}
