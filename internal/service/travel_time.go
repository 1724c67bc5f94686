package service

import (
	"math"

	"github.com/smartcity/trafficpulse/pkg/utils"
)

// Travel time model: an uncongested trip takes BaseTravelTime minutes and full
// congestion adds up to MaxCongestionDelay minutes.
const (
	BaseTravelTime     = 25
	MaxCongestionDelay = 15
)

// AverageTravelTime derives the average trip time in minutes from the congestion percentage
func AverageTravelTime(congestionPercentage float64) int {
	if math.IsNaN(congestionPercentage) {
		congestionPercentage = 0
	}
	c := utils.Clamp(congestionPercentage, 0, 100)
	return int(math.Round(BaseTravelTime + c/100*MaxCongestionDelay))
}
