package travel

import "route-optimization-service/internal/domain"

const metersPerMile = 1609.344

func legFromMetric(meters, seconds float64) domain.LegResult {
	return domain.LegResult{
		TravelTimeMinutes: seconds / 60,
		DistanceMiles:     meters / metersPerMile,
	}
}

func checkPairs(origins, destinations []domain.Location) error {
	if len(origins) != len(destinations) {
		return errLengthMismatch(len(origins), len(destinations))
	}
	return nil
}
