package model

// TravelMode selects both the routing profile and the default roaming
// radius.
type TravelMode string

const (
	ModeWalk TravelMode = "walk"
	ModeBike TravelMode = "bike"
	ModeCar  TravelMode = "car"
)

// Default roaming radius presets per mode, in meters. These seed the
// roaming radius and are not hard search limits.
const (
	WalkRadiusMeters = 500
	BikeRadiusMeters = 2000
	CarRadiusMeters  = 10000
)

// Valid reports whether m is one of the known travel modes.
func (m TravelMode) Valid() bool {
	switch m {
	case ModeWalk, ModeBike, ModeCar:
		return true
	}
	return false
}

// RoamingRadius returns the default roaming radius for the mode.
func (m TravelMode) RoamingRadius() float64 {
	switch m {
	case ModeBike:
		return BikeRadiusMeters
	case ModeCar:
		return CarRadiusMeters
	default:
		return WalkRadiusMeters
	}
}
