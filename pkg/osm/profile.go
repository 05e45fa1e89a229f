package osm

import (
	"strconv"
	"strings"

	"github.com/paulmach/osm"
)

// carSpeeds maps drivable highway classes to a default speed in km/h.
var carSpeeds = map[string]float64{
	"motorway":       90,
	"motorway_link":  60,
	"trunk":          70,
	"trunk_link":     50,
	"primary":        60,
	"primary_link":   45,
	"secondary":      50,
	"secondary_link": 40,
	"tertiary":       40,
	"tertiary_link":  35,
	"unclassified":   30,
	"residential":    30,
	"living_street":  10,
	"service":        15,
}

const (
	minSpeedKmh = 5
	maxSpeedKmh = 130
	kmhPerMph   = 1.609344
)

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	if _, ok := carSpeeds[tags.Find("highway")]; !ok {
		return false
	}
	// Pedestrian plazas are mapped as highway areas.
	if tags.Find("area") == "yes" {
		return false
	}
	switch tags.Find("access") {
	case "no", "private":
		return false
	}
	return tags.Find("motor_vehicle") != "no"
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	forward, backward = true, true

	hw := tags.Find("highway")
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		// Direction depends on time of day; not routable with static costs.
		forward, backward = false, false
	}
	return forward, backward
}

// wayspeed returns the travel speed for a way in km/h: the maxspeed tag when
// it parses, otherwise the highway class default.
func wayspeed(tags osm.Tags) float64 {
	speed := carSpeeds[tags.Find("highway")]
	if v, ok := parseMaxspeed(tags.Find("maxspeed")); ok {
		speed = v
	}
	return min(max(speed, minSpeedKmh), maxSpeedKmh)
}

// parseMaxspeed understands plain km/h values ("50"), explicit units
// ("50 km/h", "30 mph") and ignores symbolic values ("signals", "walk").
func parseMaxspeed(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, false
	}
	factor := 1.0
	switch {
	case strings.HasSuffix(s, "mph"):
		factor = kmhPerMph
		s = strings.TrimSpace(strings.TrimSuffix(s, "mph"))
	case strings.HasSuffix(s, "km/h"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "km/h"))
	case strings.HasSuffix(s, "kmh"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "kmh"))
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * factor, true
}
