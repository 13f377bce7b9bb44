package entities

import "math"

// Counts holds the number of valid frames seen so far, per kind.
type Counts struct {
	Event   uint32 `json:"event" yaml:"event"`
	Main    uint32 `json:"main" yaml:"main"`
	Slow    uint32 `json:"slow" yaml:"slow"`
	Gps     uint32 `json:"gps" yaml:"gps"`
	GpsHome uint32 `json:"gpsHome" yaml:"gpsHome"`
}

// Stats is a snapshot of data parser progress.
type Stats struct {
	Counts Counts `json:"counts" yaml:"counts"`
	// Progress is the approximate fraction of the log parsed so far, in [0, 1].
	Progress float32 `json:"progress" yaml:"progress"`
}

// ClampProgress bounds a progress fraction to [0, 1]. NaN maps to 0.
func ClampProgress(p float32) float32 {
	switch {
	case math.IsNaN(float64(p)), p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
