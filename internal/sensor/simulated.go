package sensor

import (
	"math"
	"math/rand"

	"thingspeak-uploader/internal/protocol"
)

// Reader produces one measurement set per call.
type Reader interface {
	Read() (protocol.Measurements, error)
}

// Simulated is a temperature/humidity source that drifts with a bounded
// random walk.
type Simulated struct {
	TempField     string
	HumidityField string

	temp     float64
	humidity float64
	rnd      *rand.Rand
}

// NewSimulated starts a walk at 21°C / 45% using seed.
func NewSimulated(tempField, humidityField string, seed int64) *Simulated {
	return &Simulated{
		TempField:     tempField,
		HumidityField: humidityField,
		temp:          21,
		humidity:      45,
		rnd:           rand.New(rand.NewSource(seed)),
	}
}

// Read advances the walk and returns the rounded values.
func (s *Simulated) Read() (protocol.Measurements, error) {
	s.temp = clamp(s.temp+s.rnd.Float64()-0.5, -20, 50)
	s.humidity = clamp(s.humidity+2*s.rnd.Float64()-1, 0, 100)

	m := protocol.Measurements{}
	if s.TempField != "" {
		m[s.TempField] = round1(s.temp)
	}
	if s.HumidityField != "" {
		m[s.HumidityField] = round1(s.humidity)
	}
	return m, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
