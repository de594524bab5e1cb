package accel

// Sample is one accelerometer reading in g-units, stamped with Unix
// milliseconds. It is the payload published on the samples topic.
type Sample struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Timestamp int64   `json:"timestamp"` // ms
}

// Source is anything that can provide accelerometer samples over time:
// mock ride, SPI IMU, serial sensor.
type Source interface {
	Next() (Sample, error)
}
