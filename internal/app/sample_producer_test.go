package app

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/liftheat/internal/accel"
	"github.com/relabs-tech/liftheat/internal/config"
)

// scriptedSource replays samples and fails where err is set.
type scriptedSource struct {
	samples []accel.Sample
	errs    map[int]error
	i       int
}

func (s *scriptedSource) Next() (accel.Sample, error) {
	i := s.i
	s.i++
	if err := s.errs[i]; err != nil {
		return accel.Sample{}, err
	}
	return s.samples[i%len(s.samples)], nil
}

func TestPumpSamples(t *testing.T) {
	src := &scriptedSource{
		samples: []accel.Sample{
			{X: 0.01, Y: -0.02, Z: 1, Timestamp: 100},
			{X: 0, Y: 0, Z: 1.1, Timestamp: 400},
			{X: 0, Y: 0, Z: 0.9, Timestamp: 700},
		},
		errs: map[int]error{1: errors.New("bus glitch")},
	}

	ticks := make(chan time.Time, 4)
	for i := 0; i < 4; i++ {
		ticks <- time.Now()
	}
	close(ticks)

	var got []accel.Sample
	calls := 0
	n := pumpSamples(src, "liftheat/samples", ticks, nil, func(topic string, payload []byte) error {
		calls++
		assert.Equal(t, "liftheat/samples", topic)
		if calls == 2 {
			return errors.New("broker away")
		}
		var s accel.Sample
		require.NoError(t, json.Unmarshal(payload, &s))
		got = append(got, s)
		return nil
	})

	// tick 2 fails to read, tick 3 fails to publish
	assert.Equal(t, 2, n)
	assert.Equal(t, []accel.Sample{src.samples[0], src.samples[0]}, got)
}

func TestPumpSamples_Stop(t *testing.T) {
	stop := make(chan struct{})
	close(stop)
	n := pumpSamples(accel.NewMockSource(), "t", make(chan time.Time), stop, func(string, []byte) error {
		t.Fatal("nothing should be published")
		return nil
	})
	assert.Zero(t, n)
}

func TestOpenSource(t *testing.T) {
	cfg := config.Default()
	src, err := openSource(cfg)
	require.NoError(t, err)
	s, err := src.Next()
	require.NoError(t, err)
	assert.NotZero(t, s.Timestamp)

	cfg.SampleSource = "carrier-pigeon"
	_, err = openSource(cfg)
	assert.Error(t, err)
}
