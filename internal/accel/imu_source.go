// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package accel

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// accelLSBPerG is the MPU9250 sensitivity at ±2g; each range step halves it.
const accelLSBPerG = 16384.0

type imuSource struct {
	imu     *mpu9250.MPU9250
	lsbPerG float64
	now     func() time.Time
}

// NewIMUSource initializes an MPU9250 over SPI and returns a Source that
// reads its accelerometer. accelRange is 0=±2g, 1=±4g, 2=±8g, 3=±16g.
func NewIMUSource(spiDev, csPin string, accelRange byte) (Source, error) {
	if accelRange > 3 {
		return nil, fmt.Errorf("IMU: accel range must be 0-3, got %d", accelRange)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	imu, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := imu.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Printf("IMU: accelerometer range set to %d (±%dg)", accelRange, []int{2, 4, 8, 16}[accelRange])

	// Self-test and calibration failures are logged, not fatal.
	if _, err := imu.SelfTest(); err != nil {
		log.Printf("Warning: IMU self-test failed: %v", err)
	}
	if err := imu.Calibrate(); err != nil {
		log.Printf("Warning: IMU calibration failed: %v", err)
	} else {
		log.Printf("IMU calibration complete")
	}

	return &imuSource{
		imu:     imu,
		lsbPerG: accelLSBPerG / float64(int(1)<<accelRange),
		now:     time.Now,
	}, nil
}

// Next reads the three accelerometer axes and converts them to g.
func (s *imuSource) Next() (Sample, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return Sample{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return Sample{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return Sample{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	return rawToSample(ax, ay, az, s.lsbPerG, s.now().UnixMilli()), nil
}

func rawToSample(ax, ay, az int16, lsbPerG float64, ts int64) Sample {
	return Sample{
		X:         float64(ax) / lsbPerG,
		Y:         float64(ay) / lsbPerG,
		Z:         float64(az) / lsbPerG,
		Timestamp: ts,
	}
}
