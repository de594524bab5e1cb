// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package accel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// Transducer names carried in the XDR sentences of serial accelerometers,
// e.g. $IIXDR,G,0.012,G,ACCX,G,-0.020,G,ACCY,G,1.001,G,ACCZ*hh
const (
	xdrAccelX = "ACCX"
	xdrAccelY = "ACCY"
	xdrAccelZ = "ACCZ"
)

var errNoAccel = errors.New("sentence carries no accelerometer triple")

type serialSource struct {
	port   io.ReadCloser
	reader *bufio.Reader
	now    func() time.Time
}

// NewSerialSource opens a serial accelerometer that streams NMEA XDR
// sentences and returns it as a Source.
func NewSerialSource(portName string, baudRate int) (Source, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("serial accel: open %s: %w", portName, err)
	}
	log.Printf("serial accel: port opened on %s at %d baud", portName, baudRate)

	return newReaderSource(port, time.Now), nil
}

func newReaderSource(r io.ReadCloser, now func() time.Time) *serialSource {
	return &serialSource{port: r, reader: bufio.NewReader(r), now: now}
}

// Next blocks until the next accelerometer sentence. Non-NMEA lines,
// checksum failures and other sentence types are skipped.
func (s *serialSource) Next() (Sample, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return Sample{}, fmt.Errorf("serial accel: read: %w", err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sample, err := ParseXDR(line, s.now().UnixMilli())
		if err != nil {
			continue
		}
		return sample, nil
	}
}

// Close releases the serial port.
func (s *serialSource) Close() error {
	return s.port.Close()
}

// ParseXDR extracts an accelerometer sample from an XDR sentence.
func ParseXDR(line string, ts int64) (Sample, error) {
	sentence, err := nmea.Parse(line)
	if err != nil {
		return Sample{}, err
	}
	if sentence.DataType() != nmea.TypeXDR {
		return Sample{}, fmt.Errorf("%w: type %s", errNoAccel, sentence.DataType())
	}

	m := sentence.(nmea.XDR)
	var got int
	out := Sample{Timestamp: ts}
	for _, meas := range m.Measurements {
		switch meas.TransducerName {
		case xdrAccelX:
			out.X = meas.Value
			got |= 1
		case xdrAccelY:
			out.Y = meas.Value
			got |= 2
		case xdrAccelZ:
			out.Z = meas.Value
			got |= 4
		}
	}
	if got != 7 {
		return Sample{}, errNoAccel
	}
	return out, nil
}

// FormatXDR renders a sample as a checksummed XDR sentence.
func FormatXDR(s Sample) string {
	body := fmt.Sprintf("IIXDR,G,%.4f,G,%s,G,%.4f,G,%s,G,%.4f,G,%s",
		s.X, xdrAccelX, s.Y, xdrAccelY, s.Z, xdrAccelZ)
	return fmt.Sprintf("$%s*%s", body, nmea.Checksum(body))
}
