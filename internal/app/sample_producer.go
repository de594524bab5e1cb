// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/liftheat/internal/accel"
	"github.com/relabs-tech/liftheat/internal/config"
)

// openSource picks the accelerometer source named by SAMPLE_SOURCE.
func openSource(cfg *config.Config) (accel.Source, error) {
	switch cfg.SampleSource {
	case config.SourceMock:
		log.Println("producer: using mock ride source")
		return accel.NewMockSource(), nil
	case config.SourceIMU:
		log.Printf("producer: using MPU9250 on %s (CS %s)", cfg.IMUSPIDevice, cfg.IMUCSPin)
		return accel.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange)
	case config.SourceSerial:
		log.Printf("producer: using serial accelerometer on %s", cfg.SerialPort)
		return accel.NewSerialSource(cfg.SerialPort, cfg.SerialBaudRate)
	default:
		return nil, fmt.Errorf("unknown sample source %q", cfg.SampleSource)
	}
}

// publishFunc sends one encoded payload to a topic.
type publishFunc func(topic string, payload []byte) error

func mqttPublisher(client mqtt.Client, retained bool) publishFunc {
	return func(topic string, payload []byte) error {
		token := client.Publish(topic, 0, retained, payload)
		token.Wait()
		return token.Error()
	}
}

// pumpSamples reads one sample per tick and publishes it until ticks or
// stop close. Read and publish errors are logged and the tick is skipped.
// It returns the number of samples published.
func pumpSamples(src accel.Source, topic string, ticks <-chan time.Time, stop <-chan struct{}, publish publishFunc) int {
	published := 0
	for {
		select {
		case <-stop:
			return published
		case _, ok := <-ticks:
			if !ok {
				return published
			}
		}

		s, err := src.Next()
		if err != nil {
			log.Printf("producer: read error: %v", err)
			continue
		}

		payload, err := json.Marshal(s)
		if err != nil {
			log.Printf("producer: json marshal error: %v", err)
			continue
		}
		if err := publish(topic, payload); err != nil {
			log.Printf("producer: MQTT publish error (%s): %v", topic, err)
			continue
		}
		published++

		if published%100 == 0 {
			log.Printf("producer: %d samples published, last x=%.3f y=%.3f z=%.3f",
				published, s.X, s.Y, s.Z)
		}
	}
}

// RunSampleProducer reads the configured accelerometer at SAMPLE_INTERVAL
// and publishes each sample to TOPIC_SAMPLES until SIGINT/SIGTERM.
func RunSampleProducer() error {
	cfg := config.Get()

	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("producer: connected to MQTT broker at %s, publishing to %s every %dms",
		cfg.MQTTBroker, cfg.TopicSamples, cfg.SampleInterval)

	ticker := time.NewTicker(time.Duration(cfg.SampleInterval) * time.Millisecond)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	stop := make(chan struct{})
	go func() {
		<-sigCh
		close(stop)
	}()

	n := pumpSamples(src, cfg.TopicSamples, ticker.C, stop, mqttPublisher(client, false))
	log.Printf("producer: shutting down after %d samples", n)
	return nil
}
