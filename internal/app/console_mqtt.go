package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/liftheat/internal/accel"
	"github.com/relabs-tech/liftheat/internal/config"
	"github.com/relabs-tech/liftheat/internal/session"
)

func printStatus(w io.Writer, st session.Status) {
	state := "idle"
	if st.Recording {
		state = "rec " + st.ElevatorCode
	}
	fmt.Fprintf(w,
		"[LIFT] %-12s floor=%-10s points=%5d floors=%2d duration=%7.1fs dropped=%d/%d\n",
		state, st.FloorName, st.Summary.TotalPoints, st.Summary.FloorsVisited, st.Summary.Duration,
		st.Stats.DroppedInvalid, st.Stats.DroppedOutOfOrder,
	)
}

func printSample(w io.Writer, s accel.Sample) {
	fmt.Fprintf(w, "[ACC ] ts=%d x=%7.3f y=%7.3f z=%7.3f\n", s.Timestamp, s.X, s.Y, s.Z)
}

func RunConsoleMQTT(showSamples bool) error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to status
	statusToken := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var st session.Status
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		printStatus(os.Stdout, st)
	})
	statusToken.Wait()
	if statusToken.Error() != nil {
		return statusToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicStatus)

	if showSamples {
		sampleToken := client.Subscribe(cfg.TopicSamples, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var s accel.Sample
			if err := json.Unmarshal(msg.Payload(), &s); err != nil {
				log.Printf("console: sample unmarshal error: %v", err)
				return
			}
			printSample(os.Stdout, s)
		})
		sampleToken.Wait()
		if sampleToken.Error() != nil {
			return sampleToken.Error()
		}
		log.Printf("console: subscribed to %s", cfg.TopicSamples)
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
