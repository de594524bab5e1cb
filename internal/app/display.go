package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/liftheat/internal/config"
	"github.com/relabs-tech/liftheat/internal/session"
)

// DisplayData holds the latest status for display
type DisplayData struct {
	mu sync.RWMutex

	status     session.Status
	haveStatus bool
}

func (d *DisplayData) update(payload []byte) error {
	var st session.Status
	if err := json.Unmarshal(payload, &st); err != nil {
		return err
	}
	d.mu.Lock()
	d.status = st
	d.haveStatus = true
	d.mu.Unlock()
	return nil
}

func (d *DisplayData) latest() (session.Status, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status, d.haveStatus
}

func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: SSD1306 initialized")

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if err := data.update(msg.Payload()); err != nil {
			log.Printf("display: status unmarshal error: %v", err)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicStatus)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		st, have := data.latest()
		if err := dev.Draw(dev.Bounds(), renderStatus(st, have), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// statusLines formats the four 7x13 text rows of the status screen.
func statusLines(st session.Status, have bool) []string {
	if !have {
		return []string{"", "Lift heat map", "Waiting..."}
	}

	head := "IDLE"
	if st.Recording {
		head = "REC " + st.ElevatorCode
	}
	dur := time.Duration(st.Summary.Duration * float64(time.Second)).Round(time.Second)
	return []string{
		head,
		st.FloorName,
		fmt.Sprintf("Pts: %d", st.Summary.TotalPoints),
		fmt.Sprintf("T: %s F:%d", dur, st.Summary.FloorsVisited),
	}
}

func renderStatus(st session.Status, have bool) *image1bit.VerticalLSB {
	img, drawer := newFrame()
	for i, line := range statusLines(st, have) {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawBytes([]byte(line))
	}
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newFrame()

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Lift Heat"))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Waiting for"))

	drawer.Dot = fixed.P(25, 56)
	drawer.DrawBytes([]byte("status"))

	return img
}
