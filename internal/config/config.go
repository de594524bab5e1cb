package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/liftheat/internal/heatmap"
)

// Sample sources selectable with SAMPLE_SOURCE.
const (
	SourceMock   = "mock"
	SourceIMU    = "imu"
	SourceSerial = "serial"
)

// Config holds all application configuration values.
type Config struct {
	// Engine
	FloorHeight     float64 // metres
	CommitRatio     float64 // share of FloorHeight that arms a commit
	CarWidth        float64 // metres
	CarDepth        float64 // metres
	HysteresisMS    int
	CalibrationMax  float64 // g
	RawIntensity    bool
	VelocityTau     float64 // seconds, 0 disables the leak
	DisplacementTau float64 // seconds
	PositionTau     float64 // seconds
	RestBand        float64 // g
	RestWindowMS    int     // 0 disables rest detection
	RestVelocity    float64 // m/s
	BaselineTau     float64 // seconds, 0 freezes the baseline
	MaxAccel        float64 // g
	GroundLabel     string
	PathTimeFormat  string

	// Sampling
	SampleSource   string
	SampleInterval int // milliseconds

	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDWeb      string
	MQTTClientIDConsole  string
	MQTTClientIDDisplay  string

	// Topics
	TopicSamples string
	TopicStatus  string

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte

	// Serial accelerometer
	SerialPort     string
	SerialBaudRate int

	// Web Server
	WebServerPort int

	// Storage
	DBPath string

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal() and Get().
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		FloorHeight:     3.0,
		CommitRatio:     0.6,
		CarWidth:        1.6,
		CarDepth:        1.4,
		HysteresisMS:    300,
		CalibrationMax:  0.5,
		VelocityTau:     60,
		DisplacementTau: 60,
		PositionTau:     8,
		RestBand:        0.03,
		RestWindowMS:    1000,
		RestVelocity:    0.5,
		BaselineTau:     5,
		MaxAccel:        16,
		GroundLabel:     "Ground",
		PathTimeFormat:  "15:04:05",

		SampleSource:   SourceMock,
		SampleInterval: 300,

		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDProducer: "liftheat-producer",
		MQTTClientIDWeb:      "liftheat-web",
		MQTTClientIDConsole:  "liftheat-console",
		MQTTClientIDDisplay:  "liftheat-display",

		TopicSamples: "liftheat/samples",
		TopicStatus:  "liftheat/status",

		SerialBaudRate: 115200,

		WebServerPort: 8080,
		DBPath:        "liftheat.db",

		DisplayUpdateInterval: 500,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default() and validates the result.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error

	switch key {
	// Engine
	case "FLOOR_HEIGHT":
		c.FloorHeight, err = parseFloat(key, value)
	case "COMMIT_RATIO":
		c.CommitRatio, err = parseFloat(key, value)
	case "CAR_WIDTH":
		c.CarWidth, err = parseFloat(key, value)
	case "CAR_DEPTH":
		c.CarDepth, err = parseFloat(key, value)
	case "HYSTERESIS_MS":
		c.HysteresisMS, err = parseInt(key, value)
	case "CALIBRATION_MAX":
		c.CalibrationMax, err = parseFloat(key, value)
	case "RAW_INTENSITY":
		c.RawIntensity, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
	case "VELOCITY_TAU":
		c.VelocityTau, err = parseFloat(key, value)
	case "DISPLACEMENT_TAU":
		c.DisplacementTau, err = parseFloat(key, value)
	case "POSITION_TAU":
		c.PositionTau, err = parseFloat(key, value)
	case "REST_BAND":
		c.RestBand, err = parseFloat(key, value)
	case "REST_WINDOW_MS":
		c.RestWindowMS, err = parseInt(key, value)
	case "REST_VELOCITY":
		c.RestVelocity, err = parseFloat(key, value)
	case "BASELINE_TAU":
		c.BaselineTau, err = parseFloat(key, value)
	case "MAX_ACCEL":
		c.MaxAccel, err = parseFloat(key, value)
	case "GROUND_LABEL":
		c.GroundLabel = value
	case "PATH_TIME_FORMAT":
		c.PathTimeFormat = value

	// Sampling
	case "SAMPLE_SOURCE":
		c.SampleSource = value
	case "SAMPLE_INTERVAL":
		c.SampleInterval, err = parseInt(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_SAMPLES":
		c.TopicSamples = value
	case "TOPIC_STATUS":
		c.TopicStatus = value

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)

	// Serial accelerometer
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	// Storage
	case "DB_PATH":
		c.DBPath = value

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that all required fields are set and usable.
func (c *Config) validate() error {
	if err := c.Heatmap().Validate(); err != nil {
		return err
	}
	if c.HysteresisMS < 0 {
		return fmt.Errorf("HYSTERESIS_MS must not be negative, got %d", c.HysteresisMS)
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be positive, got %d", c.SampleInterval)
	}

	switch c.SampleSource {
	case SourceMock:
	case SourceIMU:
		if c.IMUSPIDevice == "" || c.IMUCSPin == "" {
			return fmt.Errorf("IMU_SPI_DEVICE and IMU_CS_PIN are required for SAMPLE_SOURCE=imu")
		}
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for SAMPLE_SOURCE=serial")
		}
		if c.SerialBaudRate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", c.SerialBaudRate)
		}
	default:
		return fmt.Errorf("unknown SAMPLE_SOURCE %q (want mock, imu or serial)", c.SampleSource)
	}

	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicSamples == "" || c.TopicStatus == "" {
		return fmt.Errorf("TOPIC_SAMPLES and TOPIC_STATUS are required")
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	return nil
}

// Heatmap converts the engine keys into a heatmap.Config.
func (c *Config) Heatmap() heatmap.Config {
	return heatmap.Config{
		FloorHeight:     c.FloorHeight,
		CommitRatio:     c.CommitRatio,
		CarWidth:        c.CarWidth,
		CarDepth:        c.CarDepth,
		Hysteresis:      time.Duration(c.HysteresisMS) * time.Millisecond,
		CalibrationMax:  c.CalibrationMax,
		RawIntensity:    c.RawIntensity,
		VelocityTau:     seconds(c.VelocityTau),
		DisplacementTau: seconds(c.DisplacementTau),
		PositionTau:     seconds(c.PositionTau),
		RestBand:        c.RestBand,
		RestWindow:      time.Duration(c.RestWindowMS) * time.Millisecond,
		RestVelocity:    c.RestVelocity,
		BaselineTau:     seconds(c.BaselineTau),
		MaxAccel:        c.MaxAccel,
		PathTimeFormat:  c.PathTimeFormat,
	}
}

// FloorNames returns the floor naming used by the engine.
func (c *Config) FloorNames() heatmap.FloorNamer {
	return heatmap.DefaultFloorNames{GroundLabel: c.GroundLabel}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
