package config

import (
	"log"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"deskie/internal/comfort"
	"deskie/internal/mode"
	"deskie/internal/presence"
	"deskie/internal/telemetry"
)

type ModeConfig struct {
	AwayLimitSeconds        int `mapstructure:"away_limit_seconds"`
	ReminderIntervalSeconds int `mapstructure:"reminder_interval_seconds"`
}

// PinsConfig uses BCM numbering.
type PinsConfig struct {
	Motion    int `mapstructure:"motion"`
	Trigger   int `mapstructure:"trigger"`
	Echo      int `mapstructure:"echo"`
	Blue      int `mapstructure:"blue"`
	TempGreen int `mapstructure:"temp_green"`
	TempRed   int `mapstructure:"temp_red"`
	HumGreen  int `mapstructure:"hum_green"`
	HumRed    int `mapstructure:"hum_red"`
	Buzzer    int `mapstructure:"buzzer"`
	Servo     int `mapstructure:"servo"`
}

type SimConfig struct {
	Motion      bool    `mapstructure:"motion"`
	DistanceCm  float64 `mapstructure:"distance_cm"`
	Temperature float64 `mapstructure:"temperature"`
	Humidity    float64 `mapstructure:"humidity"`
}

type HardwareConfig struct {
	Driver            string     `mapstructure:"driver"` // "gpio" or "sim"
	Pins              PinsConfig `mapstructure:"pins"`
	EchoTimeoutMillis int        `mapstructure:"echo_timeout_millis"`
	DHTDevice         string     `mapstructure:"dht_device"`
	Sim               SimConfig  `mapstructure:"sim"`
}

type WebhookConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type ComfortConfig struct {
	TempMin     float64 `mapstructure:"temp_min"`
	TempMax     float64 `mapstructure:"temp_max"`
	HumidityMin float64 `mapstructure:"humidity_min"`
	HumidityMax float64 `mapstructure:"humidity_max"`
}

type Config struct {
	DatabasePath        string                `mapstructure:"database_path"`
	SocketPath          string                `mapstructure:"socket_path"`
	MetricsListen       string                `mapstructure:"metrics_listen"`
	PollIntervalSeconds int                   `mapstructure:"poll_interval_seconds"`
	InitialMode         string                `mapstructure:"initial_mode"`
	NearDistanceCm      float64               `mapstructure:"near_distance_cm"`
	FarDistanceCm       float64               `mapstructure:"far_distance_cm"`
	Debug               bool                  `mapstructure:"debug"`
	Modes               map[string]ModeConfig `mapstructure:"modes"`
	Hardware            HardwareConfig        `mapstructure:"hardware"`
	Webhook             WebhookConfig         `mapstructure:"webhook"`
	MQTT                MQTTConfig            `mapstructure:"mqtt"`
	Comfort             ComfortConfig         `mapstructure:"comfort"`
}

func setDefaults() {
	viper.SetDefault("database_path", ":memory:")
	viper.SetDefault("socket_path", "/tmp/deskie.sock")
	viper.SetDefault("metrics_listen", "")
	viper.SetDefault("poll_interval_seconds", 2)
	viper.SetDefault("initial_mode", "Off")
	viper.SetDefault("near_distance_cm", presence.DefaultNearCm)
	viper.SetDefault("far_distance_cm", presence.DefaultFarCm)
	viper.SetDefault("debug", false)

	viper.SetDefault("modes.work.away_limit_seconds", 0)
	viper.SetDefault("modes.work.reminder_interval_seconds", 20*60)
	viper.SetDefault("modes.study.away_limit_seconds", 5*60)
	viper.SetDefault("modes.study.reminder_interval_seconds", 20*60)
	viper.SetDefault("modes.other.away_limit_seconds", 15)
	viper.SetDefault("modes.other.reminder_interval_seconds", 300)

	viper.SetDefault("hardware.driver", "gpio")
	viper.SetDefault("hardware.pins.motion", 26)
	viper.SetDefault("hardware.pins.trigger", 23)
	viper.SetDefault("hardware.pins.echo", 24)
	viper.SetDefault("hardware.pins.blue", 17)
	viper.SetDefault("hardware.pins.temp_green", 27)
	viper.SetDefault("hardware.pins.temp_red", 22)
	viper.SetDefault("hardware.pins.hum_green", 5)
	viper.SetDefault("hardware.pins.hum_red", 6)
	viper.SetDefault("hardware.pins.buzzer", 13)
	viper.SetDefault("hardware.pins.servo", 12)
	viper.SetDefault("hardware.echo_timeout_millis", 100)
	viper.SetDefault("hardware.dht_device", "/sys/bus/iio/devices/iio:device0")
	viper.SetDefault("hardware.sim.motion", false)
	viper.SetDefault("hardware.sim.distance_cm", 80)
	viper.SetDefault("hardware.sim.temperature", 22)
	viper.SetDefault("hardware.sim.humidity", 45)

	viper.SetDefault("webhook.url", "")
	viper.SetDefault("webhook.timeout_seconds", 10)

	viper.SetDefault("mqtt.broker", "")
	viper.SetDefault("mqtt.client_id", "deskie")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.topic_prefix", "deskie")

	viper.SetDefault("comfort.temp_min", 20)
	viper.SetDefault("comfort.temp_max", 25)
	viper.SetDefault("comfort.humidity_min", 30)
	viper.SetDefault("comfort.humidity_max", 60)
}

func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/deskie")
		viper.AddConfigPath("/etc/deskie/")
	}

	viper.SetEnvPrefix("DESKIE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using defaults.")
		} else {
			return nil, err
		}
	}

	return decode()
}

func decode() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.validate()
	return &cfg, nil
}

func (c *Config) validate() {
	if c.PollIntervalSeconds < 1 {
		log.Println("Warning: poll_interval_seconds too low, setting to 1")
		c.PollIntervalSeconds = 1
	}
	if c.Hardware.Driver != "gpio" && c.Hardware.Driver != "sim" {
		log.Printf("Warning: invalid hardware.driver '%s', defaulting to 'gpio'", c.Hardware.Driver)
		c.Hardware.Driver = "gpio"
	}
	if c.Hardware.EchoTimeoutMillis < 1 {
		log.Println("Warning: hardware.echo_timeout_millis too low, setting to 100")
		c.Hardware.EchoTimeoutMillis = 100
	}
	if c.Webhook.TimeoutSeconds < 1 {
		log.Println("Warning: webhook.timeout_seconds too low, setting to 10")
		c.Webhook.TimeoutSeconds = 10
	}
	if _, err := mode.Parse(c.InitialMode); err != nil {
		log.Printf("Warning: invalid initial_mode '%s', defaulting to 'Off'", c.InitialMode)
		c.InitialMode = string(mode.Off)
	}
	if c.NearDistanceCm <= 0 || c.FarDistanceCm <= c.NearDistanceCm {
		log.Printf("Warning: invalid distance thresholds %.0f/%.0f, using defaults", c.NearDistanceCm, c.FarDistanceCm)
		c.NearDistanceCm = presence.DefaultNearCm
		c.FarDistanceCm = presence.DefaultFarCm
	}
}

// Policy builds the mode table. Unknown mode names are ignored with a
// warning; negative values count as "none".
func (c *Config) Policy() mode.Policy {
	p := mode.Policy{}
	for name, mc := range c.Modes {
		m, err := mode.Parse(name)
		if err != nil {
			log.Printf("Warning: ignoring settings for %v", err)
			continue
		}
		if m == mode.Off {
			continue
		}
		p[m] = mode.Settings{
			AwayLimit:        seconds(mc.AwayLimitSeconds),
			ReminderInterval: seconds(mc.ReminderIntervalSeconds),
		}
	}
	return p
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *Config) EchoTimeout() time.Duration {
	return time.Duration(c.Hardware.EchoTimeoutMillis) * time.Millisecond
}

func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.Webhook.TimeoutSeconds) * time.Second
}

func (c *Config) Thresholds() presence.Thresholds {
	return presence.Thresholds{NearCm: c.NearDistanceCm, FarCm: c.FarDistanceCm}
}

func (c *Config) ComfortBounds() comfort.Bounds {
	return comfort.Bounds{
		TempMin:     c.Comfort.TempMin,
		TempMax:     c.Comfort.TempMax,
		HumidityMin: c.Comfort.HumidityMin,
		HumidityMax: c.Comfort.HumidityMax,
	}
}

func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		Broker:      c.MQTT.Broker,
		ClientID:    c.MQTT.ClientID,
		Username:    c.MQTT.Username,
		Password:    c.MQTT.Password,
		TopicPrefix: c.MQTT.TopicPrefix,
	}
}

// Watch re-reads the config file whenever it changes. Only settings that
// are safe to swap at runtime should be taken from the new value.
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("Config file changed: %s", e.Name)
		cfg, err := decode()
		if err != nil {
			log.Printf("Warning: ignoring config change: %v", err)
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}
