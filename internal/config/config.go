package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"fleet-tracking-service/internal/sim"
)

// ServerConfig tunes the HTTP surface.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// MongoConfig points at the document store. An empty URI runs the service in
// demo mode with no persistence.
type MongoConfig struct {
	URI      string        `mapstructure:"uri"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MQTTConfig controls the optional violation publisher.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BrokerURL   string `mapstructure:"broker_url"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

// AuthConfig carries the shared secret bearer tokens are validated against.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// FleetConfig tunes the host service: demo fleet size, tick period, routing
// source and the fare model.
type FleetConfig struct {
	Size        int     `mapstructure:"size"`
	TickSeconds int     `mapstructure:"tick_seconds"`
	OSRMBaseURL string  `mapstructure:"osrm_base_url"`
	Seed        int64   `mapstructure:"seed"`
	FareBase    float64 `mapstructure:"fare_base"`
	FarePerKm   float64 `mapstructure:"fare_per_km"`
}

// SimConfig mirrors sim.Tuning with config tags. Probabilities and clamp
// bounds are deliberately file-tunable rather than compiled in.
type SimConfig struct {
	SpeedLimitKmh       float64       `mapstructure:"speed_limit_kmh"`
	JitterFraction      float64       `mapstructure:"jitter_fraction"`
	SlowdownProbability float64       `mapstructure:"slowdown_probability"`
	SlowdownFactor      float64       `mapstructure:"slowdown_factor"`
	SlowdownFloorKmh    float64       `mapstructure:"slowdown_floor_kmh"`
	SpeedupProbability  float64       `mapstructure:"speedup_probability"`
	SpeedupFactor       float64       `mapstructure:"speedup_factor"`
	SpeedupCapKmh       float64       `mapstructure:"speedup_cap_kmh"`
	BurstProbability    float64       `mapstructure:"burst_probability"`
	BurstMinKmh         float64       `mapstructure:"burst_min_kmh"`
	BurstMaxKmh         float64       `mapstructure:"burst_max_kmh"`
	CruiseMinKmh        float64       `mapstructure:"cruise_min_kmh"`
	CruiseMaxKmh        float64       `mapstructure:"cruise_max_kmh"`
	ApproachRadiusM     float64       `mapstructure:"approach_radius_m"`
	ApproachCapKmh      float64       `mapstructure:"approach_cap_kmh"`
	ArrivalRadiusM      float64       `mapstructure:"arrival_radius_m"`
	StationaryKmh       float64       `mapstructure:"stationary_kmh"`
	StallSpeedKmh       float64       `mapstructure:"stall_speed_kmh"`
	StallAfter          time.Duration `mapstructure:"stall_after"`
	HistoryLimit        int           `mapstructure:"history_limit"`
	CargoTempMinC       float64       `mapstructure:"cargo_temp_min_c"`
	CargoTempMaxC       float64       `mapstructure:"cargo_temp_max_c"`
	CargoDriftC         float64       `mapstructure:"cargo_drift_c"`
}

// Tuning converts the file representation into the engine's parameter set.
func (s SimConfig) Tuning() sim.Tuning {
	return sim.Tuning{
		SpeedLimitKmh:       s.SpeedLimitKmh,
		JitterFraction:      s.JitterFraction,
		SlowdownProbability: s.SlowdownProbability,
		SlowdownFactor:      s.SlowdownFactor,
		SlowdownFloorKmh:    s.SlowdownFloorKmh,
		SpeedupProbability:  s.SpeedupProbability,
		SpeedupFactor:       s.SpeedupFactor,
		SpeedupCapKmh:       s.SpeedupCapKmh,
		BurstProbability:    s.BurstProbability,
		BurstMinKmh:         s.BurstMinKmh,
		BurstMaxKmh:         s.BurstMaxKmh,
		CruiseMinKmh:        s.CruiseMinKmh,
		CruiseMaxKmh:        s.CruiseMaxKmh,
		ApproachRadiusM:     s.ApproachRadiusM,
		ApproachCapKmh:      s.ApproachCapKmh,
		ArrivalRadiusM:      s.ArrivalRadiusM,
		StationaryKmh:       s.StationaryKmh,
		StallSpeedKmh:       s.StallSpeedKmh,
		StallAfter:          s.StallAfter,
		HistoryLimit:        s.HistoryLimit,
		CargoTempMinC:       s.CargoTempMinC,
		CargoTempMaxC:       s.CargoTempMaxC,
		CargoDriftC:         s.CargoDriftC,
	}.Normalize()
}

// Config holds the entire service configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	MQTT   MQTTConfig   `mapstructure:"mqtt"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Fleet  FleetConfig  `mapstructure:"fleet"`
	Sim    SimConfig    `mapstructure:"sim"`

	v *viper.Viper
}

// Load reads the YAML file at path with environment overrides (dots become
// underscores, e.g. MONGO_URI overrides mongo.uri). A missing file is not an
// error; defaults plus environment apply. An empty path skips the file
// entirely.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
			log.WithField("path", path).Warn("Config file not found, using defaults")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.v = v
	return &cfg, nil
}

// Watch re-reads the file whenever it changes and hands the fresh Config to
// onChange. Malformed edits are logged and skipped, keeping the last good
// configuration in effect. A Config loaded without a file watches nothing.
func (c *Config) Watch(onChange func(Config)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		var fresh Config
		if err := c.v.Unmarshal(&fresh); err != nil {
			log.WithError(err).Warn("Ignoring malformed config change")
			return
		}
		fresh.v = c.v
		log.WithField("file", e.Name).Info("Config reloaded")
		onChange(fresh)
	})
	c.v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_json", false)

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "fleet")
	v.SetDefault("mongo.timeout", 10*time.Second)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker_url", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "fleet-tracking-service")
	v.SetDefault("mqtt.topic_prefix", "fleet/alerts")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("fleet.size", 12)
	v.SetDefault("fleet.tick_seconds", 4)
	v.SetDefault("fleet.osrm_base_url", "https://router.project-osrm.org")
	v.SetDefault("fleet.seed", 0)
	v.SetDefault("fleet.fare_base", 50)
	v.SetDefault("fleet.fare_per_km", 12)

	t := sim.DefaultTuning()
	v.SetDefault("sim.speed_limit_kmh", t.SpeedLimitKmh)
	v.SetDefault("sim.jitter_fraction", t.JitterFraction)
	v.SetDefault("sim.slowdown_probability", t.SlowdownProbability)
	v.SetDefault("sim.slowdown_factor", t.SlowdownFactor)
	v.SetDefault("sim.slowdown_floor_kmh", t.SlowdownFloorKmh)
	v.SetDefault("sim.speedup_probability", t.SpeedupProbability)
	v.SetDefault("sim.speedup_factor", t.SpeedupFactor)
	v.SetDefault("sim.speedup_cap_kmh", t.SpeedupCapKmh)
	v.SetDefault("sim.burst_probability", t.BurstProbability)
	v.SetDefault("sim.burst_min_kmh", t.BurstMinKmh)
	v.SetDefault("sim.burst_max_kmh", t.BurstMaxKmh)
	v.SetDefault("sim.cruise_min_kmh", t.CruiseMinKmh)
	v.SetDefault("sim.cruise_max_kmh", t.CruiseMaxKmh)
	v.SetDefault("sim.approach_radius_m", t.ApproachRadiusM)
	v.SetDefault("sim.approach_cap_kmh", t.ApproachCapKmh)
	v.SetDefault("sim.arrival_radius_m", t.ArrivalRadiusM)
	v.SetDefault("sim.stationary_kmh", t.StationaryKmh)
	v.SetDefault("sim.stall_speed_kmh", t.StallSpeedKmh)
	v.SetDefault("sim.stall_after", t.StallAfter)
	v.SetDefault("sim.history_limit", t.HistoryLimit)
	v.SetDefault("sim.cargo_temp_min_c", t.CargoTempMinC)
	v.SetDefault("sim.cargo_temp_max_c", t.CargoTempMaxC)
	v.SetDefault("sim.cargo_drift_c", t.CargoDriftC)
}
