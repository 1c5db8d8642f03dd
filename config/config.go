package config

import (
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Server configures the HTTP listener.
type Server struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LLM points at the external evaluation service.
type LLM struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Interview holds the turn policy knobs.
type Interview struct {
	MaxFollowUps    int `yaml:"max_follow_ups"`
	DefaultDuration int `yaml:"default_duration"` // minutes
}

// Audio tunes the audio signal analyzer. Volumes are normalized 0-1.
type Audio struct {
	VoiceThreshold  float64 `yaml:"voice_threshold"`
	SilenceSeconds  int     `yaml:"silence_seconds"`
	SpikeMultiplier float64 `yaml:"spike_multiplier"`
	SpikeFloor      float64 `yaml:"spike_floor"`
	SpeechVolume    float64 `yaml:"speech_volume"`
	SpeechVariance  float64 `yaml:"speech_variance"`
	HistorySize     int     `yaml:"history_size"`
	SpikeWindow     int     `yaml:"spike_window"`
	VarianceWindow  int     `yaml:"variance_window"`
}

// Video tunes the gaze estimator.
type Video struct {
	GazeScale float64 `yaml:"gaze_scale"`
	GazeLimit float64 `yaml:"gaze_limit"`
}

// Throttle sets the minimum spacing between two emissions of the same
// integrity event type for one session. Zero disables throttling for
// that type.
type Throttle struct {
	MultipleFacesSeconds    int `yaml:"multiple_faces_seconds"`
	GazeAwaySeconds         int `yaml:"gaze_away_seconds"`
	AudioSpikeSeconds       int `yaml:"audio_spike_seconds"`
	BackgroundSpeechSeconds int `yaml:"background_speech_seconds"`
	SilenceSeconds          int `yaml:"silence_seconds"`
}

// Paths locates data the server reads and writes.
type Paths struct {
	Archive string `yaml:"archive"`
	Topics  string `yaml:"topics"`
}

type Root struct {
	Server    Server    `yaml:"server"`
	LLM       LLM       `yaml:"llm"`
	Interview Interview `yaml:"interview"`
	Audio     Audio     `yaml:"audio"`
	Video     Video     `yaml:"video"`
	Throttle  Throttle  `yaml:"throttle"`
	Paths     Paths     `yaml:"paths"`
	LogLevel  string    `yaml:"log_level"`
}

// Default returns the configuration the server runs with when no file and
// no environment overrides are present.
func Default() *Root {
	return &Root{
		Server: Server{Host: "0.0.0.0", Port: 8080},
		LLM:    LLM{URL: "http://localhost:8000", TimeoutSeconds: 60},
		Interview: Interview{
			MaxFollowUps:    2,
			DefaultDuration: 45,
		},
		Audio: Audio{
			VoiceThreshold:  0.02,
			SilenceSeconds:  30,
			SpikeMultiplier: 3,
			SpikeFloor:      0.15,
			SpeechVolume:    0.05,
			SpeechVariance:  0.001,
			HistorySize:     50,
			SpikeWindow:     10,
			VarianceWindow:  20,
		},
		Video: Video{GazeScale: 10, GazeLimit: 0.3},
		Throttle: Throttle{
			MultipleFacesSeconds:    5,
			GazeAwaySeconds:         10,
			AudioSpikeSeconds:       5,
			BackgroundSpeechSeconds: 10,
			SilenceSeconds:          30,
		},
		Paths:    Paths{Archive: "archives", Topics: "config/topics.yaml"},
		LogLevel: "info",
	}
}

// Load reads the config file at path (or searches config/ and the working
// directory when path is empty) and applies SENTINEL_* environment
// overrides on top of the defaults. A missing file is only an error when
// an explicit path was given.
func Load(path string) (*Root, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sentinel")
		v.AddConfigPath("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Deployment knobs overridable from the environment. Viper only maps
	// env vars for keys it already knows about.
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("llm.url", "http://localhost:8000")
	v.SetDefault("llm.timeout_seconds", 60)
	v.SetDefault("paths.archive", "archives")
	v.SetDefault("paths.topics", "config/topics.yaml")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, err
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return nil, err
	}
	return cfg, nil
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
