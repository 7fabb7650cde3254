// Package config loads the appliance settings from viper into typed structs.
package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/xenogenesi/jcblock/internal/pkg/audio"
	"github.com/xenogenesi/jcblock/internal/pkg/constants"
	"github.com/xenogenesi/jcblock/internal/pkg/liststore"
	"github.com/xenogenesi/jcblock/internal/pkg/modem"
	"github.com/xenogenesi/jcblock/internal/pkg/session"
	"github.com/xenogenesi/jcblock/internal/pkg/tones"
	"github.com/xenogenesi/jcblock/internal/pkg/truncate"
)

var configOnce sync.Once

// Tone capture sources
const (
	SourceArecord = "arecord"
	SourceFile    = "file"
)

// Config holds every configurable setting
type Config struct {
	Modem    ModemConfig    `mapstructure:"modem" json:"modem" yaml:"modem"`
	Files    FilesConfig    `mapstructure:"files" json:"files" yaml:"files"`
	Record   RecordConfig   `mapstructure:"record" json:"record" yaml:"record"`
	Tones    ToneConfig     `mapstructure:"tones" json:"tones" yaml:"tones"`
	Rings    RingConfig     `mapstructure:"rings" json:"rings" yaml:"rings"`
	Truncate TruncateConfig `mapstructure:"truncate" json:"truncate" yaml:"truncate"`
	Metrics  MetricsConfig  `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
	Log      LogConfig      `mapstructure:"log" json:"log" yaml:"log"`
}

type ModemConfig struct {
	Port            string        `mapstructure:"port" json:"port" yaml:"port"`
	Profile         string        `mapstructure:"profile" json:"profile" yaml:"profile"`
	CallerIDCommand string        `mapstructure:"callerid_command" json:"callerid_command" yaml:"callerid_command"`
	ResetCommand    string        `mapstructure:"reset_command" json:"reset_command" yaml:"reset_command"`
	AckAttempts     int           `mapstructure:"ack_attempts" json:"ack_attempts" yaml:"ack_attempts"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout"`
	BlockedPoll     time.Duration `mapstructure:"blocked_poll" json:"blocked_poll" yaml:"blocked_poll"`
}

type FilesConfig struct {
	Whitelist string `mapstructure:"whitelist" json:"whitelist" yaml:"whitelist"`
	Blacklist string `mapstructure:"blacklist" json:"blacklist" yaml:"blacklist"`
	CallLog   string `mapstructure:"calllog" json:"calllog" yaml:"calllog"`
}

// RecordConfig is the list file layout. Markers are single characters.
type RecordConfig struct {
	Terminator          string   `mapstructure:"terminator" json:"terminator" yaml:"terminator"`
	Comment             string   `mapstructure:"comment" json:"comment" yaml:"comment"`
	MaxTerminatorColumn int      `mapstructure:"max_terminator_column" json:"max_terminator_column" yaml:"max_terminator_column"`
	DateOffset          int      `mapstructure:"date_offset" json:"date_offset" yaml:"date_offset"`
	DateWidth           int      `mapstructure:"date_width" json:"date_width" yaml:"date_width"`
	TagOffset           int      `mapstructure:"tag_offset" json:"tag_offset" yaml:"tag_offset"`
	KeyEntryTag         string   `mapstructure:"key_entry_tag" json:"key_entry_tag" yaml:"key_entry_tag"`
	GenericNames        []string `mapstructure:"generic_names" json:"generic_names" yaml:"generic_names"`
}

type ToneConfig struct {
	Enabled       bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Policy        string        `mapstructure:"policy" json:"policy" yaml:"policy"`
	LowHz         float64       `mapstructure:"low_hz" json:"low_hz" yaml:"low_hz"`
	LowN          int           `mapstructure:"low_n" json:"low_n" yaml:"low_n"`
	HighHz        float64       `mapstructure:"high_hz" json:"high_hz" yaml:"high_hz"`
	HighN         int           `mapstructure:"high_n" json:"high_n" yaml:"high_n"`
	Threshold     float64       `mapstructure:"threshold" json:"threshold" yaml:"threshold"`
	MinRun        int           `mapstructure:"min_run" json:"min_run" yaml:"min_run"`
	BeepRun       int           `mapstructure:"beep_run" json:"beep_run" yaml:"beep_run"`
	AverageBlocks int           `mapstructure:"average_blocks" json:"average_blocks" yaml:"average_blocks"`
	Window        time.Duration `mapstructure:"window" json:"window" yaml:"window"`
	Frames        int           `mapstructure:"frames" json:"frames" yaml:"frames"`
	Source        string        `mapstructure:"source" json:"source" yaml:"source"`
	Device        string        `mapstructure:"device" json:"device" yaml:"device"`
	File          string        `mapstructure:"file" json:"file" yaml:"file"`
}

type RingConfig struct {
	Quiet        time.Duration `mapstructure:"quiet" json:"quiet" yaml:"quiet"`
	PollInterval time.Duration `mapstructure:"poll_interval" json:"poll_interval" yaml:"poll_interval"`
	Gate         string        `mapstructure:"gate" json:"gate" yaml:"gate"`
	Required     int           `mapstructure:"required" json:"required" yaml:"required"`
	CueClicks    int           `mapstructure:"cue_clicks" json:"cue_clicks" yaml:"cue_clicks"`
}

type TruncateConfig struct {
	Enabled  bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Interval time.Duration `mapstructure:"interval" json:"interval" yaml:"interval"`
	MaxAge   time.Duration `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
	Stamp    string        `mapstructure:"stamp" json:"stamp" yaml:"stamp"`
}

// MetricsConfig controls the Prometheus endpoint. Off by default.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" json:"listen" yaml:"listen"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

// initConfigDefaults initializes viper defaults once
func initConfigDefaults() {
	layout := liststore.DefaultLayout()

	viper.SetDefault("modem.port", "/dev/ttyS0")
	viper.SetDefault("modem.profile", modem.ProfileHook)
	viper.SetDefault("modem.callerid_command", modem.CmdCallerID)
	viper.SetDefault("modem.reset_command", modem.CmdReset)
	viper.SetDefault("modem.ack_attempts", constants.AckAttempts)
	viper.SetDefault("modem.read_timeout", constants.InterCharacterGap)
	viper.SetDefault("modem.blocked_poll", constants.BlockedReadPoll)

	viper.SetDefault("files.whitelist", "./whitelist.dat")
	viper.SetDefault("files.blacklist", "./blacklist.dat")
	viper.SetDefault("files.calllog", "./callerID.dat")

	viper.SetDefault("record.terminator", string(layout.Terminator))
	viper.SetDefault("record.comment", string(layout.Comment))
	viper.SetDefault("record.max_terminator_column", layout.MaxTerminatorColumn)
	viper.SetDefault("record.date_offset", layout.DateOffset)
	viper.SetDefault("record.date_width", layout.DateWidth)
	viper.SetDefault("record.tag_offset", layout.TagOffset)
	viper.SetDefault("record.key_entry_tag", liststore.KeyEntryTag)
	viper.SetDefault("record.generic_names", liststore.DefaultGenericNames)

	viper.SetDefault("tones.enabled", true)
	viper.SetDefault("tones.policy", tones.PolicyCombined)
	viper.SetDefault("tones.low_hz", 941.0)
	viper.SetDefault("tones.low_n", 528)
	viper.SetDefault("tones.high_hz", 1209.0)
	viper.SetDefault("tones.high_n", 410)
	viper.SetDefault("tones.threshold", 0.5)
	viper.SetDefault("tones.min_run", 10)
	viper.SetDefault("tones.beep_run", 2)
	viper.SetDefault("tones.average_blocks", 10)
	viper.SetDefault("tones.window", constants.AuthorizationWindow)
	viper.SetDefault("tones.frames", constants.FramesPerRead)
	viper.SetDefault("tones.source", SourceArecord)
	viper.SetDefault("tones.device", "default")
	viper.SetDefault("tones.file", "")

	viper.SetDefault("rings.quiet", constants.RingQuietInterval)
	viper.SetDefault("rings.poll_interval", constants.RingPollInterval)
	viper.SetDefault("rings.gate", session.GateAnsweringMachine)
	viper.SetDefault("rings.required", constants.RingsBeforeWindow)
	viper.SetDefault("rings.cue_clicks", 3)

	viper.SetDefault("truncate.enabled", true)
	viper.SetDefault("truncate.interval", constants.TruncateInterval)
	viper.SetDefault("truncate.max_age", constants.TruncateMaxAge)
	viper.SetDefault("truncate.stamp", "./.jcblock-truncate")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", "127.0.0.1:9479")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// GetConfig returns the current configuration with defaults
func GetConfig() *Config {
	// Initialize defaults only once to prevent race conditions
	configOnce.Do(initConfigDefaults)

	return &Config{
		Modem: ModemConfig{
			Port:            viper.GetString("modem.port"),
			Profile:         viper.GetString("modem.profile"),
			CallerIDCommand: viper.GetString("modem.callerid_command"),
			ResetCommand:    viper.GetString("modem.reset_command"),
			AckAttempts:     viper.GetInt("modem.ack_attempts"),
			ReadTimeout:     viper.GetDuration("modem.read_timeout"),
			BlockedPoll:     viper.GetDuration("modem.blocked_poll"),
		},
		Files: FilesConfig{
			Whitelist: viper.GetString("files.whitelist"),
			Blacklist: viper.GetString("files.blacklist"),
			CallLog:   viper.GetString("files.calllog"),
		},
		Record: RecordConfig{
			Terminator:          viper.GetString("record.terminator"),
			Comment:             viper.GetString("record.comment"),
			MaxTerminatorColumn: viper.GetInt("record.max_terminator_column"),
			DateOffset:          viper.GetInt("record.date_offset"),
			DateWidth:           viper.GetInt("record.date_width"),
			TagOffset:           viper.GetInt("record.tag_offset"),
			KeyEntryTag:         viper.GetString("record.key_entry_tag"),
			GenericNames:        viper.GetStringSlice("record.generic_names"),
		},
		Tones: ToneConfig{
			Enabled:       viper.GetBool("tones.enabled"),
			Policy:        viper.GetString("tones.policy"),
			LowHz:         viper.GetFloat64("tones.low_hz"),
			LowN:          viper.GetInt("tones.low_n"),
			HighHz:        viper.GetFloat64("tones.high_hz"),
			HighN:         viper.GetInt("tones.high_n"),
			Threshold:     viper.GetFloat64("tones.threshold"),
			MinRun:        viper.GetInt("tones.min_run"),
			BeepRun:       viper.GetInt("tones.beep_run"),
			AverageBlocks: viper.GetInt("tones.average_blocks"),
			Window:        viper.GetDuration("tones.window"),
			Frames:        viper.GetInt("tones.frames"),
			Source:        viper.GetString("tones.source"),
			Device:        viper.GetString("tones.device"),
			File:          viper.GetString("tones.file"),
		},
		Rings: RingConfig{
			Quiet:        viper.GetDuration("rings.quiet"),
			PollInterval: viper.GetDuration("rings.poll_interval"),
			Gate:         viper.GetString("rings.gate"),
			Required:     viper.GetInt("rings.required"),
			CueClicks:    viper.GetInt("rings.cue_clicks"),
		},
		Truncate: TruncateConfig{
			Enabled:  viper.GetBool("truncate.enabled"),
			Interval: viper.GetDuration("truncate.interval"),
			MaxAge:   viper.GetDuration("truncate.max_age"),
			Stamp:    viper.GetString("truncate.stamp"),
		},
		Metrics: MetricsConfig{
			Enabled: viper.GetBool("metrics.enabled"),
			Listen:  viper.GetString("metrics.listen"),
		},
		Log: LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
	}
}

// Validate checks settings that would otherwise fail deep inside a call.
func (c *Config) Validate() error {
	var errs []error
	if c.Modem.Port == "" {
		errs = append(errs, errors.New("modem.port is required"))
	}
	if _, err := modem.NewTerminator(c.Modem.Profile); err != nil {
		errs = append(errs, err)
	}
	if c.Files.Blacklist == "" {
		errs = append(errs, errors.New("files.blacklist is required"))
	}
	if _, err := c.Layout(); err != nil {
		errs = append(errs, err)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, errors.New("metrics.listen is required when metrics are enabled"))
	}
	if c.Tones.Enabled {
		if _, err := tones.NewPolicy(c.Tones.Policy, c.PolicyConfig()); err != nil {
			errs = append(errs, err)
		}
		if c.Tones.LowN < 1 || c.Tones.HighN < 1 {
			errs = append(errs, fmt.Errorf("tones.low_n and tones.high_n must be positive, got %d and %d", c.Tones.LowN, c.Tones.HighN))
		}
		if c.Tones.Frames < 1 {
			errs = append(errs, fmt.Errorf("tones.frames must be positive, got %d", c.Tones.Frames))
		}
		if c.Tones.Threshold <= 0 {
			errs = append(errs, fmt.Errorf("tones.threshold must be positive, got %v", c.Tones.Threshold))
		}
		switch c.Tones.Source {
		case SourceArecord:
		case SourceFile:
			if c.Tones.File == "" {
				errs = append(errs, errors.New("tones.file is required with the file source"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown tones.source %q", c.Tones.Source))
		}
		if _, err := session.NewRingGate(c.Rings.Gate, c.Rings.Required); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Layout converts the record settings into a list layout.
func (c *Config) Layout() (liststore.Layout, error) {
	r := c.Record
	if len(r.Terminator) != 1 {
		return liststore.Layout{}, fmt.Errorf("record.terminator must be one character, got %q", r.Terminator)
	}
	if len(r.Comment) != 1 {
		return liststore.Layout{}, fmt.Errorf("record.comment must be one character, got %q", r.Comment)
	}
	l := liststore.Layout{
		Terminator:          r.Terminator[0],
		Comment:             r.Comment[0],
		MaxTerminatorColumn: r.MaxTerminatorColumn,
		DateOffset:          r.DateOffset,
		DateWidth:           r.DateWidth,
		TagOffset:           r.TagOffset,
	}
	return l, l.Validate()
}

// AppendOptions returns how operator-authorized entries are written.
func (c *Config) AppendOptions() liststore.AppendOptions {
	return liststore.AppendOptions{
		Tag:          c.Record.KeyEntryTag,
		GenericNames: c.Record.GenericNames,
	}
}

// ModemOptions returns the command set and handshake budget.
func (c *Config) ModemOptions() modem.Options {
	opts := modem.DefaultOptions()
	opts.ResetCommand = c.Modem.ResetCommand
	opts.CallerIDCommand = c.Modem.CallerIDCommand
	opts.AckAttempts = c.Modem.AckAttempts
	return opts
}

// PolicyConfig returns the tone policy tuning.
func (c *Config) PolicyConfig() tones.PolicyConfig {
	return tones.PolicyConfig{
		MinRun:        c.Tones.MinRun,
		BeepRun:       c.Tones.BeepRun,
		AverageBlocks: c.Tones.AverageBlocks,
		Threshold:     c.Tones.Threshold,
	}
}

// DetectorConfig returns the tone detector settings.
func (c *Config) DetectorConfig() tones.Config {
	return tones.Config{
		LowHz:        c.Tones.LowHz,
		LowN:         c.Tones.LowN,
		HighHz:       c.Tones.HighHz,
		HighN:        c.Tones.HighN,
		SampleRate:   constants.SampleRate,
		Threshold:    c.Tones.Threshold,
		Frames:       c.Tones.Frames,
		Policy:       c.Tones.Policy,
		PolicyConfig: c.PolicyConfig(),
	}
}

// Timing returns the call-cycle durations.
func (c *Config) Timing() session.Timing {
	t := session.DefaultTiming()
	t.RingQuiet = c.Rings.Quiet
	t.RingPoll = c.Rings.PollInterval
	t.Window = c.Tones.Window
	t.CueClicks = c.Rings.CueClicks
	return t
}

// AudioOpener returns a function opening the configured tone capture source.
func (c *Config) AudioOpener() func() (audio.Source, error) {
	switch c.Tones.Source {
	case SourceFile:
		path := c.Tones.File
		return func() (audio.Source, error) {
			return audio.Open(path, constants.SampleRate)
		}
	default:
		device := c.Tones.Device
		return func() (audio.Source, error) {
			src, err := audio.StartArecord(device, constants.SampleRate)
			if err != nil {
				return nil, fmt.Errorf("capture device %s: %w", device, err)
			}
			return src, nil
		}
	}
}

// Truncation returns the record truncation job for the configured files.
func (c *Config) Truncation() (*truncate.Service, error) {
	layout, err := c.Layout()
	if err != nil {
		return nil, err
	}
	svc := truncate.New(c.Truncate.Stamp, c.Files.CallLog, c.Files.Blacklist, layout)
	svc.Interval = c.Truncate.Interval
	svc.MaxAge = c.Truncate.MaxAge
	return svc, nil
}
