package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the validated configuration object the engine consumes.
// Loaded from config/settings.yaml; every field has a working default so
// a missing file still yields a usable Settings.
type Settings struct {
	Sequence SequenceSettings `yaml:"sequence"`
	Sending  SendingSettings  `yaml:"sending"`
	Gmail    GmailSettings    `yaml:"gmail"`
	Worker   WorkerSettings   `yaml:"worker"`
}

type SequenceSettings struct {
	Email2DelayDays int `yaml:"email_2_delay_days"`
	Email3DelayDays int `yaml:"email_3_delay_days"`
}

type SendingSettings struct {
	DailyLimit      int `yaml:"daily_limit"`
	MinDelaySeconds int `yaml:"min_delay_seconds"`
	MaxDelaySeconds int `yaml:"max_delay_seconds"`
}

type GmailSettings struct {
	FromName string `yaml:"from_name"`
}

type WorkerSettings struct {
	CycleIntervalMinutes int `yaml:"cycle_interval_minutes"`
}

func Default() Settings {
	return Settings{
		Sequence: SequenceSettings{
			Email2DelayDays: 3,
			Email3DelayDays: 4,
		},
		Sending: SendingSettings{
			DailyLimit:      50,
			MinDelaySeconds: 20,
			MaxDelaySeconds: 60,
		},
		Gmail: GmailSettings{
			FromName: "Chris",
		},
		Worker: WorkerSettings{
			CycleIntervalMinutes: 60,
		},
	}
}

// Load reads settings.yaml from configDir. A missing file returns the
// defaults; a malformed file is an error.
func Load(configDir string) (Settings, error) {
	s := Default()

	path := filepath.Join(configDir, "settings.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("erro ao ler settings.yaml: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("erro ao parsear settings.yaml: %w", err)
	}

	if err := s.Validate(); err != nil {
		return s, err
	}

	return s, nil
}

func (s Settings) Validate() error {
	if s.Sequence.Email2DelayDays < 0 || s.Sequence.Email3DelayDays < 0 {
		return fmt.Errorf("sequence delays não podem ser negativos")
	}
	if s.Sending.DailyLimit <= 0 {
		return fmt.Errorf("sending.daily_limit deve ser positivo")
	}
	if s.Sending.MinDelaySeconds < 0 {
		return fmt.Errorf("sending.min_delay_seconds não pode ser negativo")
	}
	if s.Sending.MaxDelaySeconds < s.Sending.MinDelaySeconds {
		return fmt.Errorf("sending.max_delay_seconds deve ser >= min_delay_seconds")
	}
	if s.Worker.CycleIntervalMinutes <= 0 {
		return fmt.Errorf("worker.cycle_interval_minutes deve ser positivo")
	}
	return nil
}

// Email2Delay is the wait between email 1 and email 2.
func (s Settings) Email2Delay() time.Duration {
	return time.Duration(s.Sequence.Email2DelayDays) * 24 * time.Hour
}

// Email3Delay is the wait between email 2 and email 3.
func (s Settings) Email3Delay() time.Duration {
	return time.Duration(s.Sequence.Email3DelayDays) * 24 * time.Hour
}

func (s Settings) MinDelay() time.Duration {
	return time.Duration(s.Sending.MinDelaySeconds) * time.Second
}

func (s Settings) MaxDelay() time.Duration {
	return time.Duration(s.Sending.MaxDelaySeconds) * time.Second
}

func (s Settings) CycleInterval() time.Duration {
	return time.Duration(s.Worker.CycleIntervalMinutes) * time.Minute
}
