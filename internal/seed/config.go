// Package seed generates synthetic assessment traffic against a running
// trainerscope service and renders what the service made of it.
package seed

import (
	"runtime"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL  = "http://localhost:9080"
	DefaultTrainers = 20
	DefaultManagers = 5
	DefaultDays     = 90
	DefaultCount    = 500
	DefaultTimeout  = 10 * time.Second
	DefaultTop      = 10
)

// Config holds the knobs of a seeding run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Trainers int           // Distinct trainers to assess
	Managers int           // Distinct managers giving assessments
	Days     int           // Assessment dates are spread over this many days before Now
	Count    int           // Number of assessments to generate
	Seed     uint64        // Seed of the generator; equal seeds give equal traffic
	Workers  int           // Concurrent submissions
	Timeout  time.Duration // HTTP request timeout
	Now      time.Time     // Latest assessment date; zero means today
}

// DefaultConfig returns a Config with defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		Trainers: DefaultTrainers,
		Managers: DefaultManagers,
		Days:     DefaultDays,
		Count:    DefaultCount,
		Seed:     1,
		Workers:  runtime.NumCPU() * 2,
		Timeout:  DefaultTimeout,
	}
}

// Validate reports the first unusable value.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return invalidConfig("base url must not be empty")
	case c.Trainers < 1:
		return invalidConfig("trainers must be positive")
	case c.Managers < 1:
		return invalidConfig("managers must be positive")
	case c.Days < 1:
		return invalidConfig("days must be positive")
	case c.Count < 0:
		return invalidConfig("count must not be negative")
	case c.Workers < 1:
		return invalidConfig("workers must be positive")
	}
	return nil
}

// Stats holds the outcome of a submission run.
type Stats struct {
	Generated int
	Accepted  int
	Duplicate int
	Failed    int
	Duration  time.Duration
}

// PerSecond is the submission throughput.
func (s Stats) PerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Accepted+s.Duplicate+s.Failed) / s.Duration.Seconds()
}
