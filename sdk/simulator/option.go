package simulator

import (
	"time"

	"go.uber.org/zap"
)

// Trigger describes a paywall the simulator can present
type Trigger struct {
	Name       string              `yaml:"name" json:"name"`
	Paywall    string              `yaml:"paywall" json:"paywall"`
	Products   []string            `yaml:"products" json:"products"`
	Hidden     bool                `yaml:"hidden" json:"hidden"`
	Experiment *ExperimentSettings `yaml:"experiment,omitempty" json:"experiment,omitempty"`
}

// ExperimentSettings enrolls a trigger into an experiment
type ExperimentSettings struct {
	Name    string `yaml:"name" json:"name"`
	Variant string `yaml:"variant" json:"variant"`
	Type    string `yaml:"type" json:"type"`
}

// Option configures a Simulator
type Option func(s *Simulator)

// WithTriggers registers presentable triggers
func WithTriggers(triggers ...Trigger) Option {
	return func(s *Simulator) {
		for i := range triggers {
			trigger := triggers[i]
			if trigger.Paywall == "" {
				trigger.Paywall = trigger.Name + "_paywall"
			}
			s.triggers[trigger.Name] = &trigger
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDownloadDelay delays the simulated config download, the download runs in the background when positive
func WithDownloadDelay(delay time.Duration) Option {
	return func(s *Simulator) {
		s.downloadDelay = delay
	}
}

// WithDownloadError makes the simulated config download fail
func WithDownloadError(message string) Option {
	return func(s *Simulator) {
		s.downloadError = message
	}
}

// WithEntitlements marks products as already owned
func WithEntitlements(products ...string) Option {
	return func(s *Simulator) {
		for _, product := range products {
			s.entitled[product] = true
		}
	}
}

// WithClock sets the time source
func WithClock(fn func() time.Time) Option {
	return func(s *Simulator) {
		if fn != nil {
			s.now = fn
		}
	}
}
