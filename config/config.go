// Package config decodes TOML scenario files into the simulator's two
// configuration structs (spec §6) and parses the Rollercoaster
// dash-separated strategy name grammar.
//
// Grounded on katzenpost-client/config/config.go's decoded-struct-from-file
// idiom; this module uses the teacher's own direct dependency,
// github.com/BurntSushi/toml, in place of that file's pelletier/go-toml.
package config

import (
	"regexp"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	rcerrors "github.com/rollercoaster-sim/loopix/errors"
)

// LoopixConfig carries the Loopix rate parameters of spec §6. All rates are
// expected events per second.
type LoopixConfig struct {
	UserRatePull      float64 `toml:"user_rate_pull"`
	UserRatePayload   float64 `toml:"user_rate_payload"`
	UserRateDrop      float64 `toml:"user_rate_drop"`
	UserRateLoop      float64 `toml:"user_rate_loop"`
	UserRateDelay     float64 `toml:"user_rate_delay"`
	MixRateLoop       float64 `toml:"mix_rate_loop"`
	MixRateLoopDelay  float64 `toml:"mix_rate_loop_delay"`
}

// DefaultLoopixConfig mirrors the original's LoopixConfiguration() defaults.
func DefaultLoopixConfig() LoopixConfig {
	return LoopixConfig{
		UserRatePull:     1,
		UserRatePayload:  2,
		UserRateDrop:     2,
		UserRateLoop:     2,
		UserRateDelay:    3,
		MixRateLoop:      2,
		MixRateLoopDelay: 3,
	}
}

// Validate warns (but does not error) when the lambda/mu >= 2 rule of thumb
// is violated, matching the original's printed warning exactly in spirit
// (spec §6 / SPEC_FULL supplemented feature 1).
func (c LoopixConfig) Validate(logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	if c.UserRatePayload+c.UserRateDrop+c.UserRateLoop < 2*c.UserRateDelay {
		logger.Warn("insecure configuration: user_rate_payload + user_rate_drop + user_rate_loop should be >= 2 * user_rate_delay")
	}
}

// LoadLoopixConfig decodes a LoopixConfig from a TOML file, overlaying onto
// DefaultLoopixConfig() so a scenario file may specify only the fields it
// wants to override.
func LoadLoopixConfig(path string) (LoopixConfig, error) {
	cfg := DefaultLoopixConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return LoopixConfig{}, rcerrors.NewConfigError("decoding loopix config %q: %w", path, err)
	}
	return cfg, nil
}

// RollercoasterConfig carries the Rollercoaster strategy parameters of spec
// §6, as parsed from a dash-separated strategy name.
type RollercoasterConfig struct {
	K                int
	P                int
	TimeoutMultiplier float64
	TimeoutsActive    bool
	DropOffline       bool
}

var strategyNameRE = regexp.MustCompile(
	`^rollercoaster-k(\d+)-p(\d+)(?:-timeout(\d{2})x|(-notimeout))?(-dropoffline)?$`,
)

// ParseStrategyName parses a name of the form
// `rollercoaster-k<K>-p<P>[-timeout<NN>x|-notimeout][-dropoffline]` where
// <NN> is exactly two digits scaled by 1/10 (spec §6).
func ParseStrategyName(name string) (RollercoasterConfig, error) {
	m := strategyNameRE.FindStringSubmatch(name)
	if m == nil {
		return RollercoasterConfig{}, rcerrors.NewConfigError("unrecognized strategy name %q", name)
	}

	k, err := strconv.Atoi(m[1])
	if err != nil {
		return RollercoasterConfig{}, rcerrors.NewConfigError("strategy name %q: bad k: %w", name, err)
	}
	p, err := strconv.Atoi(m[2])
	if err != nil {
		return RollercoasterConfig{}, rcerrors.NewConfigError("strategy name %q: bad p: %w", name, err)
	}

	cfg := RollercoasterConfig{
		K:                 k,
		P:                 p,
		TimeoutMultiplier: 1.5,
		TimeoutsActive:    true,
		DropOffline:       m[5] != "",
	}

	switch {
	case m[3] != "":
		nn, err := strconv.Atoi(m[3])
		if err != nil {
			return RollercoasterConfig{}, rcerrors.NewConfigError("strategy name %q: bad timeout digits: %w", name, err)
		}
		cfg.TimeoutMultiplier = float64(nn) / 10.0
	case m[4] != "":
		cfg.TimeoutsActive = false
	}

	return cfg, nil
}
