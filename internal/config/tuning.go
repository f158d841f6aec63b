package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for classification tuning
// parameters. Every threshold used by the estimator and the classifiers is
// declared here rather than inlined, because the reference speeds are
// empirically calibrated against live telemetry and drift between game
// balance patches. Speeds are in game units per second (u/s); durations are
// duration strings like "300ms".
type TuningConfig struct {
	// Velocity estimator params
	SmoothingAlpha  *float64 `json:"smoothing_alpha,omitempty"` // weight of the new observation
	MinStepInterval *string  `json:"min_step_interval,omitempty"`
	MaxStepInterval *string  `json:"max_step_interval,omitempty"`
	MaxStepMeters   *float64 `json:"max_step_meters,omitempty"` // teleport guard
	UnitsPerMeter   *float64 `json:"units_per_meter,omitempty"`
	ZeroEpsilon     *float64 `json:"zero_epsilon,omitempty"`

	// Idle detection
	IdleMaxHorizontal *float64 `json:"idle_max_horizontal,omitempty"`
	IdleMaxVertical   *float64 `json:"idle_max_vertical,omitempty"`

	// Facing-relative projection
	FacingDotCutoff     *float64 `json:"facing_dot_cutoff,omitempty"`
	FacingMinHorizontal *float64 `json:"facing_min_horizontal,omitempty"`

	// Glide envelope and reference bands
	GlideVzMin         *float64 `json:"glide_vz_min,omitempty"` // |vz| lower edge of descent envelope
	GlideVzMax         *float64 `json:"glide_vz_max,omitempty"`
	GlideBandTolerance *float64 `json:"glide_band_tolerance,omitempty"`
	GlideBackSpeed     *float64 `json:"glide_back_speed,omitempty"`
	GlideNeutralSpeed  *float64 `json:"glide_neutral_speed,omitempty"`
	GlideForwardSpeed  *float64 `json:"glide_forward_speed,omitempty"`

	// Falling detection
	FallDominanceRatio *float64 `json:"fall_dominance_ratio,omitempty"`
	FallGlideMargin    *float64 `json:"fall_glide_margin,omitempty"`
	TerminalVz         *float64 `json:"terminal_vz,omitempty"`

	// Ground movement reference bands
	WalkSpeed          *float64 `json:"walk_speed,omitempty"` // matched on 3D magnitude
	WalkTolerance      *float64 `json:"walk_tolerance,omitempty"`
	BackpedalSpeed     *float64 `json:"backpedal_speed,omitempty"`
	BackpedalTolerance *float64 `json:"backpedal_tolerance,omitempty"`
	StrafeSpeed        *float64 `json:"strafe_speed,omitempty"`
	StrafeTolerance    *float64 `json:"strafe_tolerance,omitempty"`
	RunForwardSpeed    *float64 `json:"run_forward_speed,omitempty"` // out of combat
	RunCombatSpeed     *float64 `json:"run_combat_speed,omitempty"`  // in combat
	RunTolerance       *float64 `json:"run_tolerance,omitempty"`
	RunForwardFloor    *float64 `json:"run_forward_floor,omitempty"`
	GroundMaxVz        *float64 `json:"ground_max_vz,omitempty"`
	GroundVzRatio      *float64 `json:"ground_vz_ratio,omitempty"`

	// Temporal classifier params
	Window         *string  `json:"window,omitempty"`
	VoteSamples    *int     `json:"vote_samples,omitempty"`
	FallAccelGate  *float64 `json:"fall_accel_gate,omitempty"` // u/s² over the window, negative
	FallAvgVz      *float64 `json:"fall_avg_vz,omitempty"`
	GlideLockVzMin *float64 `json:"glide_lock_vz_min,omitempty"`
	GlideLockVzMax *float64 `json:"glide_lock_vz_max,omitempty"`
	GlideLockDwell *string  `json:"glide_lock_dwell,omitempty"`
	DwellIn        *string  `json:"dwell_in,omitempty"`
	DwellOut       *string  `json:"dwell_out,omitempty"`

	// Runtime params
	LandingGrace *string `json:"landing_grace,omitempty"`
	PollInterval *string `json:"poll_interval,omitempty"`
	SampleStride *int    `json:"sample_stride,omitempty"` // recorder writes every Nth sample
	HistorySize  *int    `json:"history_size,omitempty"`  // monitor ring capacity
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated with
// its baseline value. The baseline matches config/tuning.defaults.json; the
// Get* accessors fall back to the same numbers when a field is nil, so the
// three places are kept in sync by TestDefaultTuningConfig.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		SmoothingAlpha:  ptrFloat64(0.35),
		MinStepInterval: ptrString("1ms"),
		MaxStepInterval: ptrString("500ms"),
		MaxStepMeters:   ptrFloat64(30.0),
		UnitsPerMeter:   ptrFloat64(39.37),
		ZeroEpsilon:     ptrFloat64(0.00001),

		IdleMaxHorizontal: ptrFloat64(10),
		IdleMaxVertical:   ptrFloat64(5),

		FacingDotCutoff:     ptrFloat64(0.35),
		FacingMinHorizontal: ptrFloat64(30),

		GlideVzMin:         ptrFloat64(80),
		GlideVzMax:         ptrFloat64(150),
		GlideBandTolerance: ptrFloat64(18),
		GlideBackSpeed:     ptrFloat64(80),
		GlideNeutralSpeed:  ptrFloat64(294),
		GlideForwardSpeed:  ptrFloat64(390),

		FallDominanceRatio: ptrFloat64(1.35),
		FallGlideMargin:    ptrFloat64(20),
		TerminalVz:         ptrFloat64(900),

		WalkSpeed:          ptrFloat64(80),
		WalkTolerance:      ptrFloat64(20),
		BackpedalSpeed:     ptrFloat64(105),
		BackpedalTolerance: ptrFloat64(24),
		StrafeSpeed:        ptrFloat64(180),
		StrafeTolerance:    ptrFloat64(28),
		RunForwardSpeed:    ptrFloat64(294),
		RunCombatSpeed:     ptrFloat64(210),
		RunTolerance:       ptrFloat64(50),
		RunForwardFloor:    ptrFloat64(150),
		GroundMaxVz:        ptrFloat64(180),
		GroundVzRatio:      ptrFloat64(0.9),

		Window:         ptrString("300ms"),
		VoteSamples:    ptrInt(5),
		FallAccelGate:  ptrFloat64(-350),
		FallAvgVz:      ptrFloat64(-80),
		GlideLockVzMin: ptrFloat64(60),
		GlideLockVzMax: ptrFloat64(170),
		GlideLockDwell: ptrString("180ms"),
		DwellIn:        ptrString("120ms"),
		DwellOut:       ptrString("160ms"),

		LandingGrace: ptrString("250ms"),
		PollInterval: ptrString("40ms"),
		SampleStride: ptrInt(5),
		HistorySize:  ptrInt(512),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/motion/ subpackages
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.SmoothingAlpha != nil {
		if *c.SmoothingAlpha <= 0 || *c.SmoothingAlpha > 1 {
			return fmt.Errorf("smoothing_alpha must be in (0, 1], got %f", *c.SmoothingAlpha)
		}
	}

	if c.MaxStepMeters != nil && *c.MaxStepMeters <= 0 {
		return fmt.Errorf("max_step_meters must be positive, got %f", *c.MaxStepMeters)
	}

	if c.UnitsPerMeter != nil && *c.UnitsPerMeter <= 0 {
		return fmt.Errorf("units_per_meter must be positive, got %f", *c.UnitsPerMeter)
	}

	if c.VoteSamples != nil && *c.VoteSamples < 1 {
		return fmt.Errorf("vote_samples must be at least 1, got %d", *c.VoteSamples)
	}

	if c.SampleStride != nil && *c.SampleStride < 1 {
		return fmt.Errorf("sample_stride must be at least 1, got %d", *c.SampleStride)
	}

	if c.HistorySize != nil && *c.HistorySize < 1 {
		return fmt.Errorf("history_size must be at least 1, got %d", *c.HistorySize)
	}

	if c.GlideVzMin != nil && c.GlideVzMax != nil && *c.GlideVzMin >= *c.GlideVzMax {
		return fmt.Errorf("glide_vz_min (%f) must be below glide_vz_max (%f)", *c.GlideVzMin, *c.GlideVzMax)
	}

	if c.FallAccelGate != nil && *c.FallAccelGate >= 0 {
		return fmt.Errorf("fall_accel_gate must be negative, got %f", *c.FallAccelGate)
	}

	// Validate every duration field parses if set
	durations := map[string]*string{
		"min_step_interval": c.MinStepInterval,
		"max_step_interval": c.MaxStepInterval,
		"window":            c.Window,
		"glide_lock_dwell":  c.GlideLockDwell,
		"dwell_in":          c.DwellIn,
		"dwell_out":         c.DwellOut,
		"landing_grace":     c.LandingGrace,
		"poll_interval":     c.PollInterval,
	}
	for name, v := range durations {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
		}
	}

	return nil
}

// durationOr parses s and returns it, or def when s is nil/empty/unparsable.
func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}

// GetSmoothingAlpha returns the smoothing_alpha value or the default.
// Alpha is the weight of the new observation; 1-alpha is retained.
func (c *TuningConfig) GetSmoothingAlpha() float64 {
	if c.SmoothingAlpha == nil {
		return 0.35
	}
	return *c.SmoothingAlpha
}

// GetMinStepInterval parses and returns the min_step_interval as a time.Duration.
func (c *TuningConfig) GetMinStepInterval() time.Duration {
	return durationOr(c.MinStepInterval, 1*time.Millisecond)
}

// GetMaxStepInterval parses and returns the max_step_interval as a time.Duration.
func (c *TuningConfig) GetMaxStepInterval() time.Duration {
	return durationOr(c.MaxStepInterval, 500*time.Millisecond)
}

// GetMaxStepMeters returns the max_step_meters value or the default.
func (c *TuningConfig) GetMaxStepMeters() float64 {
	if c.MaxStepMeters == nil {
		return 30.0
	}
	return *c.MaxStepMeters
}

// GetUnitsPerMeter returns the units_per_meter value or the default.
func (c *TuningConfig) GetUnitsPerMeter() float64 {
	if c.UnitsPerMeter == nil {
		return 39.37
	}
	return *c.UnitsPerMeter
}

// GetZeroEpsilon returns the zero_epsilon value or the default.
func (c *TuningConfig) GetZeroEpsilon() float64 {
	if c.ZeroEpsilon == nil {
		return 0.00001
	}
	return *c.ZeroEpsilon
}

// GetIdleMaxHorizontal returns the idle_max_horizontal value or the default.
func (c *TuningConfig) GetIdleMaxHorizontal() float64 {
	if c.IdleMaxHorizontal == nil {
		return 10
	}
	return *c.IdleMaxHorizontal
}

// GetIdleMaxVertical returns the idle_max_vertical value or the default.
func (c *TuningConfig) GetIdleMaxVertical() float64 {
	if c.IdleMaxVertical == nil {
		return 5
	}
	return *c.IdleMaxVertical
}

// GetFacingDotCutoff returns the facing_dot_cutoff value or the default.
func (c *TuningConfig) GetFacingDotCutoff() float64 {
	if c.FacingDotCutoff == nil {
		return 0.35
	}
	return *c.FacingDotCutoff
}

// GetFacingMinHorizontal returns the facing_min_horizontal value or the default.
func (c *TuningConfig) GetFacingMinHorizontal() float64 {
	if c.FacingMinHorizontal == nil {
		return 30
	}
	return *c.FacingMinHorizontal
}

// GetGlideVzMin returns the glide_vz_min value or the default.
func (c *TuningConfig) GetGlideVzMin() float64 {
	if c.GlideVzMin == nil {
		return 80
	}
	return *c.GlideVzMin
}

// GetGlideVzMax returns the glide_vz_max value or the default.
func (c *TuningConfig) GetGlideVzMax() float64 {
	if c.GlideVzMax == nil {
		return 150
	}
	return *c.GlideVzMax
}

// GetGlideBandTolerance returns the glide_band_tolerance value or the default.
func (c *TuningConfig) GetGlideBandTolerance() float64 {
	if c.GlideBandTolerance == nil {
		return 18
	}
	return *c.GlideBandTolerance
}

// GetGlideBackSpeed returns the glide_back_speed value or the default.
func (c *TuningConfig) GetGlideBackSpeed() float64 {
	if c.GlideBackSpeed == nil {
		return 80
	}
	return *c.GlideBackSpeed
}

// GetGlideNeutralSpeed returns the glide_neutral_speed value or the default.
func (c *TuningConfig) GetGlideNeutralSpeed() float64 {
	if c.GlideNeutralSpeed == nil {
		return 294
	}
	return *c.GlideNeutralSpeed
}

// GetGlideForwardSpeed returns the glide_forward_speed value or the default.
func (c *TuningConfig) GetGlideForwardSpeed() float64 {
	if c.GlideForwardSpeed == nil {
		return 390
	}
	return *c.GlideForwardSpeed
}

// GetFallDominanceRatio returns the fall_dominance_ratio value or the default.
func (c *TuningConfig) GetFallDominanceRatio() float64 {
	if c.FallDominanceRatio == nil {
		return 1.35
	}
	return *c.FallDominanceRatio
}

// GetFallGlideMargin returns the fall_glide_margin value or the default.
func (c *TuningConfig) GetFallGlideMargin() float64 {
	if c.FallGlideMargin == nil {
		return 20
	}
	return *c.FallGlideMargin
}

// GetTerminalVz returns the terminal_vz value or the default.
func (c *TuningConfig) GetTerminalVz() float64 {
	if c.TerminalVz == nil {
		return 900
	}
	return *c.TerminalVz
}

// GetWalkSpeed returns the walk_speed value or the default.
func (c *TuningConfig) GetWalkSpeed() float64 {
	if c.WalkSpeed == nil {
		return 80
	}
	return *c.WalkSpeed
}

// GetWalkTolerance returns the walk_tolerance value or the default.
func (c *TuningConfig) GetWalkTolerance() float64 {
	if c.WalkTolerance == nil {
		return 20
	}
	return *c.WalkTolerance
}

// GetBackpedalSpeed returns the backpedal_speed value or the default.
func (c *TuningConfig) GetBackpedalSpeed() float64 {
	if c.BackpedalSpeed == nil {
		return 105
	}
	return *c.BackpedalSpeed
}

// GetBackpedalTolerance returns the backpedal_tolerance value or the default.
func (c *TuningConfig) GetBackpedalTolerance() float64 {
	if c.BackpedalTolerance == nil {
		return 24
	}
	return *c.BackpedalTolerance
}

// GetStrafeSpeed returns the strafe_speed value or the default.
func (c *TuningConfig) GetStrafeSpeed() float64 {
	if c.StrafeSpeed == nil {
		return 180
	}
	return *c.StrafeSpeed
}

// GetStrafeTolerance returns the strafe_tolerance value or the default.
func (c *TuningConfig) GetStrafeTolerance() float64 {
	if c.StrafeTolerance == nil {
		return 28
	}
	return *c.StrafeTolerance
}

// GetRunForwardSpeed returns the run_forward_speed value or the default.
func (c *TuningConfig) GetRunForwardSpeed() float64 {
	if c.RunForwardSpeed == nil {
		return 294
	}
	return *c.RunForwardSpeed
}

// GetRunCombatSpeed returns the run_combat_speed value or the default.
func (c *TuningConfig) GetRunCombatSpeed() float64 {
	if c.RunCombatSpeed == nil {
		return 210
	}
	return *c.RunCombatSpeed
}

// GetRunTolerance returns the run_tolerance value or the default.
func (c *TuningConfig) GetRunTolerance() float64 {
	if c.RunTolerance == nil {
		return 50
	}
	return *c.RunTolerance
}

// GetRunForwardFloor returns the run_forward_floor value or the default.
func (c *TuningConfig) GetRunForwardFloor() float64 {
	if c.RunForwardFloor == nil {
		return 150
	}
	return *c.RunForwardFloor
}

// GetGroundMaxVz returns the ground_max_vz value or the default.
func (c *TuningConfig) GetGroundMaxVz() float64 {
	if c.GroundMaxVz == nil {
		return 180
	}
	return *c.GroundMaxVz
}

// GetGroundVzRatio returns the ground_vz_ratio value or the default.
func (c *TuningConfig) GetGroundVzRatio() float64 {
	if c.GroundVzRatio == nil {
		return 0.9
	}
	return *c.GroundVzRatio
}

// GetWindow parses and returns the averaging window as a time.Duration.
func (c *TuningConfig) GetWindow() time.Duration {
	return durationOr(c.Window, 300*time.Millisecond)
}

// GetVoteSamples returns the vote_samples value or the default.
func (c *TuningConfig) GetVoteSamples() int {
	if c.VoteSamples == nil {
		return 5
	}
	return *c.VoteSamples
}

// GetFallAccelGate returns the fall_accel_gate value or the default.
func (c *TuningConfig) GetFallAccelGate() float64 {
	if c.FallAccelGate == nil {
		return -350
	}
	return *c.FallAccelGate
}

// GetFallAvgVz returns the fall_avg_vz value or the default.
func (c *TuningConfig) GetFallAvgVz() float64 {
	if c.FallAvgVz == nil {
		return -80
	}
	return *c.FallAvgVz
}

// GetGlideLockVzMin returns the glide_lock_vz_min value or the default.
func (c *TuningConfig) GetGlideLockVzMin() float64 {
	if c.GlideLockVzMin == nil {
		return 60
	}
	return *c.GlideLockVzMin
}

// GetGlideLockVzMax returns the glide_lock_vz_max value or the default.
func (c *TuningConfig) GetGlideLockVzMax() float64 {
	if c.GlideLockVzMax == nil {
		return 170
	}
	return *c.GlideLockVzMax
}

// GetGlideLockDwell parses and returns the glide_lock_dwell as a time.Duration.
func (c *TuningConfig) GetGlideLockDwell() time.Duration {
	return durationOr(c.GlideLockDwell, 180*time.Millisecond)
}

// GetDwellIn parses and returns the dwell_in as a time.Duration.
func (c *TuningConfig) GetDwellIn() time.Duration {
	return durationOr(c.DwellIn, 120*time.Millisecond)
}

// GetDwellOut parses and returns the dwell_out as a time.Duration.
func (c *TuningConfig) GetDwellOut() time.Duration {
	return durationOr(c.DwellOut, 160*time.Millisecond)
}

// GetLandingGrace parses and returns the landing_grace as a time.Duration.
func (c *TuningConfig) GetLandingGrace() time.Duration {
	return durationOr(c.LandingGrace, 250*time.Millisecond)
}

// GetPollInterval parses and returns the poll_interval as a time.Duration.
func (c *TuningConfig) GetPollInterval() time.Duration {
	return durationOr(c.PollInterval, 40*time.Millisecond)
}

// GetSampleStride returns the sample_stride value or the default.
func (c *TuningConfig) GetSampleStride() int {
	if c.SampleStride == nil {
		return 5
	}
	return *c.SampleStride
}

// GetHistorySize returns the history_size value or the default.
func (c *TuningConfig) GetHistorySize() int {
	if c.HistorySize == nil {
		return 512
	}
	return *c.HistorySize
}
