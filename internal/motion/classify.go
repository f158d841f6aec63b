package motion

import (
	"fmt"

	"github.com/halcyard/motiongate/internal/config"
)

// Movement is the classified locomotion state of the tracked character.
type Movement string

const (
	MovementIdle            Movement = "idle"
	MovementWalk            Movement = "walk"
	MovementRunForward      Movement = "run_forward"
	MovementStrafe          Movement = "strafe"
	MovementBackpedal       Movement = "backpedal"
	MovementGlideForward    Movement = "glide_forward"
	MovementGlideNeutral    Movement = "glide_neutral"
	MovementGlideBack       Movement = "glide_back"
	MovementFalling         Movement = "falling"
	MovementFallingTerminal Movement = "falling_terminal"
	// MovementOther is the fallback for samples no band claims; the temporal
	// layer actively suppresses it.
	MovementOther Movement = "other"
)

// Glide reports whether m is one of the three glide variants.
func (m Movement) Glide() bool {
	return m == MovementGlideForward || m == MovementGlideNeutral || m == MovementGlideBack
}

// Falling reports whether m is one of the two falling variants.
func (m Movement) Falling() bool {
	return m == MovementFalling || m == MovementFallingTerminal
}

// Airborne reports whether m places the character off the ground.
func (m Movement) Airborne() bool {
	return m.Glide() || m.Falling()
}

// ClassifierConfig is the band table for the instant classifier. The
// reference speeds are empirically measured, differ between in-combat and
// out-of-combat movement, and drift with game balance patches, so they are
// configuration rather than constants. All speeds are game units per second.
type ClassifierConfig struct {
	// Idle detection
	IdleMaxHorizontal float32 // default 10
	IdleMaxVertical   float32 // default 5

	// Facing-relative projection
	FacingDotCutoff     float32 // |cos| boundary between forward/strafe/back (default 0.35)
	FacingMinHorizontal float32 // projection needs this much horizontal speed (default 30)

	// Glide envelope and reference bands
	GlideVzMin         float32 // descent envelope lower edge, |vz| (default 80)
	GlideVzMax         float32 // descent envelope upper edge, |vz| (default 150)
	GlideBandTolerance float32 // horizontal distance to a reference band (default 18)
	GlideBackSpeed     float32 // default 80
	GlideNeutralSpeed  float32 // default 294
	GlideForwardSpeed  float32 // default 390

	// Falling detection
	FallDominanceRatio float32 // |vz| must exceed ratio*(h+1) (default 1.35)
	FallGlideMargin    float32 // descent beyond GlideVzMax+margin is a fall (default 20)
	TerminalVz         float32 // |vz| at terminal velocity (default 900)

	// Ground movement reference bands
	WalkSpeed          float32 // matched against 3D magnitude (default 80)
	WalkTolerance      float32 // default 20
	BackpedalSpeed     float32 // default 105
	BackpedalTolerance float32 // default 24
	StrafeSpeed        float32 // default 180
	StrafeTolerance    float32 // default 28
	RunForwardSpeed    float32 // out of combat (default 294)
	RunCombatSpeed     float32 // in combat (default 210)
	RunTolerance       float32 // default 50
	RunForwardFloor    float32 // forward-facing fallback floor (default 150)
	GroundMaxVz        float32 // default 180
	GroundVzRatio      float32 // default 0.9
}

// DefaultClassifierConfig returns a ClassifierConfig loaded from the
// canonical tuning defaults file. Panics if the file cannot be found.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfigFromTuning(config.MustLoadDefaultConfig())
}

// ClassifierConfigFromTuning builds a ClassifierConfig from a loaded TuningConfig.
func ClassifierConfigFromTuning(cfg *config.TuningConfig) ClassifierConfig {
	return ClassifierConfig{
		IdleMaxHorizontal: float32(cfg.GetIdleMaxHorizontal()),
		IdleMaxVertical:   float32(cfg.GetIdleMaxVertical()),

		FacingDotCutoff:     float32(cfg.GetFacingDotCutoff()),
		FacingMinHorizontal: float32(cfg.GetFacingMinHorizontal()),

		GlideVzMin:         float32(cfg.GetGlideVzMin()),
		GlideVzMax:         float32(cfg.GetGlideVzMax()),
		GlideBandTolerance: float32(cfg.GetGlideBandTolerance()),
		GlideBackSpeed:     float32(cfg.GetGlideBackSpeed()),
		GlideNeutralSpeed:  float32(cfg.GetGlideNeutralSpeed()),
		GlideForwardSpeed:  float32(cfg.GetGlideForwardSpeed()),

		FallDominanceRatio: float32(cfg.GetFallDominanceRatio()),
		FallGlideMargin:    float32(cfg.GetFallGlideMargin()),
		TerminalVz:         float32(cfg.GetTerminalVz()),

		WalkSpeed:          float32(cfg.GetWalkSpeed()),
		WalkTolerance:      float32(cfg.GetWalkTolerance()),
		BackpedalSpeed:     float32(cfg.GetBackpedalSpeed()),
		BackpedalTolerance: float32(cfg.GetBackpedalTolerance()),
		StrafeSpeed:        float32(cfg.GetStrafeSpeed()),
		StrafeTolerance:    float32(cfg.GetStrafeTolerance()),
		RunForwardSpeed:    float32(cfg.GetRunForwardSpeed()),
		RunCombatSpeed:     float32(cfg.GetRunCombatSpeed()),
		RunTolerance:       float32(cfg.GetRunTolerance()),
		RunForwardFloor:    float32(cfg.GetRunForwardFloor()),
		GroundMaxVz:        float32(cfg.GetGroundMaxVz()),
		GroundVzRatio:      float32(cfg.GetGroundVzRatio()),
	}
}

// Validate checks if the configuration is valid.
func (c ClassifierConfig) Validate() error {
	if c.IdleMaxHorizontal <= 0 {
		return fmt.Errorf("IdleMaxHorizontal must be positive, got %f", c.IdleMaxHorizontal)
	}
	if c.FacingDotCutoff <= 0 || c.FacingDotCutoff >= 1 {
		return fmt.Errorf("FacingDotCutoff must be in (0, 1), got %f", c.FacingDotCutoff)
	}
	if c.GlideVzMin >= c.GlideVzMax {
		return fmt.Errorf("GlideVzMin (%f) must be below GlideVzMax (%f)", c.GlideVzMin, c.GlideVzMax)
	}
	if c.GlideBandTolerance <= 0 {
		return fmt.Errorf("GlideBandTolerance must be positive, got %f", c.GlideBandTolerance)
	}
	if c.FallDominanceRatio <= 0 {
		return fmt.Errorf("FallDominanceRatio must be positive, got %f", c.FallDominanceRatio)
	}
	if c.TerminalVz <= c.GlideVzMax {
		return fmt.Errorf("TerminalVz (%f) must exceed GlideVzMax (%f)", c.TerminalVz, c.GlideVzMax)
	}
	if c.GroundVzRatio <= 0 || c.GroundVzRatio > 1 {
		return fmt.Errorf("GroundVzRatio must be in (0, 1], got %f", c.GroundVzRatio)
	}
	return nil
}

// Classifier maps single velocity snapshots to Movement labels. It is pure
// and stateless apart from its band table; the same Classifier instance
// serves both the per-sample vote and the averaged-sample classification.
type Classifier struct {
	cfg ClassifierConfig
}

// NewClassifier creates a Classifier with the given band table.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// SnapGlide returns the glide variant whose reference speed is nearest to
// the horizontal speed h, ignoring tolerances.
func (c *Classifier) SnapGlide(h float32) Movement {
	best := MovementGlideBack
	bestDiff := abs32(h - c.cfg.GlideBackSpeed)
	if d := abs32(h - c.cfg.GlideNeutralSpeed); d < bestDiff {
		best = MovementGlideNeutral
		bestDiff = d
	}
	if d := abs32(h - c.cfg.GlideForwardSpeed); d < bestDiff {
		best = MovementGlideForward
	}
	return best
}

// Classify maps one Speed (plus an optional unit horizontal facing vector)
// to a Movement label. First match wins; a nil facing skips the projection
// step, leaving the forward component equal to the raw horizontal speed.
func (c *Classifier) Classify(sp Speed, facing *Vec2) Movement {
	h := sp.Horizontal
	vz := sp.VZ
	absVz := abs32(vz)

	if h < c.cfg.IdleMaxHorizontal && absVz < c.cfg.IdleMaxVertical {
		return MovementIdle
	}

	// Descent clearly beyond the glide envelope with vertical dominance is a
	// fall before anything else gets a say.
	if vz < -(c.cfg.GlideVzMax+c.cfg.FallGlideMargin) && absVz >= c.cfg.FallDominanceRatio*(h+1) {
		if absVz >= c.cfg.TerminalVz {
			return MovementFallingTerminal
		}
		return MovementFalling
	}

	forwardComp := h
	fwdLike := false
	backLike := false
	strafeLike := false

	if facing != nil && h > c.cfg.FacingMinHorizontal {
		dot := clamp32((sp.VX*facing.X+sp.VY*facing.Y)/h, -1, 1)
		forwardComp = h * dot
		fwdLike = dot >= c.cfg.FacingDotCutoff
		backLike = dot <= -c.cfg.FacingDotCutoff
		strafeLike = !fwdLike && !backLike
	}

	if vz < 0 && absVz >= c.cfg.GlideVzMin && absVz <= c.cfg.GlideVzMax {
		m := c.SnapGlide(h)
		var ref float32
		switch m {
		case MovementGlideBack:
			ref = c.cfg.GlideBackSpeed
		case MovementGlideNeutral:
			ref = c.cfg.GlideNeutralSpeed
		case MovementGlideForward:
			ref = c.cfg.GlideForwardSpeed
		}
		if abs32(h-ref) <= c.cfg.GlideBandTolerance {
			return m
		}
	}

	groundOK := absVz <= c.cfg.GroundMaxVz || absVz/(h+1) < c.cfg.GroundVzRatio
	if groundOK {
		// Walk matches on the 3D magnitude so slopes don't push a walking
		// character into Idle or Other.
		if abs32(sp.Magnitude-c.cfg.WalkSpeed) <= c.cfg.WalkTolerance {
			return MovementWalk
		}
		if backLike || abs32(h-c.cfg.BackpedalSpeed) <= c.cfg.BackpedalTolerance {
			return MovementBackpedal
		}
		if strafeLike || abs32(h-c.cfg.StrafeSpeed) <= c.cfg.StrafeTolerance {
			return MovementStrafe
		}
		for _, ref := range [2]float32{c.cfg.RunForwardSpeed, c.cfg.RunCombatSpeed} {
			if abs32(forwardComp-ref) <= c.cfg.RunTolerance {
				return MovementRunForward
			}
		}
		for _, ref := range [2]float32{c.cfg.RunForwardSpeed, c.cfg.RunCombatSpeed} {
			if abs32(h-ref) <= c.cfg.RunTolerance {
				return MovementRunForward
			}
		}
		if fwdLike && h > c.cfg.RunForwardFloor {
			return MovementRunForward
		}
	}

	return MovementOther
}
