package gate

// Policy is the per-action permission set an executor attaches to queued
// input: whether it may run in or out of combat, and whether it may run
// while gliding, falling or still inside the landing grace window.
type Policy struct {
	AllowInCombat    bool `json:"allow_in_combat"`
	AllowOutOfCombat bool `json:"allow_out_of_combat"`
	AllowAirborne    bool `json:"allow_airborne"`
}

// Verdict is the outcome of a gate decision. Reason names the first
// condition that blocked; it is empty when Allow is true.
type Verdict struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`
}

// Decide checks the snapshot against the policy. Combat state comes from
// the caller: it is read from a different region than motion and the gate
// has no business deriving it. Airborne and the landing grace share one
// allow flag, matching how queued input is actually held: an action that
// can't fire mid-glide can't fire during the landing animation either.
func (p Policy) Decide(snap Snapshot, inCombat bool) Verdict {
	if inCombat {
		if !p.AllowInCombat {
			return Verdict{Reason: "combat"}
		}
	} else if !p.AllowOutOfCombat {
		return Verdict{Reason: "out-of-combat"}
	}

	if !p.AllowAirborne {
		if snap.Airborne {
			return Verdict{Reason: "airborne"}
		}
		if snap.LandedRecently {
			return Verdict{Reason: "landing-grace"}
		}
	}

	return Verdict{Allow: true}
}
