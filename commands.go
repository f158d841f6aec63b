package main

import (
	"sort"

	"github.com/halcyard/motiongate/internal/gate"
)

// Define the built-in gate policies for named input actions. Each entry
// carries the execution flags the decide endpoint applies against the live
// snapshot: whether the action may fire in or out of combat, and whether it
// is safe while airborne or inside the landing grace window.
var actionPolicies = map[string]gate.Policy{
	// Combat skills: fine in combat, grounded only
	"dodge":       {AllowInCombat: true, AllowOutOfCombat: true},
	"weapon_swap": {AllowInCombat: true, AllowOutOfCombat: true},
	"heal":        {AllowInCombat: true, AllowOutOfCombat: true},
	"elite":       {AllowInCombat: true, AllowOutOfCombat: true},

	// Panic buttons: must also work mid-air
	"glider_deploy":      {AllowInCombat: true, AllowOutOfCombat: true, AllowAirborne: true},
	"emergency_waypoint": {AllowInCombat: true, AllowOutOfCombat: true, AllowAirborne: true},

	// Convenience actions: out of combat and grounded only
	"mount":         {AllowOutOfCombat: true},
	"emote":         {AllowOutOfCombat: true},
	"gather":        {AllowOutOfCombat: true},
	"template_swap": {AllowOutOfCombat: true},
	"novelty":       {AllowOutOfCombat: true},
}

// actionNames returns the policy table's keys in sorted order.
func actionNames() []string {
	names := make([]string, 0, len(actionPolicies))
	for name := range actionPolicies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
