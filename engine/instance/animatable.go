package instance

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/engine/expression"
)

// Animatable is the capability a host object implements to be animated.
type Animatable interface {
	// RegisterControllers attaches the object's controllers. Called once when the object is added.
	//
	// Parameters:
	//   - d: the object's animation state
	RegisterControllers(d Data)

	// BoneResetTime returns how many ticks an abandoned bone takes to relax back to rest.
	// Zero uses the processor's default.
	//
	// Returns:
	//   - float64: the reset duration in ticks
	BoneResetTime() float64
}

// QuerySource is implemented by objects that publish query values for expression keyframes.
// ApplyQueries runs before the object's controllers on every tick.
type QuerySource interface {
	ApplyQueries(ctx *expression.Context, seekTime float64)
}

// Role is a set of host-side traits an Animatable may carry.
type Role uint8

const (
	// RoleEntity marks a free-moving creature or actor.
	RoleEntity Role = 1 << iota
	// RoleBlock marks an object fixed in the world grid.
	RoleBlock
	// RoleItem marks a held or dropped item.
	RoleItem
)

// Has reports whether r includes every trait in other.
func (r Role) Has(other Role) bool {
	return r&other == other
}

func (r Role) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	if r.Has(RoleEntity) {
		parts = append(parts, "entity")
	}
	if r.Has(RoleBlock) {
		parts = append(parts, "block")
	}
	if r.Has(RoleItem) {
		parts = append(parts, "item")
	}
	return strings.Join(parts, "|")
}

// Roled is implemented by Animatables that declare their traits.
type Roled interface {
	Roles() Role
}

// RolesOf returns the traits a declares, or zero if it declares none.
//
// Parameters:
//   - a: the animatable
//
// Returns:
//   - Role: the declared traits
func RolesOf(a Animatable) Role {
	if r, ok := a.(Roled); ok {
		return r.Roles()
	}
	return 0
}
