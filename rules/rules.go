// Package rules implements the particle behavior rule catalogue and its
// WGSL codegen. Rules are a single tagged struct rather than dynamic
// dispatch: one `Kind` selects which fields are meaningful and which
// `To*WGSL` branch runs.
package rules

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

type Kind int

const (
	Gravity Kind = iota
	BounceWalls
	WrapWalls
	Drag
	Acceleration
	AttractTo
	RepelFrom
	Vortex
	Turbulence
	Orbit
	Curl
	Wander
	SpeedLimit
	Custom
	Age
	Lifetime
	FadeOut
	ShrinkOut
	ColorOverLife
	Collide
	Separate
	Cohere
	Align
	Typed
	Convert
	Chase
	Evade
)

// Rule is the tagged variant for one behavior rule. Only the fields
// relevant to Kind are meaningful; see the catalogue doc for which.
type Rule struct {
	Kind Kind

	// scalar parameters, reused across variants
	F1, F2, F3 float32
	I1, I2, I3 uint32

	Point  mgl32.Vec3
	Axis   mgl32.Vec3
	Start  mgl32.Vec3
	End    mgl32.Vec3
	Custom string

	// Typed wrapper
	SelfType  uint32
	OtherType *uint32
	Inner     *Rule
}

// RequiresNeighbors reports whether this rule needs the spatial index.
func (r Rule) RequiresNeighbors() bool {
	switch r.Kind {
	case Collide, Separate, Cohere, Align, Convert, Chase, Evade:
		return true
	case Typed:
		return r.Inner.RequiresNeighbors()
	default:
		return false
	}
}

func (r Rule) needsCohesion() bool {
	switch r.Kind {
	case Cohere:
		return true
	case Typed:
		return r.Inner.needsCohesion()
	default:
		return false
	}
}

func (r Rule) needsAlignment() bool {
	switch r.Kind {
	case Align:
		return true
	case Typed:
		return r.Inner.needsAlignment()
	default:
		return false
	}
}

func (r Rule) needsChase() bool {
	switch r.Kind {
	case Chase:
		return true
	case Typed:
		return r.Inner.needsChase()
	default:
		return false
	}
}

func (r Rule) needsEvade() bool {
	switch r.Kind {
	case Evade:
		return true
	case Typed:
		return r.Inner.needsEvade()
	default:
		return false
	}
}

// NeedsCohesionAccumulator reports whether any rule in the slice needs
// the cohesion_sum/cohesion_count accumulators declared.
func NeedsCohesionAccumulator(rs []Rule) bool { return any(rs, Rule.needsCohesion) }

// NeedsAlignmentAccumulator reports the alignment accumulator need.
func NeedsAlignmentAccumulator(rs []Rule) bool { return any(rs, Rule.needsAlignment) }

// NeedsChaseAccumulator reports the chase accumulator need.
func NeedsChaseAccumulator(rs []Rule) bool { return any(rs, Rule.needsChase) }

// NeedsEvadeAccumulator reports the evade accumulator need.
func NeedsEvadeAccumulator(rs []Rule) bool { return any(rs, Rule.needsEvade) }

func any(rs []Rule, pred func(Rule) bool) bool {
	for _, r := range rs {
		if pred(r) {
			return true
		}
	}
	return false
}

// ToWGSL emits the non-neighbor code block for rules that run in the
// simple-rules section. Neighbor rules return "".
func (r Rule) ToWGSL(bounds float32) string {
	switch r.Kind {
	case Gravity:
		return fmt.Sprintf("    // Gravity\n    p.velocity.y -= %g * uniforms.delta_time;", r.F1)

	case BounceWalls:
		return fmt.Sprintf(`    // Bounce off walls
    if p.position.x < -%[1]g {
        p.position.x = -%[1]g;
        p.velocity.x = abs(p.velocity.x);
    } else if p.position.x > %[1]g {
        p.position.x = %[1]g;
        p.velocity.x = -abs(p.velocity.x);
    }
    if p.position.y < -%[1]g {
        p.position.y = -%[1]g;
        p.velocity.y = abs(p.velocity.y);
    } else if p.position.y > %[1]g {
        p.position.y = %[1]g;
        p.velocity.y = -abs(p.velocity.y);
    }
    if p.position.z < -%[1]g {
        p.position.z = -%[1]g;
        p.velocity.z = abs(p.velocity.z);
    } else if p.position.z > %[1]g {
        p.position.z = %[1]g;
        p.velocity.z = -abs(p.velocity.z);
    }`, bounds)

	case WrapWalls:
		size := bounds * 2
		return fmt.Sprintf(`    // Wrap around walls (toroidal)
    if p.position.x < -%[1]g {
        p.position.x += %[2]g;
    } else if p.position.x > %[1]g {
        p.position.x -= %[2]g;
    }
    if p.position.y < -%[1]g {
        p.position.y += %[2]g;
    } else if p.position.y > %[1]g {
        p.position.y -= %[2]g;
    }
    if p.position.z < -%[1]g {
        p.position.z += %[2]g;
    } else if p.position.z > %[1]g {
        p.position.z -= %[2]g;
    }`, bounds, size)

	case Drag:
		return fmt.Sprintf("    // Drag\n    p.velocity *= 1.0 - (%g * uniforms.delta_time);", r.F1)

	case Acceleration:
		return fmt.Sprintf("    // Acceleration\n    p.velocity += vec3<f32>(%g, %g, %g) * uniforms.delta_time;",
			r.Point.X(), r.Point.Y(), r.Point.Z())

	case AttractTo:
		return fmt.Sprintf(`    // Attract to point
    {
        let attract_dir = vec3<f32>(%g, %g, %g) - p.position;
        let dist = length(attract_dir);
        if dist > 0.001 {
            p.velocity += normalize(attract_dir) * %g * uniforms.delta_time;
        }
    }`, r.Point.X(), r.Point.Y(), r.Point.Z(), r.F1)

	case RepelFrom:
		radius := r.F2
		return fmt.Sprintf(`    // Repel from point
    {
        let repel_dir = p.position - vec3<f32>(%g, %g, %g);
        let dist = length(repel_dir);
        if dist < %[4]g && dist > 0.001 {
            let force = (%[4]g - dist) / %[4]g * %[5]g;
            p.velocity += normalize(repel_dir) * force * uniforms.delta_time;
        }
    }`, r.Point.X(), r.Point.Y(), r.Point.Z(), radius, r.F1)

	case Vortex:
		axis := r.Axis
		axisLen := axis.Len()
		ax, ay, az := float32(0), float32(1), float32(0)
		if axisLen > 0.0001 {
			ax, ay, az = axis.X()/axisLen, axis.Y()/axisLen, axis.Z()/axisLen
		}
		return fmt.Sprintf(`    // Vortex
    {
        let vortex_center = vec3<f32>(%g, %g, %g);
        let vortex_axis = vec3<f32>(%g, %g, %g);
        let to_particle = p.position - vortex_center;
        let along_axis = dot(to_particle, vortex_axis) * vortex_axis;
        let radial = to_particle - along_axis;
        let dist = length(radial);
        if dist > 0.001 {
            let tangent = cross(vortex_axis, radial) / dist;
            p.velocity += tangent * %g * uniforms.delta_time;
        }
    }`, r.Point.X(), r.Point.Y(), r.Point.Z(), ax, ay, az, r.F1)

	case Turbulence:
		return fmt.Sprintf(`    // Turbulence (noise-based force)
    {
        let turb_pos = p.position * %[1]g + uniforms.time * 0.5;
        let turb_force = vec3<f32>(
            noise3(turb_pos + vec3<f32>(0.0, 0.0, 0.0)),
            noise3(turb_pos + vec3<f32>(100.0, 0.0, 0.0)),
            noise3(turb_pos + vec3<f32>(0.0, 100.0, 0.0))
        );
        p.velocity += turb_force * %[2]g * uniforms.delta_time;
    }`, r.F1, r.F2)

	case Orbit:
		return fmt.Sprintf(`    // Orbit
    {
        let orbit_center = vec3<f32>(%g, %g, %g);
        let to_center = orbit_center - p.position;
        let dist = length(to_center);
        if dist > 0.001 {
            let centripetal = normalize(to_center) * %[4]g;
            let tangent = vec3<f32>(-to_center.z, 0.0, to_center.x) / dist;
            let orbital_speed = sqrt(%[4]g * dist);
            let current_tangent_speed = dot(p.velocity, tangent);
            p.velocity += centripetal * uniforms.delta_time;
            p.velocity += tangent * (orbital_speed - current_tangent_speed) * 0.1 * uniforms.delta_time;
        }
    }`, r.Point.X(), r.Point.Y(), r.Point.Z(), r.F1)

	case Curl:
		return fmt.Sprintf(`    // Curl noise (divergence-free flow)
    {
        let curl_pos = p.position * %[1]g;
        let eps = 0.01;
        let dx = vec3<f32>(eps, 0.0, 0.0);
        let dy = vec3<f32>(0.0, eps, 0.0);
        let dz = vec3<f32>(0.0, 0.0, eps);
        let n_py = noise3(curl_pos + dy + vec3<f32>(0.0, 0.0, 100.0));
        let n_my = noise3(curl_pos - dy + vec3<f32>(0.0, 0.0, 100.0));
        let n_pz = noise3(curl_pos + dz + vec3<f32>(0.0, 100.0, 0.0));
        let n_mz = noise3(curl_pos - dz + vec3<f32>(0.0, 100.0, 0.0));
        let n_px = noise3(curl_pos + dx + vec3<f32>(100.0, 0.0, 0.0));
        let n_mx = noise3(curl_pos - dx + vec3<f32>(100.0, 0.0, 0.0));
        let curl = vec3<f32>(
            (n_py - n_my) - (n_pz - n_mz),
            (n_pz - n_mz) - (n_px - n_mx),
            (n_px - n_mx) - (n_py - n_my)
        ) / (2.0 * eps);
        p.velocity += curl * %[2]g * uniforms.delta_time;
    }`, r.F1, r.F2)

	case Wander:
		return fmt.Sprintf(`    // Wander (random movement)
    {
        let wander_seed = index * 1103515245u + u32(uniforms.time * %g);
        let hx = (wander_seed ^ (wander_seed >> 15u)) * 0x45d9f3bu;
        let hy = ((wander_seed + 1u) ^ ((wander_seed + 1u) >> 15u)) * 0x45d9f3bu;
        let hz = ((wander_seed + 2u) ^ ((wander_seed + 2u) >> 15u)) * 0x45d9f3bu;
        let wander_force = vec3<f32>(
            f32(hx & 0xFFFFu) / 32768.0 - 1.0,
            f32(hy & 0xFFFFu) / 32768.0 - 1.0,
            f32(hz & 0xFFFFu) / 32768.0 - 1.0
        );
        p.velocity += wander_force * %g * uniforms.delta_time;
    }`, r.F2, r.F1)

	case SpeedLimit:
		return fmt.Sprintf(`    // Speed limit
    {
        let speed = length(p.velocity);
        if speed > 0.0001 {
            let clamped_speed = clamp(speed, %g, %g);
            p.velocity = normalize(p.velocity) * clamped_speed;
        }
    }`, r.F1, r.F2)

	case Custom:
		return "    // Custom rule\n" + r.Custom

	case Age:
		return "    // Age\n    p.age += uniforms.delta_time;"

	case Lifetime:
		return fmt.Sprintf(`    // Lifetime
    if p.age > %g {
        p.alive = 0u;
    }`, r.F1)

	case FadeOut:
		return fmt.Sprintf(`    // Fade out
    {
        let fade = clamp(1.0 - p.age / %g, 0.0, 1.0);
        p.color *= fade;
    }`, r.F1)

	case ShrinkOut:
		return fmt.Sprintf("    // Shrink out\n    p.scale = clamp(1.0 - p.age / %g, 0.0, 1.0);", r.F1)

	case ColorOverLife:
		return fmt.Sprintf(`    // Color over life
    {
        let t = clamp(p.age / %g, 0.0, 1.0);
        p.color = mix(vec3<f32>(%g, %g, %g), vec3<f32>(%g, %g, %g), t);
    }`, r.F1, r.Start.X(), r.Start.Y(), r.Start.Z(), r.End.X(), r.End.Y(), r.End.Z())

	default:
		return ""
	}
}

// ToNeighborWGSL emits the code block that runs inside the 27-cell
// neighbor loop; non-neighbor rules return "".
func (r Rule) ToNeighborWGSL() string {
	switch r.Kind {
	case Collide:
		return fmt.Sprintf(`            // Collision
            if neighbor_dist < %[1]g && neighbor_dist > 0.0001 {
                let overlap = %[1]g - neighbor_dist;
                let push = neighbor_dir * (overlap * %[2]g);
                p.velocity -= push;
            }`, r.F1, r.F2)

	case Separate:
		return fmt.Sprintf(`            // Separation
            if neighbor_dist < %[1]g && neighbor_dist > 0.0001 {
                let force = (%[1]g - neighbor_dist) / %[1]g;
                p.velocity -= neighbor_dir * force * %[2]g * uniforms.delta_time;
            }`, r.F1, r.F2)

	case Cohere:
		return fmt.Sprintf(`            // Cohesion (accumulate for averaging)
            if neighbor_dist < %g {
                cohesion_sum += neighbor_pos;
                cohesion_count += 1.0;
            }`, r.F1)

	case Align:
		return fmt.Sprintf(`            // Alignment (accumulate for averaging)
            if neighbor_dist < %g {
                alignment_sum += neighbor_vel;
                alignment_count += 1.0;
            }`, r.F1)

	case Typed:
		inner := r.Inner.ToNeighborWGSL()
		if inner == "" {
			return ""
		}
		otherCheck := ""
		otherDesc := "None"
		if r.OtherType != nil {
			otherCheck = fmt.Sprintf(" && other.particle_type == %du", *r.OtherType)
			otherDesc = fmt.Sprintf("Some(%d)", *r.OtherType)
		}
		return fmt.Sprintf(`            // Typed rule (self=%d, other=%s)
            if p.particle_type == %du%s {
%s
            }`, r.SelfType, otherDesc, r.SelfType, otherCheck, inner)

	case Convert:
		fromType, triggerType, toType, radius, probability := r.SelfType, r.I1, r.I2, r.F1, r.F2
		return fmt.Sprintf(`            // Convert type %d -> %d (triggered by %d)
            if p.particle_type == %du && other.particle_type == %du && neighbor_dist < %g {
                let hash_input = index ^ (other_idx * 1103515245u) ^ u32(uniforms.time * 1000.0);
                let hash = (hash_input ^ (hash_input >> 16u)) * 0x45d9f3bu;
                let rand = f32(hash & 0xFFFFu) / 65535.0;
                if rand < %g {
                    p.particle_type = %du;
                }
            }`, fromType, toType, triggerType, fromType, triggerType, radius, probability, toType)

	case Chase:
		return fmt.Sprintf(`            // Chase: track nearest target
            if p.particle_type == %du && other.particle_type == %du && neighbor_dist < %g {
                if neighbor_dist < chase_nearest_dist {
                    chase_nearest_dist = neighbor_dist;
                    chase_nearest_pos = neighbor_pos;
                }
            }`, r.SelfType, r.I1, r.F1)

	case Evade:
		return fmt.Sprintf(`            // Evade: track nearest threat
            if p.particle_type == %du && other.particle_type == %du && neighbor_dist < %g {
                if neighbor_dist < evade_nearest_dist {
                    evade_nearest_dist = neighbor_dist;
                    evade_nearest_pos = neighbor_pos;
                }
            }`, r.SelfType, r.I1, r.F1)

	default:
		return ""
	}
}

// ToPostNeighborWGSL emits averaging/steering code that runs once after
// the neighbor loop completes.
func (r Rule) ToPostNeighborWGSL() string {
	switch r.Kind {
	case Cohere:
		return fmt.Sprintf(`    // Apply cohesion
    if cohesion_count > 0.0 {
        let center = cohesion_sum / cohesion_count;
        let to_center = center - p.position;
        p.velocity += normalize(to_center) * %g * uniforms.delta_time;
    }`, r.F2)

	case Align:
		return fmt.Sprintf(`    // Apply alignment
    if alignment_count > 0.0 {
        let avg_vel = alignment_sum / alignment_count;
        p.velocity += (avg_vel - p.velocity) * %g * uniforms.delta_time;
    }`, r.F2)

	case Typed:
		inner := r.Inner.ToPostNeighborWGSL()
		if inner == "" {
			return ""
		}
		return fmt.Sprintf(`    // Typed post-neighbor (self=%d)
    if p.particle_type == %du {
%s
    }`, r.SelfType, r.SelfType, inner)

	case Chase:
		return fmt.Sprintf(`    // Apply chase steering
    if p.particle_type == %du && chase_nearest_dist < 1000.0 {
        let to_target = chase_nearest_pos - p.position;
        let dist = length(to_target);
        if dist > 0.001 {
            p.velocity += normalize(to_target) * %g * uniforms.delta_time;
        }
    }`, r.SelfType, r.F2)

	case Evade:
		return fmt.Sprintf(`    // Apply evade steering
    if p.particle_type == %du && evade_nearest_dist < 1000.0 {
        let away_from_threat = p.position - evade_nearest_pos;
        let dist = length(away_from_threat);
        if dist > 0.001 {
            p.velocity += normalize(away_from_threat) * %g * uniforms.delta_time;
        }
    }`, r.SelfType, r.F2)

	default:
		return ""
	}
}

// JoinNonEmpty joins non-empty blocks with a blank line, matching the
// textual assembly codegen performs between rule bodies.
func JoinNonEmpty(blocks []string) string {
	var kept []string
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			kept = append(kept, b)
		}
	}
	return strings.Join(kept, "\n\n")
}
