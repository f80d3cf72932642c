// Package emitters implements the spawn-emitter catalogue and its WGSL
// codegen. An emitter's shader block runs once per particle at the top
// of the compute kernel, respawning dead slots.
package emitters

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

type Kind int

const (
	Point Kind = iota
	Burst
	Cone
	Sphere
	Box
)

// Emitter is the tagged variant for one spawn emitter.
type Emitter struct {
	Kind Kind

	Position mgl32.Vec3
	Center   mgl32.Vec3
	Min, Max mgl32.Vec3
	Velocity mgl32.Vec3
	Direction mgl32.Vec3

	Rate   float32
	Speed  float32
	Spread float32
	Radius float32
	Count  uint32
}

// EffectiveRate returns the emission rate in particles per second; Burst
// emitters report their one-time count as a rate.
func (e Emitter) EffectiveRate() float32 {
	if e.Kind == Burst {
		return float32(e.Count)
	}
	return e.Rate
}

// ToWGSL emits the emitter block executed for index-th emitter in
// declaration order.
func (e Emitter) ToWGSL(emitterIndex int) string {
	switch e.Kind {
	case Point:
		p := e.Position
		speedCode := "p.velocity = vec3<f32>(vx, vy, vz) * 0.5;"
		if e.Speed > 0 {
			speedCode = fmt.Sprintf("let vel_dir = normalize(vec3<f32>(vx, vy, vz));\n            p.velocity = vel_dir * %g;", e.Speed)
		}
		return fmt.Sprintf(`    // Point emitter %[1]d at (%[2]g, %[3]g, %[4]g)
    if p.alive == 0u {
        let spawn_hash = (index * 1103515245u + u32(uniforms.time * 10000.0) + %[1]du * 7919u) ^ (index >> 3u);
        let spawn_chance = f32(spawn_hash & 0xFFFFu) / 65535.0;
        let spawn_rate = %[5]g * uniforms.delta_time / f32(num_particles);

        if spawn_chance < spawn_rate {
            p.alive = 1u;
            p.age = 0.0;
            p.scale = 1.0;
            p.particle_type = 0u;
            p.position = vec3<f32>(%[2]g, %[3]g, %[4]g);

            let vhash = spawn_hash * 0x45d9f3bu;
            let vx = f32((vhash >> 0u) & 0xFFu) / 128.0 - 1.0;
            let vy = f32((vhash >> 8u) & 0xFFu) / 128.0 - 1.0;
            let vz = f32((vhash >> 16u) & 0xFFu) / 128.0 - 1.0;
            %[6]s
        }
    }`, emitterIndex, p.X(), p.Y(), p.Z(), e.Rate, speedCode)

	case Burst:
		p := e.Position
		return fmt.Sprintf(`    // Burst emitter %[1]d at (%[2]g, %[3]g, %[4]g)
    // Fires once at time ~0, spawning first %[5]d particles
    if index < %[5]du && uniforms.time < 0.1 {
        p.alive = 1u;
        p.age = 0.0;
        p.scale = 1.0;
        p.particle_type = 0u;
        p.position = vec3<f32>(%[2]g, %[3]g, %[4]g);

        let vhash = index * 2654435761u;
        let theta = f32((vhash >> 0u) & 0xFFFFu) / 65535.0 * 6.28318;
        let phi = acos(f32((vhash >> 16u) & 0xFFFFu) / 65535.0 * 2.0 - 1.0);
        let dir = vec3<f32>(
            sin(phi) * cos(theta),
            sin(phi) * sin(theta),
            cos(phi)
        );
        p.velocity = dir * %[6]g;
    }`, emitterIndex, p.X(), p.Y(), p.Z(), e.Count, e.Speed)

	case Cone:
		p := e.Position
		dir := e.Direction.Normalize()
		return fmt.Sprintf(`    // Cone emitter %[1]d at (%[2]g, %[3]g, %[4]g) dir (%[5]g, %[6]g, %[7]g)
    if p.alive == 0u {
        let spawn_hash = (index * 1103515245u + u32(uniforms.time * 10000.0) + %[1]du * 7919u) ^ (index >> 3u);
        let spawn_chance = f32(spawn_hash & 0xFFFFu) / 65535.0;
        let spawn_rate = %[8]g * uniforms.delta_time / f32(num_particles);

        if spawn_chance < spawn_rate {
            p.alive = 1u;
            p.age = 0.0;
            p.scale = 1.0;
            p.particle_type = 0u;
            p.position = vec3<f32>(%[2]g, %[3]g, %[4]g);

            let base_dir = vec3<f32>(%[5]g, %[6]g, %[7]g);
            let vhash = spawn_hash * 0x45d9f3bu;

            let rand_angle = f32((vhash >> 0u) & 0xFFFFu) / 65535.0 * 6.28318;
            let rand_spread = f32((vhash >> 16u) & 0xFFFFu) / 65535.0 * %[9]g;

            let up = select(vec3<f32>(0.0, 1.0, 0.0), vec3<f32>(1.0, 0.0, 0.0), abs(base_dir.y) > 0.9);
            let right = normalize(cross(up, base_dir));
            let forward = cross(base_dir, right);

            let spread_x = sin(rand_spread) * cos(rand_angle);
            let spread_y = sin(rand_spread) * sin(rand_angle);
            let spread_z = cos(rand_spread);
            let dir = normalize(right * spread_x + forward * spread_y + base_dir * spread_z);

            p.velocity = dir * %[10]g;
        }
    }`, emitterIndex, p.X(), p.Y(), p.Z(), dir.X(), dir.Y(), dir.Z(), e.Rate, e.Spread, e.Speed)

	case Sphere:
		c := e.Center
		return fmt.Sprintf(`    // Sphere emitter %[1]d center (%[2]g, %[3]g, %[4]g) radius %[5]g
    if p.alive == 0u {
        let spawn_hash = (index * 1103515245u + u32(uniforms.time * 10000.0) + %[1]du * 7919u) ^ (index >> 3u);
        let spawn_chance = f32(spawn_hash & 0xFFFFu) / 65535.0;
        let spawn_rate = %[6]g * uniforms.delta_time / f32(num_particles);

        if spawn_chance < spawn_rate {
            p.alive = 1u;
            p.age = 0.0;
            p.scale = 1.0;
            p.particle_type = 0u;

            let vhash = spawn_hash * 0x45d9f3bu;
            let theta = f32((vhash >> 0u) & 0xFFFFu) / 65535.0 * 6.28318;
            let phi = acos(f32((vhash >> 16u) & 0xFFFFu) / 65535.0 * 2.0 - 1.0);
            let dir = vec3<f32>(
                sin(phi) * cos(theta),
                sin(phi) * sin(theta),
                cos(phi)
            );

            p.position = vec3<f32>(%[2]g, %[3]g, %[4]g) + dir * %[5]g;
            p.velocity = dir * %[7]g;
        }
    }`, emitterIndex, c.X(), c.Y(), c.Z(), e.Radius, e.Rate, e.Speed)

	case Box:
		min, max, vel := e.Min, e.Max, e.Velocity
		return fmt.Sprintf(`    // Box emitter %[1]d from (%[2]g, %[3]g, %[4]g) to (%[5]g, %[6]g, %[7]g)
    if p.alive == 0u {
        let spawn_hash = (index * 1103515245u + u32(uniforms.time * 10000.0) + %[1]du * 7919u) ^ (index >> 3u);
        let spawn_chance = f32(spawn_hash & 0xFFFFu) / 65535.0;
        let spawn_rate = %[8]g * uniforms.delta_time / f32(num_particles);

        if spawn_chance < spawn_rate {
            p.alive = 1u;
            p.age = 0.0;
            p.scale = 1.0;
            p.particle_type = 0u;

            let vhash = spawn_hash * 0x45d9f3bu;
            let rx = f32((vhash >> 0u) & 0xFFu) / 255.0;
            let ry = f32((vhash >> 8u) & 0xFFu) / 255.0;
            let rz = f32((vhash >> 16u) & 0xFFu) / 255.0;

            p.position = vec3<f32>(
                mix(%[2]g, %[5]g, rx),
                mix(%[3]g, %[6]g, ry),
                mix(%[4]g, %[7]g, rz)
            );
            p.velocity = vec3<f32>(%[9]g, %[10]g, %[11]g);
        }
    }`, emitterIndex, min.X(), min.Y(), min.Z(), max.X(), max.Y(), max.Z(), e.Rate, vel.X(), vel.Y(), vel.Z())

	default:
		return ""
	}
}
