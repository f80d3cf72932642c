// Package subemitter implements death-triggered and condition-triggered
// child spawning: the death-event ring, the death-recording codegen
// spliced into the main kernel, and the standalone child-spawn kernel.
package subemitter

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxDeathEvents bounds the per-frame death ring; events past this
// capacity are dropped silently.
const MaxDeathEvents = 4096

// TriggerKind distinguishes a parent-death trigger from a custom
// per-frame WGSL predicate trigger.
type TriggerKind int

const (
	OnDeath TriggerKind = iota
	OnCondition
)

// Trigger selects when a sub-emitter fires.
type Trigger struct {
	Kind      TriggerKind
	Condition string // WGSL boolean expression, only for OnCondition
}

// SubEmitter spawns children from a parent's death (or a custom
// condition) with a configurable velocity/speed/spread distribution.
type SubEmitter struct {
	ParentType      uint32
	ChildType       uint32
	Count           uint32
	SpeedMin        float32
	SpeedMax        float32
	Spread          float32
	InheritVelocity float32
	SpawnRadius     float32
	Trigger         Trigger

	ChildLifetime *float32
	ChildColor    *mgl32.Vec3
}

// ChildSpawningWGSL emits this sub-emitter's block of the child-spawn
// kernel: it runs once per recorded death event and, if the event's
// parent type matches, spawns Count children into reused dead slots.
func (se SubEmitter) ChildSpawningWGSL(emitterIndex int) string {
	childColorCode := "child.color = death.color;"
	if se.ChildColor != nil {
		c := *se.ChildColor
		childColorCode = fmt.Sprintf("child.color = vec3<f32>(%g, %g, %g);", c.X(), c.Y(), c.Z())
	}

	childLifetimeCode := "// Child uses normal lifecycle"
	if se.ChildLifetime != nil {
		childLifetimeCode = fmt.Sprintf("// Child lifetime set to %g", *se.ChildLifetime)
	}

	return fmt.Sprintf(`
    // Sub-emitter %[1]d: Spawn children for parent type %[2]d
    if death.parent_type == %[2]du {
        let num_children = %[3]du;
        let speed_min = %[4]g;
        let speed_max = %[5]g;
        let spread = %[6]g;
        let inherit_vel = %[7]g;
        let spawn_radius = %[8]g;

        for (var child_i = 0u; child_i < num_children; child_i++) {
            let slot = atomicAdd(&next_child_slot, 1u);
            if slot >= arrayLength(&particles) {
                break;
            }

            var actual_slot = slot;
            var found = false;
            for (var search = 0u; search < 100u; search++) {
                let check_slot = (slot + search) %% arrayLength(&particles);
                if particles[check_slot].alive == 0u {
                    actual_slot = check_slot;
                    found = true;
                    break;
                }
            }

            if !found {
                continue;
            }

            var child = particles[actual_slot];

            let seed = death_idx * 1000u + child_i * 7u + %[1]du;
            let theta = rand(seed) * 6.28318;
            let phi = rand(seed + 1u) * spread;
            let dir = vec3<f32>(
                sin(phi) * cos(theta),
                cos(phi),
                sin(phi) * sin(theta)
            );

            let speed = speed_min + rand(seed + 2u) * (speed_max - speed_min);

            let offset = rand_sphere(seed + 3u) * spawn_radius;

            child.position = death.position + offset;
            child.velocity = death.velocity * inherit_vel + dir * speed;
            child.particle_type = %[9]du;
            child.age = 0.0;
            child.alive = 1u;
            child.scale = 1.0;
            %[10]s
            %[11]s

            particles[actual_slot] = child;
        }
    }
`, emitterIndex, se.ParentType, se.Count, se.SpeedMin, se.SpeedMax, se.Spread,
		se.InheritVelocity, se.SpawnRadius, se.ChildType, childColorCode, childLifetimeCode)
}

// DeathEventWGSL declares the DeathEvent struct.
const DeathEventWGSL = `
struct DeathEvent {
    position: vec3<f32>,
    parent_type: u32,
    velocity: vec3<f32>,
    _pad0: u32,
    color: vec3<f32>,
    _pad1: u32,
};
`

// DeathBufferBindingsWGSL declares bind group 3's death ring, death
// counter, and child-slot counter, using the names DeathRecordingWGSL
// writes through.
const DeathBufferBindingsWGSL = `
@group(3) @binding(0)
var<storage, read_write> sub_emitter_death_buffer: array<DeathEvent>;

@group(3) @binding(1)
var<storage, read_write> sub_emitter_death_count: atomic<u32>;

@group(3) @binding(2)
var<storage, read_write> next_child_slot: atomic<u32>;
`

// RecordDeathWGSL declares a record_death helper that pushes a death
// event onto the ring, dropping it silently past capacity. The main
// kernel does not call it: DeathRecordingWGSL writes the ring inline.
const RecordDeathWGSL = `
fn record_death(pos: vec3<f32>, vel: vec3<f32>, col: vec3<f32>, ptype: u32) {
    let idx = atomicAdd(&sub_emitter_death_count, 1u);
    if idx < arrayLength(&sub_emitter_death_buffer) {
        sub_emitter_death_buffer[idx].position = pos;
        sub_emitter_death_buffer[idx].velocity = vel;
        sub_emitter_death_buffer[idx].color = col;
        sub_emitter_death_buffer[idx].parent_type = ptype;
    }
}
`

// DeathRecordingWGSL generates the block spliced into the end of the
// main compute kernel: death-triggered sub-emitters sharing a parent
// type are combined into one atomic-counter check, and each
// condition-triggered sub-emitter gets its own check with the user's
// predicate spliced in verbatim.
func DeathRecordingWGSL(subEmitters []SubEmitter) string {
	if len(subEmitters) == 0 {
		return ""
	}

	var code strings.Builder
	code.WriteString("\n    // Sub-emitter spawn event recording\n")

	var deathTriggered []SubEmitter
	for _, se := range subEmitters {
		if se.Trigger.Kind == OnDeath {
			deathTriggered = append(deathTriggered, se)
		}
	}

	if len(deathTriggered) > 0 {
		checks := make([]string, 0, len(deathTriggered))
		for _, se := range deathTriggered {
			checks = append(checks, fmt.Sprintf("p.particle_type == %du", se.ParentType))
		}
		typeCondition := strings.Join(checks, " || ")
		fmt.Fprintf(&code, `    // Death-triggered spawn recording
    if was_alive == 1u && p.alive == 0u && (%s) {
        let spawn_idx = atomicAdd(&sub_emitter_death_count, 1u);
        if spawn_idx < %du {
            sub_emitter_death_buffer[spawn_idx].position = p.position;
            sub_emitter_death_buffer[spawn_idx].velocity = p.velocity;
            sub_emitter_death_buffer[spawn_idx].color = p.color;
            sub_emitter_death_buffer[spawn_idx].parent_type = p.particle_type;
        }
    }
`, typeCondition, MaxDeathEvents)
	}

	for i, se := range subEmitters {
		if se.Trigger.Kind != OnCondition {
			continue
		}
		fmt.Fprintf(&code, `
    // Condition-triggered spawn recording (sub-emitter %d)
    // Condition: %s
    if p.particle_type == %du && (%s) {
        let spawn_idx = atomicAdd(&sub_emitter_death_count, 1u);
        if spawn_idx < %du {
            sub_emitter_death_buffer[spawn_idx].position = p.position;
            sub_emitter_death_buffer[spawn_idx].velocity = p.velocity;
            sub_emitter_death_buffer[spawn_idx].color = p.color;
            sub_emitter_death_buffer[spawn_idx].parent_type = p.particle_type;
        }
    }
`, i, se.Trigger.Condition, se.ParentType, se.Trigger.Condition, MaxDeathEvents)
	}

	return code.String()
}

// GenerateSpawnShader builds the standalone child-spawn compute
// kernel: one invocation per potential death-event slot, dispatching
// MaxDeathEvents/256 workgroups.
func GenerateSpawnShader(particleWGSLStruct string, subEmitters []SubEmitter) string {
	var spawnCode strings.Builder
	for i, se := range subEmitters {
		spawnCode.WriteString(se.ChildSpawningWGSL(i))
	}

	return fmt.Sprintf(`
// Sub-emitter child spawning shader

%s

struct DeathEvent {
    position: vec3<f32>,
    parent_type: u32,
    velocity: vec3<f32>,
    _pad0: u32,
    color: vec3<f32>,
    _pad1: u32,
};

struct CountBuffer {
    count: u32,
};

@group(0) @binding(0)
var<storage, read_write> particles: array<Particle>;

@group(0) @binding(1)
var<storage, read> death_buffer: array<DeathEvent>;

@group(0) @binding(2)
var<storage, read> death_count_buf: CountBuffer;

@group(0) @binding(3)
var<storage, read_write> next_child_slot: atomic<u32>;

fn hash(n: u32) -> u32 {
    var x = n;
    x = x ^ (x >> 17u);
    x = x * 0xed5ad4bbu;
    x = x ^ (x >> 11u);
    x = x * 0xac4c1b51u;
    x = x ^ (x >> 15u);
    x = x * 0x31848babu;
    x = x ^ (x >> 14u);
    return x;
}

fn rand(seed: u32) -> f32 {
    return f32(hash(seed)) / 4294967295.0;
}

fn rand_sphere(seed: u32) -> vec3<f32> {
    let v = vec3<f32>(
        rand(seed) * 2.0 - 1.0,
        rand(seed + 1u) * 2.0 - 1.0,
        rand(seed + 2u) * 2.0 - 1.0
    );
    let len = length(v);
    if len < 0.001 {
        return vec3<f32>(0.0, 1.0, 0.0);
    }
    return v / len;
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let death_idx = global_id.x;
    let total_deaths = death_count_buf.count;

    if death_idx >= total_deaths {
        return;
    }

    let death = death_buffer[death_idx];

    // Process sub-emitters
%s
}
`, particleWGSLStruct, spawnCode.String())
}
