package sim

import (
	"math"
	"time"

	"github.com/inference-sim/threadsim/sim/trace"
)

// DefaultSpeed is the simulated milliseconds per tick when neither the config
// nor the scenario sets one. It is also the continuous-mode tick period.
const DefaultSpeed int64 = 300

// MaxSpeed is the largest accepted speed: the longest tick period a
// time.Duration can hold.
const MaxSpeed int64 = math.MaxInt64 / int64(time.Millisecond)

// SimulatorConfig groups construction parameters for NewSimulator.
// Zero values select defaults.
type SimulatorConfig struct {
	Key      SimulationKey // seeds the default RandomSource
	Model    ThreadModel   // overrides Scenario.Model when set
	Speed    int64         // overrides Scenario.Speed when > 0
	Scenario *Scenario     // seed state restored by Reset (nil = DefaultScenario())
	Trace    trace.TraceConfig

	// Injection points for deterministic tests.
	Random RandomSource               // nil = NewRandomSource(Key)
	Now    func() time.Time           // nil = time.Now
	NewID  func(prefix string) string // nil = prefix + "-" + uuid
}
