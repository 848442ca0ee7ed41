package sim

import "fmt"

// ThreadModel names a user-thread to kernel-thread mapping model.
type ThreadModel string

const (
	ModelManyToOne  ThreadModel = "many-to-one"
	ModelOneToOne   ThreadModel = "one-to-one"
	ModelManyToMany ThreadModel = "many-to-many"
)

// ValidModels is the set of recognized model names.
// Shared by IsValidModel() and NewSchedulingPolicy() to avoid duplication.
var ValidModels = map[ThreadModel]bool{ModelManyToOne: true, ModelOneToOne: true, ModelManyToMany: true}

// IsValidModel returns true if name is a recognized threading model.
func IsValidModel(name string) bool {
	return ValidModels[ThreadModel(name)]
}

// SchedulingPolicy supplies the per-tick transition rules for one threading model.
// It is the only model-aware component of the simulator.
type SchedulingPolicy interface {
	// Model returns the threading model this policy implements.
	Model() ThreadModel
	// IOChance is the probability a Running thread requests a resource this tick.
	IOChance() float64
	// IOCompleteChance is the probability a blocked thread finishes its I/O this tick.
	IOCompleteChance() float64
	// Admit decides whether a Ready thread starts running. running is the number
	// of threads currently Running, including those admitted earlier in this tick.
	Admit(t *Thread, running int, rnd RandomSource) bool
	// Exclusive reports whether at most one thread may be Running at a time.
	Exclusive() bool
}

// ManyToOnePolicy maps all user threads onto a single kernel thread.
type ManyToOnePolicy struct{}

func (ManyToOnePolicy) Model() ThreadModel        { return ModelManyToOne }
func (ManyToOnePolicy) IOChance() float64         { return 0.10 }
func (ManyToOnePolicy) IOCompleteChance() float64 { return 0.05 }
func (ManyToOnePolicy) Exclusive() bool           { return true }

// Admit only when nothing else is running. No random draw is consumed.
func (ManyToOnePolicy) Admit(_ *Thread, running int, _ RandomSource) bool {
	return running == 0
}

// OneToOnePolicy gives every user thread its own kernel thread.
// Admission probability scales with priority: priority/20, i.e. 0.05 to 0.50.
type OneToOnePolicy struct{}

func (OneToOnePolicy) Model() ThreadModel        { return ModelOneToOne }
func (OneToOnePolicy) IOChance() float64         { return 0.15 }
func (OneToOnePolicy) IOCompleteChance() float64 { return 0.20 }
func (OneToOnePolicy) Exclusive() bool           { return false }

func (OneToOnePolicy) Admit(t *Thread, _ int, rnd RandomSource) bool {
	return rnd.Float64() < float64(t.Priority)/20
}

// ManyToManyPolicy multiplexes user threads over a bounded kernel thread pool.
// The pool bound is approximated stochastically with a fixed admission probability.
type ManyToManyPolicy struct{}

const manyToManyAdmitChance = 0.25

func (ManyToManyPolicy) Model() ThreadModel        { return ModelManyToMany }
func (ManyToManyPolicy) IOChance() float64         { return 0.05 }
func (ManyToManyPolicy) IOCompleteChance() float64 { return 0.15 }
func (ManyToManyPolicy) Exclusive() bool           { return false }

func (ManyToManyPolicy) Admit(_ *Thread, _ int, rnd RandomSource) bool {
	return rnd.Float64() < manyToManyAdmitChance
}

// NewSchedulingPolicy creates the policy for a threading model.
// Valid names are defined in ValidModels.
// Panics on unrecognized names; callers validate with IsValidModel first.
func NewSchedulingPolicy(model ThreadModel) SchedulingPolicy {
	if !ValidModels[model] {
		panic(fmt.Sprintf("unknown threading model %q", model))
	}
	switch model {
	case ModelManyToOne:
		return ManyToOnePolicy{}
	case ModelOneToOne:
		return OneToOnePolicy{}
	case ModelManyToMany:
		return ManyToManyPolicy{}
	default:
		panic(fmt.Sprintf("unhandled threading model %q", model))
	}
}
