package sim

import "fmt"

// ResourceType classifies a resource. It is informational only.
type ResourceType string

const (
	ResourceMemory  ResourceType = "memory"
	ResourceFile    ResourceType = "file"
	ResourceNetwork ResourceType = "network"
	ResourceDevice  ResourceType = "device"
)

var validResourceTypes = map[ResourceType]bool{
	ResourceMemory:  true,
	ResourceFile:    true,
	ResourceNetwork: true,
	ResourceDevice:  true,
}

// IsValidResourceType returns true if s names a known resource type.
func IsValidResourceType(s string) bool {
	return validResourceTypes[ResourceType(s)]
}

// Resource is a named resource held exclusively by at most one thread.
type Resource struct {
	ID      string
	Name    string
	Type    ResourceType
	InUseBy string // owning thread id (empty = available)
}

// Available reports whether no thread holds the resource.
func (r Resource) Available() bool {
	return r.InUseBy == ""
}

func (r Resource) String() string {
	owner := "-"
	if r.InUseBy != "" {
		owner = r.InUseBy
	}
	return fmt.Sprintf("Resource: (ID: %s, Name: %s, Type: %s, InUseBy: %s)", r.ID, r.Name, r.Type, owner)
}

// AddResource registers a new, unowned resource and returns its id.
func (sim *Simulator) AddResource(name string, typ ResourceType) (string, error) {
	if err := validateName("resource name", name); err != nil {
		return "", err
	}
	if !validResourceTypes[typ] {
		return "", &ValidationError{Field: "resource type", Reason: fmt.Sprintf("unknown type %q", typ)}
	}

	sim.mu.Lock()
	defer sim.mu.Unlock()

	r := &Resource{ID: sim.newID("resource"), Name: name, Type: typ}
	sim.resources = append(sim.resources, r)
	sim.addLogLocked(fmt.Sprintf("Resource %s (%s) added", name, typ))
	return r.ID, nil
}

// RemoveResource deletes a resource. Threads blocked on it return to Ready.
func (sim *Simulator) RemoveResource(id string) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	idx := sim.resourceIndex(id)
	if idx < 0 {
		return &NotFoundError{Kind: "resource", ID: id}
	}
	r := sim.resources[idx]
	sim.resources = append(sim.resources[:idx], sim.resources[idx+1:]...)

	woken := sim.wakeWaiters(id)
	sim.addLogLocked(fmt.Sprintf("Resource %s removed", r.Name))
	if r.InUseBy != "" || woken > 0 {
		sim.addLogLocked("Threads waiting for resource released")
	}
	return nil
}

// Allocate assigns the resource to the thread if it is free. If another thread
// holds it, the requesting thread becomes Waiting on it instead. The call never blocks.
func (sim *Simulator) Allocate(threadID, resourceID string) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	t := sim.threadByID(threadID)
	if t == nil {
		return &NotFoundError{Kind: "thread", ID: threadID}
	}
	r := sim.resourceByID(resourceID)
	if r == nil {
		return &NotFoundError{Kind: "resource", ID: resourceID}
	}
	if t.Status == StatusTerminated || r.InUseBy == t.ID {
		return nil
	}

	if r.InUseBy != "" {
		from := t.Status
		t.Status = StatusWaiting
		t.WaitingFor = r.ID
		sim.recordTransition(t, from, "contention on "+r.ID)
		sim.addLogLocked(fmt.Sprintf("Thread %s waiting for resource %s", t.Name, r.Name))
		return nil
	}

	r.InUseBy = t.ID
	sim.addLogLocked(fmt.Sprintf("Resource %s allocated to thread %s", r.Name, t.Name))
	return nil
}

// Release frees the resource and returns every thread blocked on it to Ready.
// Releasing an unowned resource is a no-op.
func (sim *Simulator) Release(resourceID string) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	r := sim.resourceByID(resourceID)
	if r == nil {
		return &NotFoundError{Kind: "resource", ID: resourceID}
	}
	sim.releaseLocked(r)
	return nil
}

// releaseLocked clears ownership of r, wakes its waiters and logs the release.
func (sim *Simulator) releaseLocked(r *Resource) {
	if r.InUseBy == "" {
		return
	}
	holder := sim.threadByID(r.InUseBy)
	r.InUseBy = ""
	sim.wakeWaiters(r.ID)
	if holder != nil {
		sim.addLogLocked(fmt.Sprintf("Resource %s released by thread %s", r.Name, holder.Name))
	} else {
		sim.addLogLocked(fmt.Sprintf("Resource %s released", r.Name))
	}
}

// releaseHeldBy releases every resource owned by threadID.
func (sim *Simulator) releaseHeldBy(threadID string) {
	for _, r := range sim.resources {
		if r.InUseBy == threadID {
			sim.releaseLocked(r)
		}
	}
}

// wakeWaiters moves every thread blocked on resourceID back to Ready.
func (sim *Simulator) wakeWaiters(resourceID string) int {
	n := 0
	for _, t := range sim.threads {
		if t.WaitingFor != resourceID {
			continue
		}
		t.WaitingFor = ""
		if t.Status == StatusWaiting {
			t.Status = StatusReady
			sim.recordTransition(t, StatusWaiting, "released "+resourceID)
		}
		n++
	}
	return n
}

// availableResources returns the resources nobody holds, in registry order.
func (sim *Simulator) availableResources() []*Resource {
	var out []*Resource
	for _, r := range sim.resources {
		if r.InUseBy == "" {
			out = append(out, r)
		}
	}
	return out
}

func (sim *Simulator) resourceIndex(id string) int {
	for i, r := range sim.resources {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (sim *Simulator) resourceByID(id string) *Resource {
	if i := sim.resourceIndex(id); i >= 0 {
		return sim.resources[i]
	}
	return nil
}
