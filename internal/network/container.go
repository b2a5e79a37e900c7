package network

import "fmt"

type ContainerState int

const (
	ContainerCreated ContainerState = iota
	ContainerPolling
	ContainerReady
	ContainerFailed
	ContainerTimedOut
	ContainerPublished
)

func (s ContainerState) String() string {
	switch s {
	case ContainerCreated:
		return "created"
	case ContainerPolling:
		return "polling"
	case ContainerReady:
		return "ready"
	case ContainerFailed:
		return "failed"
	case ContainerTimedOut:
		return "timed_out"
	case ContainerPublished:
		return "published"
	default:
		return fmt.Sprintf("container_state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s ContainerState) Terminal() bool {
	return s == ContainerFailed || s == ContainerTimedOut || s == ContainerPublished
}

var containerTransitions = map[ContainerState][]ContainerState{
	ContainerCreated: {ContainerPolling, ContainerReady},
	ContainerPolling: {ContainerPolling, ContainerReady, ContainerFailed, ContainerTimedOut},
	ContainerReady:   {ContainerPublished, ContainerFailed},
}

// Container tracks one publish container through a single publish attempt.
// It is never persisted.
type Container struct {
	Handle ContainerHandle
	State  ContainerState
	Polls  int
	Reason string
}

func NewContainer(h ContainerHandle) *Container {
	return &Container{Handle: h, State: ContainerCreated}
}

func (c *Container) Transition(to ContainerState) error {
	for _, s := range containerTransitions[c.State] {
		if s == to {
			c.State = to
			return nil
		}
	}
	return fmt.Errorf("invalid container transition %s -> %s", c.State, to)
}
