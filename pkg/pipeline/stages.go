package pipeline

import (
	"sync"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
)

// =============================================================================
// Stages
// =============================================================================

// Stage names, in fixed execution order.
const (
	StageCollect   = "collect"
	StageTemplate  = "template"
	StageGenerate  = "generate"
	StageComposite = "composite"
)

// StageOrder is the fixed stage sequence. A stage never runs before every
// stage ahead of it has completed.
var StageOrder = []string{StageCollect, StageTemplate, StageGenerate, StageComposite}

// Stage statuses.
const (
	StatusWaiting  = "waiting"
	StatusActive   = "active"
	StatusComplete = "complete"
	StatusError    = "error"
)

// Machine statuses.
const (
	MachineIdle     = "idle"
	MachineRunning  = "running"
	MachineComplete = "complete"
	MachineError    = "error"
)

// Input kinds that gate stage advancement.
const (
	InputUserData  = "user_data"
	InputTemplate  = "template"
	InputZones     = "zones"
	InputGenerated = "generated"
)

// requiredInputs maps each stage to the inputs that must be present before
// it may become active. Collect has no prerequisites.
var requiredInputs = map[string][]string{
	StageCollect:   nil,
	StageTemplate:  {InputTemplate, InputUserData},
	StageGenerate:  {InputZones},
	StageComposite: {InputGenerated},
}

// Snapshot is a point-in-time view of the machine.
type Snapshot struct {
	Status       string            `json:"status"`
	CurrentStage string            `json:"current_stage,omitempty"`
	Stages       map[string]string `json:"stages"`
	Inputs       map[string]bool   `json:"inputs"`
}

// Machine is the pipeline's stage state machine.
//
// Stages advance strictly in order. A completed stage hands over to the next
// one only when that stage's required inputs are already present; otherwise
// the machine parks until the input arrives via Supply. The completion
// callback fires exactly once per run, when the final stage completes.
type Machine struct {
	mu         sync.Mutex
	status     string
	current    string
	stages     map[string]string
	inputs     map[string]bool
	fired      bool
	onComplete func()
	history    []string
}

// NewMachine creates an idle machine. onComplete may be nil.
func NewMachine(onComplete func()) *Machine {
	m := &Machine{status: MachineIdle, onComplete: onComplete}
	m.resetLocked()
	return m
}

func (m *Machine) resetLocked() {
	m.stages = make(map[string]string, len(StageOrder))
	for _, s := range StageOrder {
		m.stages[s] = StatusWaiting
	}
	m.inputs = make(map[string]bool)
	m.current = ""
	m.fired = false
}

// Start activates the first stage. Starting a running machine is a no-op.
func (m *Machine) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == MachineRunning {
		return
	}
	m.status = MachineRunning
	m.history = append(m.history, "start")
	m.advanceLocked()
}

// Supply marks an input as present and advances if a stage was parked on it.
func (m *Machine) Supply(input string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs[input] = true
	if m.status == MachineRunning {
		m.advanceLocked()
	}
}

// Complete marks a stage as finished and advances.
// Completing a stage that is not active is an ordering violation.
func (m *Machine) Complete(stage string) error {
	m.mu.Lock()

	if m.stages[stage] != StatusActive {
		status := m.stages[stage]
		m.mu.Unlock()
		return zferrors.New(zferrors.ErrCodeInvalidInput,
			"cannot complete stage %s in status %s", stage, status)
	}
	m.stages[stage] = StatusComplete
	m.history = append(m.history, "complete:"+stage)

	var fire bool
	if stage == StageOrder[len(StageOrder)-1] {
		m.status = MachineComplete
		m.current = ""
		if !m.fired {
			m.fired = true
			fire = true
		}
	} else {
		m.advanceLocked()
	}
	cb := m.onComplete
	m.mu.Unlock()

	// Fired outside the lock so the callback may inspect the machine.
	if fire && cb != nil {
		cb()
	}
	return nil
}

// Fail marks a stage as errored and halts the machine.
func (m *Machine) Fail(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages[stage] = StatusError
	m.status = MachineError
	m.current = ""
	m.history = append(m.history, "error:"+stage)
}

// Stop returns the machine to idle without discarding accumulated inputs
// or stage progress. Start resumes from where the run left off.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = MachineIdle
	m.current = ""
	m.history = append(m.history, "stop")
}

// Reset clears accumulated inputs and stage statuses but keeps the history.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	m.status = MachineIdle
	m.history = append(m.history, "reset")
}

// History returns the machine's event log. It survives Reset.
func (m *Machine) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.history...)
}

// Snapshot returns the current machine state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	stages := make(map[string]string, len(m.stages))
	for k, v := range m.stages {
		stages[k] = v
	}
	inputs := make(map[string]bool, len(m.inputs))
	for k, v := range m.inputs {
		inputs[k] = v
	}
	return Snapshot{Status: m.status, CurrentStage: m.current, Stages: stages, Inputs: inputs}
}

// advanceLocked activates the next runnable stage: the first stage in order
// that is still waiting, provided everything before it completed and its
// required inputs are present.
func (m *Machine) advanceLocked() {
	for _, stage := range StageOrder {
		switch m.stages[stage] {
		case StatusComplete:
			continue
		case StatusActive:
			// Resuming after Stop: the stage is already active, so
			// reinstate it as current.
			m.current = stage
			return
		case StatusError:
			return
		}
		// Stage is waiting. Activate only when its inputs are in.
		for _, input := range requiredInputs[stage] {
			if !m.inputs[input] {
				return
			}
		}
		m.stages[stage] = StatusActive
		m.current = stage
		m.history = append(m.history, "activate:"+stage)
		return
	}
}
