package pipeline

import (
	"testing"
)

func TestMachineRunsStagesInOrder(t *testing.T) {
	m := NewMachine(nil)
	m.Start()

	snap := m.Snapshot()
	if snap.Status != MachineRunning || snap.CurrentStage != StageCollect {
		t.Fatalf("after Start: %+v, want running/collect", snap)
	}

	// Completing collect without the template stage's inputs parks the run.
	if err := m.Complete(StageCollect); err != nil {
		t.Fatalf("Complete(collect) error = %v", err)
	}
	snap = m.Snapshot()
	if snap.Stages[StageTemplate] != StatusWaiting {
		t.Errorf("template = %s, want waiting until inputs arrive", snap.Stages[StageTemplate])
	}

	// Inputs arriving asynchronously unpark the next stage.
	m.Supply(InputTemplate)
	if m.Snapshot().Stages[StageTemplate] != StatusWaiting {
		t.Error("template must stay parked with only one of two inputs")
	}
	m.Supply(InputUserData)
	if got := m.Snapshot().Stages[StageTemplate]; got != StatusActive {
		t.Errorf("template = %s, want active once both inputs present", got)
	}

	m.Supply(InputZones)
	if err := m.Complete(StageTemplate); err != nil {
		t.Fatal(err)
	}
	if got := m.Snapshot().Stages[StageGenerate]; got != StatusActive {
		t.Errorf("generate = %s, want active", got)
	}

	m.Supply(InputGenerated)
	if err := m.Complete(StageGenerate); err != nil {
		t.Fatal(err)
	}
	if err := m.Complete(StageComposite); err != nil {
		t.Fatal(err)
	}
	if got := m.Snapshot().Status; got != MachineComplete {
		t.Errorf("status = %s, want complete", got)
	}
}

func TestMachineCompletionFiresExactlyOnce(t *testing.T) {
	fired := 0
	m := NewMachine(func() { fired++ })
	m.Start()
	for _, input := range []string{InputTemplate, InputUserData, InputZones, InputGenerated} {
		m.Supply(input)
	}
	for _, stage := range StageOrder {
		if err := m.Complete(stage); err != nil {
			t.Fatalf("Complete(%s) error = %v", stage, err)
		}
	}
	if fired != 1 {
		t.Errorf("completion fired %d times, want 1", fired)
	}

	// A second completion of the final stage is rejected and must not re-fire.
	if err := m.Complete(StageComposite); err == nil {
		t.Error("completing a completed stage should fail")
	}
	if fired != 1 {
		t.Errorf("completion fired %d times after duplicate, want 1", fired)
	}
}

func TestMachineOutOfOrderCompletionRejected(t *testing.T) {
	m := NewMachine(nil)
	m.Start()
	if err := m.Complete(StageComposite); err == nil {
		t.Error("completing a waiting stage should fail")
	}
}

func TestMachineStopKeepsData(t *testing.T) {
	m := NewMachine(nil)
	m.Start()
	m.Supply(InputTemplate)
	m.Supply(InputUserData)
	if err := m.Complete(StageCollect); err != nil {
		t.Fatal(err)
	}

	m.Stop()
	snap := m.Snapshot()
	if snap.Status != MachineIdle {
		t.Errorf("status = %s, want idle", snap.Status)
	}
	if !snap.Inputs[InputTemplate] || !snap.Inputs[InputUserData] {
		t.Error("Stop must not discard accumulated inputs")
	}
	if snap.Stages[StageCollect] != StatusComplete {
		t.Error("Stop must not reset stage progress")
	}

	// Start resumes where the run left off.
	m.Start()
	if got := m.Snapshot().Stages[StageTemplate]; got != StatusActive {
		t.Errorf("template after resume = %s, want active", got)
	}
}

func TestMachineResumeRestoresCurrentStage(t *testing.T) {
	m := NewMachine(nil)
	m.Start()
	m.Supply(InputTemplate)
	m.Supply(InputUserData)
	if err := m.Complete(StageCollect); err != nil {
		t.Fatal(err)
	}
	if got := m.Snapshot().CurrentStage; got != StageTemplate {
		t.Fatalf("current = %q, want template before stop", got)
	}

	// Stop de-currents the active stage without resetting it; Start must
	// reinstate it as current, not leave the snapshot stageless.
	m.Stop()
	if got := m.Snapshot().CurrentStage; got != "" {
		t.Errorf("current = %q, want empty while idle", got)
	}
	m.Start()
	snap := m.Snapshot()
	if snap.CurrentStage != StageTemplate {
		t.Errorf("current after resume = %q, want template", snap.CurrentStage)
	}
	if snap.Stages[StageTemplate] != StatusActive {
		t.Errorf("template after resume = %s, want active", snap.Stages[StageTemplate])
	}
}

func TestMachineResetClearsDataKeepsHistory(t *testing.T) {
	m := NewMachine(nil)
	m.Start()
	m.Supply(InputTemplate)
	m.Supply(InputUserData)
	if err := m.Complete(StageCollect); err != nil {
		t.Fatal(err)
	}
	historyBefore := len(m.History())

	m.Reset()
	snap := m.Snapshot()
	if snap.Status != MachineIdle {
		t.Errorf("status = %s, want idle", snap.Status)
	}
	for stage, status := range snap.Stages {
		if status != StatusWaiting {
			t.Errorf("stage %s = %s, want waiting after Reset", stage, status)
		}
	}
	if len(snap.Inputs) != 0 {
		t.Error("Reset must clear accumulated inputs")
	}
	if len(m.History()) <= historyBefore {
		t.Error("Reset must preserve (and extend) the history")
	}
}

func TestMachineFailHalts(t *testing.T) {
	m := NewMachine(nil)
	m.Start()
	m.Fail(StageCollect)
	snap := m.Snapshot()
	if snap.Status != MachineError {
		t.Errorf("status = %s, want error", snap.Status)
	}
	if snap.Stages[StageCollect] != StatusError {
		t.Errorf("collect = %s, want error", snap.Stages[StageCollect])
	}
}
