package monitor

import (
	"testing"
	"time"

	"github.com/jerryjalapeno/claude-island/internal/types"
)

func subagentCall(id string) types.SubagentToolCall {
	return types.SubagentToolCall{ToolID: id, Name: "Bash", Status: types.ToolStatusRunning}
}

func TestToolTrackerDedupAndDrain(t *testing.T) {
	tracker := newToolTracker()
	at := time.Now()

	if !tracker.Start("t1", "Bash", at) {
		t.Fatal("first start rejected")
	}
	if tracker.Start("t1", "Bash", at) {
		t.Fatal("duplicate start accepted")
	}
	if !tracker.Complete("t1") {
		t.Fatal("completion of in-progress tool rejected")
	}
	if tracker.Complete("t1") {
		t.Fatal("second completion accepted")
	}
	// Completion never forgets the id for dedup purposes.
	if tracker.Start("t1", "Bash", at) {
		t.Fatal("completed id restarted")
	}

	tracker.Start("t2", "Read", at)
	tracker.Start("t3", "Write", at)
	drained := tracker.DrainInProgress()
	if len(drained) != 2 {
		t.Fatalf("drained = %d, want 2", len(drained))
	}
	if tracker.InProgressCount() != 0 {
		t.Fatalf("in-progress after drain = %d, want 0", tracker.InProgressCount())
	}
	if !tracker.Seen("t2") {
		t.Fatal("drain dropped seen state")
	}

	tracker.Reset()
	if tracker.Seen("t2") {
		t.Fatal("reset kept seen state")
	}
}

func TestSubagentAttribution(t *testing.T) {
	tracker := newSubagentTracker()
	at := time.Now()

	tracker.StartTask("task1", "", "first", "general", at)
	tracker.StartTask("task2", "agent-xyz", "second", "general", at.Add(time.Second))

	// No explicit parent: the most recently started active task claims it.
	ctx := tracker.AddTool("", subagentCall("n1"))
	if ctx == nil || ctx.TaskID != "task2" {
		t.Fatalf("unattributed call went to %v, want task2", ctx)
	}
	// An explicit parent always wins.
	ctx = tracker.AddTool("task1", subagentCall("n2"))
	if ctx == nil || ctx.TaskID != "task1" {
		t.Fatalf("explicit call went to %v, want task1", ctx)
	}
	// Duplicate tool ids are absorbed.
	tracker.AddTool("task1", subagentCall("n2"))
	if got := len(tracker.tasks["task1"].Tools); got != 1 {
		t.Fatalf("task1 tools = %d, want 1", got)
	}

	// Stop by agent id retires task2, shifting attribution back to task1.
	if ctx := tracker.StopTask("agent-xyz"); ctx == nil || ctx.TaskID != "task2" {
		t.Fatalf("stop by agent id = %v, want task2", ctx)
	}
	ctx = tracker.AddTool("", subagentCall("n3"))
	if ctx == nil || ctx.TaskID != "task1" {
		t.Fatalf("post-stop attribution = %v, want task1", ctx)
	}

	tracker.StopAll()
	if tracker.HasActive() {
		t.Fatal("active tasks remain after StopAll")
	}
	if tracker.AddTool("", subagentCall("n4")) != nil {
		t.Fatal("unattributed call found a home with nothing active")
	}
}
