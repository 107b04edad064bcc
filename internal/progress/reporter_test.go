package progress

import "testing"

func TestNewReporterCI(t *testing.T) {
	t.Setenv("CI", "true")
	r := NewReporter("sync")
	ci, ok := r.(*CIReporter)
	if !ok {
		t.Fatalf("expected CIReporter, got %T", r)
	}
	ci.Start(3)
	ci.Update(1, "Vignette/000001.jpg")
	ci.Finish()
	if ci.total != 3 || ci.label != "sync" {
		t.Errorf("unexpected reporter state: %+v", ci)
	}
}

func TestNewReporterTerminal(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "")
	if _, ok := NewReporter("scan").(*TerminalReporter); !ok {
		t.Error("expected TerminalReporter outside CI")
	}
}
