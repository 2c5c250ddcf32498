package logging

import "testing"

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Named("sim").Debugw("added plane", "height", 0.1)
	logger.Infow("run finished", "steps", 10)

	if logs.Len() != 2 {
		t.Fatalf("recorded %d entries, want 2", logs.Len())
	}
	entry := logs.FilterMessage("added plane").All()[0]
	if entry.LoggerName != "sim" {
		t.Errorf("logger name = %q, want sim", entry.LoggerName)
	}
	if got := entry.ContextMap()["height"]; got != 0.1 {
		t.Errorf("height field = %v, want 0.1", got)
	}
}

func TestNopLoggerIsSilent(t *testing.T) {
	l := NewNop().Named("quiet")
	l.Errorw("ignored", "k", 1)
	if err := l.Sync(); err != nil {
		t.Errorf("Sync() = %v", err)
	}
}
