package coreerrors

import "testing"

func TestRetryableKinds(t *testing.T) {
	cases := map[Kind]bool{
		ProviderUnavailable: true,
		Timeout:             true,
		Conflict:            true,
		UnknownTask:         false,
		CycleWouldForm:      false,
	}
	for kind, want := range cases {
		err := New(kind, "boom")
		if got := err.Retryable(); got != want {
			t.Errorf("Kind(%s).Retryable() = %v, want %v", kind, got, want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := New(NoReadyTask, "no task fit agent %s", "a1")
	if err.Error() != "NoReadyTask: no task fit agent a1" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestFromPanic(t *testing.T) {
	err := FromPanic("boom")
	if err.Kind != PersistenceFailure {
		t.Fatalf("expected PersistenceFailure, got %s", err.Kind)
	}
}
