package device

import "testing"

func alwaysPresent(uint32) bool { return true }

func TestPickQueueFamilies_PrefersDedicatedTransfer(t *testing.T) {
	props := []queueFamilyFlags{
		{Graphics: true, Compute: true, Transfer: true},  // 0: combined
		{Graphics: false, Compute: false, Transfer: true}, // 1: dedicated transfer
	}
	g, c, tr, err := pickQueueFamilies(props, alwaysPresent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g != 0 {
		t.Fatalf("graphics family = %d, want 0", g)
	}
	if c != 0 {
		t.Fatalf("compute family = %d, want 0 (no dedicated compute family present)", c)
	}
	if tr != 1 {
		t.Fatalf("transfer family = %d, want 1 (dedicated transfer family)", tr)
	}
}

func TestPickQueueFamilies_AliasesTransferAsLastResort(t *testing.T) {
	props := []queueFamilyFlags{
		{Graphics: true, Compute: true, Transfer: true},
	}
	g, _, tr, err := pickQueueFamilies(props, alwaysPresent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr != g {
		t.Fatalf("transfer family = %d, want aliased to graphics family %d", tr, g)
	}
}

func TestPickQueueFamilies_DedicatedComputePreferred(t *testing.T) {
	props := []queueFamilyFlags{
		{Graphics: true, Compute: true, Transfer: false},
		{Graphics: false, Compute: true, Transfer: false},
	}
	_, c, _, err := pickQueueFamilies(props, alwaysPresent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != 1 {
		t.Fatalf("compute family = %d, want 1 (dedicated compute family)", c)
	}
}

func TestPickQueueFamilies_NoGraphicsCapablePresentFamily(t *testing.T) {
	props := []queueFamilyFlags{
		{Graphics: false, Compute: true, Transfer: true},
	}
	_, _, _, err := pickQueueFamilies(props, alwaysPresent)
	if err != errNoQueueFamily {
		t.Fatalf("err = %v, want errNoQueueFamily", err)
	}
}
