package flushflags

import "testing"

func TestSetClearIsSet(t *testing.T) {
	s := New()
	if s.IsSet(CACHE) {
		t.Error("expected CACHE unset initially")
	}
	s.Set(CACHE)
	if !s.IsSet(CACHE) {
		t.Error("expected CACHE set after Set")
	}
	s.Clear(CACHE)
	if s.IsSet(CACHE) {
		t.Error("expected CACHE unset after Clear")
	}
}

func TestFlagsAreIndependent(t *testing.T) {
	s := New()
	s.Set(PFS)
	if s.IsSet(CACHE) || s.IsSet(FLUSHING) {
		t.Error("setting PFS should not affect CACHE or FLUSHING")
	}
}
