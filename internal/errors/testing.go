package errors

import "testing"

// AssertIsKind asserts err is of kind k.
func AssertIsKind(t *testing.T, err error, k Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %q, got nil", k)
	}
	if !IsKind(err, k) {
		t.Fatalf("error[%v] is of kind %q, want %q", err, KindOf(err), k)
	}
}

// Assert asserts err is (contains, wraps, etc) target.
func Assert(t *testing.T, err, target error) {
	t.Helper()
	if !Is(err, target) {
		t.Fatalf("error[%v] is not target[%v]", err, target)
	}
}
