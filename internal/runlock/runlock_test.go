package runlock

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/chessvault/internal/domain"
)

func newTestLock(t *testing.T) *Lock {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	l, err := New(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("runlock.New: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestAcquireRelease(t *testing.T) {
	l := newTestLock(t)
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, domain.PlatformChessCom, "magnus")
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	// Second acquire for the same pair must be refused while held.
	if _, ok, err := l.Acquire(ctx, domain.PlatformChessCom, "magnus"); err != nil || ok {
		t.Fatalf("second acquire while held: ok=%v err=%v", ok, err)
	}

	// A different pair is independent.
	release2, ok, err := l.Acquire(ctx, domain.PlatformLichess, "magnus")
	if err != nil || !ok {
		t.Fatalf("other-platform acquire: ok=%v err=%v", ok, err)
	}
	release2()

	release()
	if _, ok, err := l.Acquire(ctx, domain.PlatformChessCom, "magnus"); err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestAcquireNormalizesUsername(t *testing.T) {
	l := newTestLock(t)
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, domain.PlatformLichess, "  Hikaru ")
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	defer release()

	if _, ok, _ := l.Acquire(ctx, domain.PlatformLichess, "hikaru"); ok {
		t.Fatalf("case/space variant should map to the same lease")
	}
}
