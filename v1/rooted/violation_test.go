package rooted

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	rerrors "github.com/mirkobrombin/go-rooted/v1/errors"
	"github.com/mirkobrombin/go-rooted/v1/metrics"
)

// The default handler is never left installed here: a handle leaked by
// another test could reach it from the finalizer goroutine.
func TestSetViolationHandlerNilInstallsDefault(t *testing.T) {
	restore := SetViolationHandler(nil)
	installed := handler.Load()
	restore()
	if installed != nil {
		t.Fatal("nil handler did not restore the default")
	}
	if handler.Load() == nil {
		t.Fatal("restore did not reinstall the previous handler")
	}
}

func TestDefaultViolationHandlerLogsAndPanics(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	root := NewRoot()
	expectViolation(t, rerrors.ErrUnreleased, func() {
		defaultViolationHandler(violation(rerrors.ErrUnreleased, root.Tag(), "Rc[int] collected without Release"))
	})

	out := buf.String()
	if !strings.Contains(out, "lock-discipline violation") || !strings.Contains(out, root.Tag().String()) {
		t.Fatalf("violation not logged, got %q", out)
	}
}

func TestReportCountsAndDelivers(t *testing.T) {
	root := NewRoot()
	var got []error
	restore := SetViolationHandler(func(err error) {
		var ve *ViolationError
		if errors.As(err, &ve) && ve.Tag == root.Tag() {
			got = append(got, err)
		}
	})
	defer restore()

	counter := metrics.ViolationCounter.WithLabelValues("unreleased")
	before := testutil.ToFloat64(counter)
	report(violation(rerrors.ErrUnreleased, root.Tag(), "Rc[int] collected without Release"))

	if len(got) != 1 || !errors.Is(got[0], rerrors.ErrUnreleased) {
		t.Fatalf("expected one ErrUnreleased delivered, got %v", got)
	}
	// Finalizers from other tests may report concurrently.
	if d := testutil.ToFloat64(counter) - before; d < 1 {
		t.Fatalf("unreleased violation not counted (delta %v)", d)
	}
}
