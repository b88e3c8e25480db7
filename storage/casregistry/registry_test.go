package casregistry

import (
	"strings"
	"testing"
	"time"

	"xdao.co/envelope/storage"
)

func TestRegisterValidationAndOpen(t *testing.T) {
	if err := Register(Backend{}); err == nil {
		t.Fatalf("expected error for unnamed backend")
	}
	if err := Register(Backend{Name: "x-no-open", Usage: UsageCLI}); err == nil {
		t.Fatalf("expected error for missing Open")
	}

	var seen Options
	MustRegister(Backend{
		Name:  "test-daemon-only",
		Usage: UsageDaemon,
		Keys:  []string{"k"},
		Open: func(opts Options) (storage.CAS, func() error, error) {
			seen = opts
			return nil, nil, nil
		},
	})
	if err := Register(Backend{Name: "test-daemon-only", Usage: UsageDaemon, Open: func(Options) (storage.CAS, func() error, error) { return nil, nil, nil }}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}

	if _, _, err := Open("test-daemon-only", UsageCLI, nil); err == nil {
		t.Fatalf("expected usage mismatch")
	}
	_, closeFn, err := Open("test-daemon-only", UsageDaemon, Options{"k": "v"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if seen["k"] != "v" {
		t.Fatalf("options not passed through: %v", seen)
	}
	if closeFn == nil || closeFn() != nil {
		t.Fatalf("Open must return a usable close function")
	}

	seen = nil
	_, _, err = Open("test-daemon-only", UsageDaemon, Options{"k": "v", "dri": "/tmp"})
	if err == nil || !strings.Contains(err.Error(), `unknown option(s) dri`) {
		t.Fatalf("expected unknown option error, got %v", err)
	}
	if seen != nil {
		t.Fatalf("Open must not reach the backend with unknown options")
	}
	if _, _, err := Open("nope", UsageCLI, nil); err == nil {
		t.Fatalf("expected unknown backend error")
	}

	found := false
	for _, n := range Names(UsageDaemon) {
		if n == "test-daemon-only" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Names(UsageDaemon) missing registered backend")
	}
}

func TestOptions(t *testing.T) {
	o := Options{"dir": " /tmp/x ", "timeout": "2s", "n": "7", "bad": "x"}
	if o.String("dir", "") != "/tmp/x" || o.String("missing", "def") != "def" {
		t.Fatalf("String mismatch")
	}
	if _, err := o.Require("b", "missing"); err == nil {
		t.Fatalf("expected missing option error")
	}
	if d, err := o.Duration("timeout", 0); err != nil || d != 2*time.Second {
		t.Fatalf("Duration: %v %v", d, err)
	}
	if _, err := o.Duration("bad", 0); err == nil {
		t.Fatalf("expected duration parse error")
	}
	if n, err := o.Int("n", 0); err != nil || n != 7 {
		t.Fatalf("Int: %v %v", n, err)
	}
	if n, err := o.Int("missing", 3); err != nil || n != 3 {
		t.Fatalf("Int default: %v %v", n, err)
	}
}
