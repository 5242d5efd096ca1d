package gpio

import (
	"errors"
	"testing"
)

func TestFakeReaderRead(t *testing.T) {
	f := NewFakeReader(false, true, true)

	want := []bool{false, true, true, true}
	for i, w := range want {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if got != w {
			t.Errorf("read %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader()
	if _, err := f.Read(); err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeReaderReadError(t *testing.T) {
	f := NewFakeReader(true)
	f.ReadError = errors.New("line gone")
	if _, err := f.Read(); err == nil || err.Error() != "line gone" {
		t.Errorf("expected scripted error, got %v", err)
	}
}

func TestFakeReaderClose(t *testing.T) {
	f := NewFakeReader(false)
	if err := f.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("expected Closed to be true")
	}
}

func TestDebouncerBaseline(t *testing.T) {
	d := NewDebouncer(50)

	if e := d.Process(false, 0); e != NoEdge {
		t.Errorf("expected no edge during baseline, got %s", e)
	}
	if e := d.Process(false, 40); e != NoEdge || d.baselined {
		t.Errorf("should not be baselined before debounce period (edge %s)", e)
	}
	if e := d.Process(false, 50); e != NoEdge {
		t.Errorf("expected no edge at baseline, got %s", e)
	}
	if !d.baselined {
		t.Fatal("should be baselined after debounce period")
	}
	if d.stable {
		t.Error("expected released baseline")
	}
}

func TestDebouncerHeldAtBootDoesNotFire(t *testing.T) {
	d := NewDebouncer(50)
	d.Process(true, 0)
	d.Process(true, 60)
	if !d.baselined || !d.stable {
		t.Fatal("expected pressed baseline")
	}
	if e := d.Process(true, 500); e != NoEdge {
		t.Errorf("expected no edge while still held, got %s", e)
	}
	d.Process(false, 600)
	if e := d.Process(false, 650); e != Released {
		t.Errorf("expected RELEASED, got %s", e)
	}
}

func TestDebouncerPressAndRelease(t *testing.T) {
	d := NewDebouncer(50)
	d.Process(false, 0)
	d.Process(false, 50)

	tests := []struct {
		name    string
		pressed bool
		ms      uint32
		want    Edge
	}{
		{"press starts pending", true, 100, NoEdge},
		{"still bouncing", true, 120, NoEdge},
		{"press confirmed", true, 150, Pressed},
		{"held", true, 400, NoEdge},
		{"release pending", false, 500, NoEdge},
		{"release confirmed", false, 560, Released},
	}
	for _, tt := range tests {
		if got := d.Process(tt.pressed, tt.ms); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

func TestDebouncerGlitchIgnored(t *testing.T) {
	d := NewDebouncer(50)
	d.Process(false, 0)
	d.Process(false, 50)

	d.Process(true, 100)
	d.Process(false, 110)
	if e := d.Process(true, 160); e != NoEdge {
		t.Errorf("glitch restarted pending; expected no edge, got %s", e)
	}
	if e := d.Process(true, 210); e != Pressed {
		t.Errorf("expected PRESSED after steady level, got %s", e)
	}
}

func TestDebouncerBaselineResetOnChange(t *testing.T) {
	d := NewDebouncer(50)
	d.Process(true, 0)
	d.Process(false, 30)
	d.Process(false, 60)
	if d.baselined {
		t.Error("should not be baselined: level changed inside the window")
	}
	d.Process(false, 80)
	if !d.baselined || d.stable {
		t.Error("expected released baseline after a steady window")
	}
}
