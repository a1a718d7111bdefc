package eventfabric

import "testing"

func TestLatestValueSemantics(t *testing.T) {
	l := NewLatest(1)
	if v, ver := l.Get(); v != 1 || ver != 0 {
		t.Fatalf("Get() = %v/%v, want 1/0", v, ver)
	}

	l.Publish(2)
	l.Publish(3)

	v, ver := l.Get()
	if v != 3 {
		t.Fatalf("Get() after two publishes = %v, want 3 (latest only)", v)
	}
	if ver != 2 {
		t.Fatalf("Get() version = %v, want 2", ver)
	}
}

func TestChangedSignalsNextPublish(t *testing.T) {
	l := NewLatest(0)
	ch := l.Changed()
	select {
	case <-ch:
		t.Fatal("Changed() channel fired before any publish")
	default:
	}

	l.Publish(1)
	select {
	case <-ch:
	default:
		t.Fatal("Changed() channel did not fire after Publish")
	}
}

func TestNewFabricDefaults(t *testing.T) {
	f := New()
	if v, _ := f.Model.Get(); v != nil {
		t.Fatalf("Model.Get() = %v, want nil before first publish", v)
	}
	if v, _ := f.Stats.Get(); v != nil {
		t.Fatalf("Stats.Get() = %v, want nil before first publish", v)
	}
	if v, _ := f.State.Get(); v != StateIdle {
		t.Fatalf("State.Get() = %v, want StateIdle", v)
	}
}
