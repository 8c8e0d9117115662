package configstore

import "testing"

func TestAdd_NoOverwriteByDefault(t *testing.T) {
	s := New()
	if !s.Add(Key{Name: "HeartbeatInterval", Value: "60", Visible: true}, false) {
		t.Fatalf("expected first add to succeed")
	}
	if s.Add(Key{Name: "HeartbeatInterval", Value: "120", Visible: true}, false) {
		t.Fatalf("expected second add without overwrite to fail")
	}
	k, _ := s.Get("HeartbeatInterval")
	if k.Value != "60" {
		t.Fatalf("got %q want 60", k.Value)
	}
}

func TestAdd_Overwrite(t *testing.T) {
	s := New()
	s.Add(Key{Name: "k", Value: "1"}, false)
	s.Add(Key{Name: "k", Value: "2"}, true)
	k, _ := s.Get("k")
	if k.Value != "2" {
		t.Fatalf("got %q want 2", k.Value)
	}
}

func TestSetValue_ReadonlyRejected(t *testing.T) {
	s := New()
	s.Add(Key{Name: "ro", Value: "x", Readonly: true}, false)
	if _, err := s.SetValue("ro", "y"); err == nil {
		t.Fatalf("expected error setting readonly key")
	}
}

func TestSetValue_ReturnsRebootFlag(t *testing.T) {
	s := New()
	s.Add(Key{Name: "NeedsReboot", Value: "a", Reboot: true}, false)
	reboot, err := s.SetValue("NeedsReboot", "b")
	if err != nil {
		t.Fatal(err)
	}
	if !reboot {
		t.Fatalf("expected reboot flag true")
	}
}

func TestGetConfiguration_FiltersInvisible(t *testing.T) {
	s := New()
	s.Add(Key{Name: "Visible1", Value: "a", Visible: true}, false)
	s.Add(Key{Name: "Hidden1", Value: "b", Visible: false}, false)

	found, unknown := s.GetConfiguration()
	if len(unknown) != 0 {
		t.Fatalf("unexpected unknown: %v", unknown)
	}
	if len(found) != 1 || found[0].Name != "Visible1" {
		t.Fatalf("got %+v", found)
	}
}

func TestGetConfiguration_UnknownNames(t *testing.T) {
	s := New()
	s.Add(Key{Name: "A", Value: "1", Visible: true}, false)

	found, unknown := s.GetConfiguration("A", "B")
	if len(found) != 1 {
		t.Fatalf("got %d found", len(found))
	}
	if len(unknown) != 1 || unknown[0] != "B" {
		t.Fatalf("got %v", unknown)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	s.Add(Key{Name: "A", Value: "1"}, false)
	s.Delete("A")
	if _, ok := s.Get("A"); ok {
		t.Fatalf("expected key to be deleted")
	}
}

func TestAllKeys_IncludesInvisible(t *testing.T) {
	s := New()
	s.Add(Key{Name: "A", Visible: true}, false)
	s.Add(Key{Name: "B", Visible: false}, false)
	if got := len(s.AllKeys()); got != 2 {
		t.Fatalf("got %d want 2", got)
	}
}
