package enums

import "testing"

func TestParseMediaStatus(t *testing.T) {
	t.Parallel()

	status, err := ParseMediaStatus("ready")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != MediaStatusReady {
		t.Fatalf("status = %s, want ready", status)
	}

	if _, err := ParseMediaStatus("uploaded"); err == nil {
		t.Fatal("expected error for unknown media status")
	}
}

func TestParseJobStatus(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"queued", "active", "failed"} {
		status, err := ParseJobStatus(raw)
		if err != nil {
			t.Fatalf("ParseJobStatus(%q): %v", raw, err)
		}
		if !status.IsValid() {
			t.Fatalf("%s should be valid", status)
		}
	}

	if _, err := ParseJobStatus("succeeded"); err == nil {
		t.Fatal("succeeded is not a stored status")
	}
}

func TestParseVariantKind(t *testing.T) {
	t.Parallel()

	kind, err := ParseVariantKind("thumb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != VariantKindThumb {
		t.Fatalf("kind = %s, want thumb", kind)
	}

	if VariantKind("webp").IsValid() {
		t.Fatal("webp is a format, not a variant kind")
	}
}

func TestParseUserRole(t *testing.T) {
	t.Parallel()

	role, err := ParseUserRole("admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != UserRoleAdmin {
		t.Fatalf("role = %s, want admin", role)
	}

	if _, err := ParseUserRole("root"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
