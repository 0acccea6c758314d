package geo

import "testing"

func TestOpen_EmptyPath_ReturnsNoOpReader(t *testing.T) {
	r, err := Open("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil {
		t.Fatal("expected non-nil Reader")
	}
}

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open("/nonexistent/GeoLite2-Country.mmdb"); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestCountry_NoOpReader(t *testing.T) {
	r, _ := Open("")
	if got := r.Country("8.8.8.8"); got != "" {
		t.Errorf("country = %q, want empty", got)
	}
}

func TestCountry_InvalidIP(t *testing.T) {
	r, _ := Open("")
	if got := r.Country("not-an-ip"); got != "" {
		t.Errorf("country = %q, want empty", got)
	}
}

func TestCountry_NilReader(t *testing.T) {
	var r *Reader
	if got := r.Country("1.1.1.1"); got != "" {
		t.Errorf("country = %q, want empty", got)
	}
	r.Close() // should not panic
}
