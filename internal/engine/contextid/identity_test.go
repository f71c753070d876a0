package contextid

import "testing"

func TestParseKind(t *testing.T) {
	tests := []struct {
		raw  string
		want Kind
	}{
		{"", KindShared},
		{"shared", KindShared},
		{"independent", KindIndependent},
		{"template", KindTemplate},
		{"global", KindGlobal},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.raw)
		if err != nil || got != tt.want {
			t.Fatalf("ParseKind(%q) = %v, %v; want %v", tt.raw, got, err, tt.want)
		}
	}
	if _, err := ParseKind("elsewhere"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestCrossResolves(t *testing.T) {
	a := New(KindIndependent, "Level/EnemyA")
	a2 := New(KindIndependent, "Level/EnemyA")
	b := New(KindIndependent, "Level/EnemyB")
	shared := New(KindShared, "")
	g := Global()

	ids := []Identity{a, a2, b, shared, g}
	for _, x := range ids {
		for _, y := range ids {
			if CrossResolves(x, y) != CrossResolves(y, x) {
				t.Fatalf("CrossResolves(%v, %v) is not symmetric", x, y)
			}
		}
	}

	tests := []struct {
		x, y Identity
		want bool
	}{
		{a, a2, true},
		{a, b, false},
		{a, shared, false},
		{a, g, true},
		{g, shared, true},
		{New(KindShared, "x"), New(KindTemplate, "x"), false},
	}
	for _, tt := range tests {
		if got := CrossResolves(tt.x, tt.y); got != tt.want {
			t.Errorf("CrossResolves(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestIdentityString(t *testing.T) {
	if got := New(KindTemplate, "Prefabs/Door").String(); got != "template:Prefabs/Door" {
		t.Fatalf("unexpected string %q", got)
	}
	if got := Global().String(); got != "global" {
		t.Fatalf("unexpected string %q", got)
	}
}
