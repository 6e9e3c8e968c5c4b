package template

import (
	"reflect"
	"testing"
)

func testResolver() *Resolver {
	config := map[string]any{
		"db": map[string]any{
			"host": "localhost",
			"port": 5432,
		},
		"debug":   false,
		"appName": "shop",
	}
	vars := map[string]any{
		"instance":  2,
		"namespace": "docker-manager.2",
		"hostname":  "edge-01",
	}
	return New(config, vars)
}

func TestResolveStringMustache(t *testing.T) {
	r := testResolver()

	tests := []struct {
		in   string
		want any
	}{
		{"{{db.host}}", "localhost"},
		{"{{config.db.host}}", "localhost"},
		{"{{db.port}}", 5432},
		{"{{debug}}", false},
		{"{{instance}}", 2},
		{"{{missing.path}}", ""},
		{"host={{db.host}}:{{db.port}}", "host=localhost:5432"},
	}
	for _, tt := range tests {
		got := r.ResolveString(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ResolveString(%q) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
		}
	}
}

func TestResolveStringConfigVar(t *testing.T) {
	r := testResolver()

	tests := []struct {
		in   string
		want any
	}{
		{"${config.db.host}", "localhost"},
		{"${config_db_host}", "localhost"},
		{"${config.db.port:-9999}", 5432},
		{"${config.db.missing:-fallback}", "fallback"},
		{"${config.db.missing:-8080}", 8080},
		{"${config.db.missing:-true}", true},
		{"${config.db.missing}", ""},
		{"tcp://${config.db.host}:${config.db.port}", "tcp://localhost:5432"},
	}
	for _, tt := range tests {
		got := r.ResolveString(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ResolveString(%q) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
		}
	}
}

func TestResolveStringAuxVar(t *testing.T) {
	r := testResolver()

	tests := []struct {
		in   string
		want any
	}{
		{"${hostname}", "edge-01"},
		{"${instance}", 2},
		{"${unknown:-7}", 7},
		{"${unknown}", ""},
		{"iob_${instance}_data", "iob_2_data"},
	}
	for _, tt := range tests {
		got := r.ResolveString(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ResolveString(%q) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
		}
	}
}

func TestResolveWholeStringKeepsType(t *testing.T) {
	r := testResolver()

	if got := r.ResolveString("{{debug}}"); got != false {
		t.Errorf("whole-string boolean lookup = %v (%T), want false", got, got)
	}
	if got := r.ResolveString(" {{debug}}"); got != " false" {
		t.Errorf("padded boolean lookup = %v (%T), want \" false\"", got, got)
	}
}

func TestResolveWalksStructures(t *testing.T) {
	r := testResolver()

	in := map[string]any{
		"image": "postgres:{{missing.tag}}16",
		"environment": []any{
			"PGHOST=${config.db.host}",
			"PGPORT=${config.db.port}",
		},
		"deploy": map[string]any{
			"replicas": 3,
		},
	}
	want := map[string]any{
		"image": "postgres:16",
		"environment": []any{
			"PGHOST=localhost",
			"PGPORT=5432",
		},
		"deploy": map[string]any{
			"replicas": 3,
		},
	}
	got := r.Resolve(in)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %#v, want %#v", got, want)
	}
}

func TestResolveIdempotent(t *testing.T) {
	r := testResolver()

	in := "tcp://${config.db.host}:${config.db.port}"
	once := r.ResolveString(in)
	twice := r.Resolve(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second resolve changed result: %v -> %v", once, twice)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"false", false},
		{"42", 42},
		{"-3", -3},
		{"2.5", 2.5},
		{"8080abc", "8080abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Coerce(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Coerce(%q) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
		}
	}
}
