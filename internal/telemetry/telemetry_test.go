package telemetry

import (
	"context"
	"testing"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "debridops"})
	if err != nil {
		t.Fatalf("Init without endpoint: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Init returned nil shutdown")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}

func TestConfigAttributes(t *testing.T) {
	cfg := Config{
		ServiceName:    "debridops",
		ServiceVersion: "1.2.3",
		Environment:    "staging",
	}

	attrs := cfg.attributes()
	want := map[string]string{
		string(semconv.ServiceNameKey):           "debridops",
		string(semconv.ServiceVersionKey):        "1.2.3",
		string(semconv.DeploymentEnvironmentKey): "staging",
	}
	if len(attrs) != len(want) {
		t.Fatalf("got %d attributes, want %d: %v", len(attrs), len(want), attrs)
	}
	for _, attr := range attrs {
		if got := attr.Value.AsString(); got != want[string(attr.Key)] {
			t.Errorf("%s = %q, want %q", attr.Key, got, want[string(attr.Key)])
		}
	}
}

func TestConfigAttributesSkipsEmptyFields(t *testing.T) {
	attrs := Config{ServiceName: "debridops"}.attributes()
	if len(attrs) != 1 {
		t.Fatalf("got %d attributes, want only the service name: %v", len(attrs), attrs)
	}
	if string(attrs[0].Key) != string(semconv.ServiceNameKey) {
		t.Errorf("unexpected attribute %s", attrs[0].Key)
	}
}

func TestConfigSampleRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want float64
	}{
		{"unset", 0, defaultSampleRate},
		{"negative", -0.5, defaultSampleRate},
		{"above one", 1.5, defaultSampleRate},
		{"valid", 0.25, 0.25},
		{"full sampling", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Config{SampleRate: tt.rate}).sampleRate(); got != tt.want {
				t.Errorf("sampleRate(%v) = %v, want %v", tt.rate, got, tt.want)
			}
		})
	}
}
