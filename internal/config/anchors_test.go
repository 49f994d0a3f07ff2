package config

import "testing"

func TestModelPath(t *testing.T) {
	t.Setenv("ANCHORS_MODEL_PATH", "")
	if got := ModelPath("a.onnx"); got != "a.onnx" {
		t.Errorf("ModelPath() = %q, want default", got)
	}

	t.Setenv("ANCHORS_MODEL_PATH", "/models/b.onnx")
	if got := ModelPath("a.onnx"); got != "/models/b.onnx" {
		t.Errorf("ModelPath() = %q, want env override", got)
	}
}

func TestDashboardURL(t *testing.T) {
	t.Setenv("ANCHORS_DASHBOARD_URL", "")
	t.Setenv("ANCHORS_DASHBOARD_PORT", "9000")
	if got := DashboardURL("localhost"); got != "ws://localhost:9000/ws/markers" {
		t.Errorf("DashboardURL() = %q", got)
	}

	t.Setenv("ANCHORS_DASHBOARD_URL", "ws://example:1/ws/markers")
	if got := DashboardURL("localhost"); got != "ws://example:1/ws/markers" {
		t.Errorf("DashboardURL() = %q, want env override", got)
	}
}

func TestFloat(t *testing.T) {
	tests := []struct {
		env  string
		want float64
	}{
		{"", 0.2},
		{"0.35", 0.35},
		{"nope", 0.2},
	}

	for _, tt := range tests {
		t.Setenv("ANCHORS_MERGE_THRESHOLD", tt.env)
		if got := Float("ANCHORS_MERGE_THRESHOLD", 0.2); got != tt.want {
			t.Errorf("Float(%q) = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestDashboardAPI(t *testing.T) {
	t.Setenv("ANCHORS_DASHBOARD_API", "")
	t.Setenv("ANCHORS_DASHBOARD_PORT", "9000")
	if got := DashboardAPI("robot.local"); got != "http://robot.local:9000/api" {
		t.Errorf("DashboardAPI() = %q", got)
	}

	t.Setenv("ANCHORS_DASHBOARD_API", "http://example:1/api/")
	if got := DashboardAPI("robot.local"); got != "http://example:1/api" {
		t.Errorf("DashboardAPI() = %q, want env override", got)
	}
}
