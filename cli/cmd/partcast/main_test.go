package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/partcast/partcast/pkg/types"
)

func runArgs(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"partcast"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestProjectLocalJSON(t *testing.T) {
	code, out, errOut := runArgs(t, "project",
		"--part", "Battery",
		"--current-km", "45000",
		"--last-service-km", "25000",
		"--interval-km", "20000",
		"--months-since-service", "12",
		"--interval-months", "36",
		"--climate", "cold",
		"--points", "11",
		"--format", "json",
	)
	if code != 0 {
		t.Fatalf("exit code: got %d, want 0 (stderr: %s)", code, errOut)
	}

	var resp types.ProjectionResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if resp.PartType != "battery" {
		t.Errorf("part_type: got %q, want battery", resp.PartType)
	}
	if len(resp.XKm) != 11 || len(resp.RiskPct) != 11 {
		t.Errorf("curve length: got %d/%d, want 11", len(resp.XKm), len(resp.RiskPct))
	}
	if resp.Meta.TNowKm != 20000 {
		t.Errorf("t_now_km: got %v, want 20000", resp.Meta.TNowKm)
	}
	if resp.Temporal == nil {
		t.Error("temporal summary missing")
	}
}

func TestProjectLocalTable(t *testing.T) {
	code, out, errOut := runArgs(t, "project",
		"--part", "brakes",
		"--current-km", "52000",
		"--last-service-km", "30000",
		"--interval-km", "30000",
	)
	if code != 0 {
		t.Fatalf("exit code: got %d, want 0 (stderr: %s)", code, errOut)
	}
	if !strings.Contains(out, "brakes") {
		t.Errorf("table output does not mention the part:\n%s", out)
	}
}

func TestProjectUnsupportedPartExits2(t *testing.T) {
	code, _, errOut := runArgs(t, "project", "--part", "flux-capacitor", "--interval-km", "1000")
	if code != exitUnsupportedPart {
		t.Fatalf("exit code: got %d, want %d", code, exitUnsupportedPart)
	}
	if !strings.Contains(errOut, "flux-capacitor") {
		t.Errorf("stderr should name the part, got %q", errOut)
	}
}

func TestProjectValidationExits1(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero interval", []string{"project", "--part", "brakes", "--interval-km", "0"}},
		{"negative km", []string{"project", "--part", "brakes", "--interval-km", "1000", "--current-km", "-5"}},
		{"one point", []string{"project", "--part", "brakes", "--interval-km", "1000", "--points", "1"}},
		{"bad format", []string{"project", "--part", "brakes", "--interval-km", "1000", "--format", "xml"}},
		{"missing part", []string{"project", "--interval-km", "1000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runArgs(t, tt.args...)
			if code != exitError {
				t.Errorf("exit code: got %d, want %d", code, exitError)
			}
		})
	}
}

func TestProjectWritesChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	code, _, errOut := runArgs(t, "project",
		"--part", "tires",
		"--current-km", "10000",
		"--interval-km", "40000",
		"--points", "21",
		"--chart", path,
		"--format", "json",
	)
	if code != 0 {
		t.Fatalf("exit code: got %d, want 0 (stderr: %s)", code, errOut)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("chart is not a PNG file")
	}
}

func TestPartsJSON(t *testing.T) {
	code, out, _ := runArgs(t, "parts", "--format", "json")
	if code != 0 {
		t.Fatalf("exit code: got %d, want 0", code)
	}
	var resp types.PartsResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(resp.Parts) != 7 {
		t.Errorf("parts: got %d, want 7", len(resp.Parts))
	}
}

func TestRemoteUnsupportedPartExits2(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(types.ErrorResponse{Error: "unsupported part: gearbox", Part: "gearbox"})
	}))
	defer srv.Close()

	code, _, errOut := runArgs(t, "remote", "--server", srv.URL, "--part", "gearbox", "--interval-km", "1000")
	if code != exitUnsupportedPart {
		t.Fatalf("exit code: got %d, want %d (stderr: %s)", code, exitUnsupportedPart, errOut)
	}
}

func TestRemoteProject(t *testing.T) {
	var got types.ProjectionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/failures/projection" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(types.ProjectionResponse{
			ID:       "abc",
			PartType: "brakes",
			XKm:      []float64{0, 100},
			RiskPct:  []float64{0, 1.5},
		})
	}))
	defer srv.Close()

	code, out, errOut := runArgs(t, "remote", "--server", srv.URL,
		"--part", "brakes", "--current-km", "500", "--interval-km", "30000", "--vehicle-id", "van-7", "--format", "json")
	if code != 0 {
		t.Fatalf("exit code: got %d, want 0 (stderr: %s)", code, errOut)
	}
	if got.PartType != "brakes" || got.VehicleID != "van-7" || got.CurrentKm != 500 {
		t.Errorf("server received %+v", got)
	}
	if !strings.Contains(out, `"id": "abc"`) {
		t.Errorf("output missing response id:\n%s", out)
	}
}
