package timeseries

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/meshview/pkg/vtk"
)

func TestStepOf(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"data_0.vtk", 0, false},
		{"data_42.vtk", 42, false},
		{"pressure_0007.vtu", 7, false},
		{"run2_frame13.vtk", 13, false},
		{"mesh.vtk", 0, true},
		{"frame_.vtk", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StepOf(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("StepOf() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("StepOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscover_SortsByStep(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "data_2.vtk", "data_0.vtk", "data_10.vtk", "notes.txt")

	frames, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	want := []int{0, 2, 10}
	if len(frames) != len(want) {
		t.Fatalf("len(frames) = %d, want %d", len(frames), len(want))
	}
	for i, f := range frames {
		if f.Step != want[i] {
			t.Errorf("frames[%d].Step = %d, want %d", i, f.Step, want[i])
		}
	}
}

func TestDiscover_SingleFrame(t *testing.T) {
	// a one-file directory is a valid series start; a solver may still
	// be writing the rest
	dir := t.TempDir()
	writeFiles(t, dir, "data_0.vtk")

	frames, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(frames) != 1 || frames[0].Step != 0 {
		t.Errorf("frames = %+v, want single step-0 frame", frames)
	}
}

func TestDiscover_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  error
	}{
		{"empty dir", nil, ErrNoFrames},
		{"only foreign files", []string{"readme.md"}, ErrNoFrames},
		{"unnumbered frame", []string{"data_1.vtk", "mesh.vtk"}, ErrBadFrameName},
		{"duplicate step", []string{"a_3.vtk", "b_3.vtu"}, ErrDuplicateStep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tt.files...)

			if _, err := Discover(dir); !errors.Is(err, tt.want) {
				t.Errorf("Discover() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFrameScalars(t *testing.T) {
	t.Run("point scalars", func(t *testing.T) {
		ds := &vtk.Dataset{
			Points: make([][3]float32, 3),
			PointData: []vtk.Attribute{
				{Name: "p", Kind: vtk.AttrScalar, NumComp: 1, Data: []float32{1, 2, 3}},
			},
		}
		got, err := frameScalars(ds)
		if err != nil {
			t.Fatalf("frameScalars() error = %v", err)
		}
		if len(got) != 3 || got[1] != 2 {
			t.Errorf("frameScalars() = %v", got)
		}
	})

	t.Run("vector magnitude fallback", func(t *testing.T) {
		ds := &vtk.Dataset{
			Points: make([][3]float32, 1),
			PointData: []vtk.Attribute{
				{Name: "v", Kind: vtk.AttrVector, NumComp: 3, Data: []float32{3, 4, 0}},
			},
		}
		got, err := frameScalars(ds)
		if err != nil {
			t.Fatalf("frameScalars() error = %v", err)
		}
		if got[0] != 5 {
			t.Errorf("magnitude = %v, want 5", got[0])
		}
	})

	t.Run("no point data", func(t *testing.T) {
		if _, err := frameScalars(&vtk.Dataset{}); !errors.Is(err, ErrNoScalars) {
			t.Errorf("error = %v, want ErrNoScalars", err)
		}
	})
}
