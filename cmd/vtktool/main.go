// vtktool is a CLI utility for inspecting VTK dataset files.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/Faultbox/meshview/internal/engine/mesh"
	"github.com/Faultbox/meshview/internal/engine/timeseries"
	"github.com/Faultbox/meshview/pkg/vtk"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "cells":
		cmdCells(args)
	case "attrs":
		cmdAttrs(args)
	case "tri":
		cmdTri(args)
	case "series":
		cmdSeries(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`vtktool - VTK dataset inspector

Usage:
  vtktool <command> [options]

Commands:
  info <file>    Show dataset summary
  cells <file>   Show cell type histogram
  attrs <file>   Show point and cell attributes
  tri <file>     Show triangle conversion summary
  series <dir>   List a time-series directory in playback order

Examples:
  vtktool info pressure_0.vtk
  vtktool cells mesh.vtu
  vtktool series ./frames`)
}

func load(args []string, usage string) *vtk.Dataset {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: vtktool "+usage)
		os.Exit(1)
	}

	ds, err := vtk.Load(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return ds
}

func cmdInfo(args []string) {
	ds := load(args, "info <file>")

	fmt.Printf("Dataset:    %s\n", ds.Kind)
	fmt.Printf("Points:     %d\n", len(ds.Points))
	fmt.Printf("Cells:      %d\n", len(ds.Cells))
	fmt.Printf("Point data: %d attribute(s)\n", len(ds.PointData))
	fmt.Printf("Cell data:  %d attribute(s)\n", len(ds.CellData))

	if len(ds.Points) > 0 {
		min, max := ds.Points[0], ds.Points[0]
		for _, p := range ds.Points[1:] {
			for i := 0; i < 3; i++ {
				if p[i] < min[i] {
					min[i] = p[i]
				}
				if p[i] > max[i] {
					max[i] = p[i]
				}
			}
		}
		fmt.Printf("Bounds:     [%g %g %g] .. [%g %g %g]\n",
			min[0], min[1], min[2], max[0], max[1], max[2])
	}
}

func cmdCells(args []string) {
	ds := load(args, "cells <file>")

	hist := make(map[vtk.CellType]int)
	for _, c := range ds.Cells {
		hist[c.Type]++
	}

	types := make([]vtk.CellType, 0, len(hist))
	for t := range hist {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, t := range types {
		note := ""
		if !t.Supported() {
			note = "  (unsupported)"
		}
		fmt.Printf("%-20s %8d%s\n", t, hist[t], note)
	}
}

func cmdAttrs(args []string) {
	ds := load(args, "attrs <file>")

	printAttrs := func(label string, attrs []vtk.Attribute) {
		if len(attrs) == 0 {
			return
		}
		fmt.Printf("%s:\n", label)
		for _, a := range attrs {
			kind := "scalars"
			switch a.Kind {
			case vtk.AttrColorScalar:
				kind = "color_scalars"
			case vtk.AttrVector:
				kind = "vectors"
			}
			fmt.Printf("  %-24s %-14s %d component(s), %d value(s)\n",
				a.Name, kind, a.NumComp, a.Count())
		}
	}

	printAttrs("Point data", ds.PointData)
	printAttrs("Cell data", ds.CellData)
	if len(ds.PointData) == 0 && len(ds.CellData) == 0 {
		fmt.Println("No attributes.")
	}
}

func cmdTri(args []string) {
	ds := load(args, "tri <file>")

	res := mesh.Build(ds)

	lo, hi := res.Mesh.ScalarRange()
	fmt.Printf("Vertices:    %d\n", len(res.Mesh.Vertices))
	fmt.Printf("Triangles:   %d\n", res.Mesh.TriangleCount())
	fmt.Printf("Degenerate:  %d cell(s) dropped\n", res.Dropped)
	fmt.Printf("Unsupported: %d cell(s) skipped\n", res.Unsupported)
	fmt.Printf("Scalars:     [%g, %g]\n", lo, hi)
}

func cmdSeries(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: vtktool series <dir>")
		os.Exit(1)
	}

	frames, err := timeseries.Discover(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for i, f := range frames {
		fmt.Printf("%4d  step %-8d %s\n", i, f.Step, f.Path)
	}
	fmt.Printf("%d frame(s)\n", len(frames))
}
