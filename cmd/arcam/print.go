package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/arcamlabs/arcam/overlay"
	"github.com/arcamlabs/arcam/rimage/calibrate"
	"github.com/arcamlabs/arcam/rimage/transform"
)

// newTable returns a table writing to w whose columns are wide enough for the title to
// stay on one line.
func newTable(w io.Writer, title string, columns int) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	widthMin := (len(title) + columns - 1) / columns
	configs := make([]table.ColumnConfig, columns)
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, WidthMin: widthMin}
	}
	t.SetColumnConfigs(configs)
	return t
}

func printCameraModel(w io.Writer, model *transform.PinholeCameraModel) {
	k := model.GetCameraMatrix()
	t := newTable(w, fmt.Sprintf("camera matrix (%dx%d)", model.Width, model.Height), 3)
	for i := 0; i < 3; i++ {
		t.AppendRow(table.Row{k.At(i, 0), k.At(i, 1), k.At(i, 2)})
	}
	t.Render()

	t = newTable(w, "distortion", 5)
	t.AppendHeader(table.Row{"k1", "k2", "p1", "p2", "k3"})
	row := table.Row{}
	for _, v := range model.Distortion.OpenCVCoefficients() {
		row = append(row, v)
	}
	t.AppendRow(row)
	t.Render()
}

func printReport(w io.Writer, report *calibrate.Report, result *calibrate.CalibrationResult) {
	t := newTable(w, "reprojection error (px)", 2)
	t.AppendHeader(table.Row{"View", "RMS"})
	for i, e := range result.PerViewErrors {
		t.AppendRow(table.Row{i, fmt.Sprintf("%.4f", e)})
	}
	t.AppendFooter(table.Row{"all", fmt.Sprintf("%.4f", report.RMS)})
	t.Render()
	printf(w, "%s", report)
}

// printWireframe lists the points and the connections between them.
func printWireframe(w io.Writer, wf *overlay.Wireframe) {
	t := newTable(w, "object points", 4)
	t.AppendHeader(table.Row{"#", "X", "Y", "Z"})
	for i, p := range wf.Points {
		t.AppendRow(table.Row{i, p.X, p.Y, p.Z})
	}
	t.Render()

	t = newTable(w, "connections", 2)
	t.AppendHeader(table.Row{"From", "To"})
	for _, e := range wf.Edges {
		t.AppendRow(table.Row{e.From, e.To})
	}
	t.Render()
}
