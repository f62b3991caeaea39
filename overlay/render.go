package overlay

import (
	"image"

	"github.com/arcamlabs/arcam/rimage"
	"github.com/arcamlabs/arcam/rimage/transform"
)

// Render projects the wireframe through the camera at the given board pose and draws it on
// dst. Edges and markers touching a point behind the camera are skipped.
func Render(dst *image.RGBA, wf *Wireframe, model *transform.PinholeCameraModel, pose *transform.CamPose) error {
	if err := wf.CheckValid(); err != nil {
		return err
	}
	pixels, visible, err := model.ProjectPoints(wf.Points, pose)
	if err != nil {
		return err
	}
	dc := rimage.NewDrawContext(dst)
	for _, e := range wf.Edges {
		if !visible[e.From] || !visible[e.To] {
			continue
		}
		if e.Arrow {
			rimage.DrawArrowedLine(dc, pixels[e.From], pixels[e.To], e.Color, e.Width, rimage.DefaultArrowTip)
		} else {
			rimage.DrawLine(dc, pixels[e.From], pixels[e.To], e.Color, e.Width)
		}
	}
	for _, m := range wf.Markers {
		if !visible[m.Index] {
			continue
		}
		rimage.DrawCircle(dc, pixels[m.Index], m.Radius, m.Color, m.Thickness)
	}
	return nil
}
