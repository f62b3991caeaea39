package transform

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// Row names of the calibration CSV file.
const (
	csvCameraMatrix = "camera_matrix"
	csvDistortion   = "distortion_coefficients"
	csvImageSize    = "image_size"
)

// ReadCalibrationFile reads a camera model from a .csv or .json calibration file.
func ReadCalibrationFile(path string) (*PinholeCameraModel, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening calibration file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCalibrationCSV(f)
	case ".json":
		return ReadCalibrationJSON(f)
	default:
		return nil, errors.Errorf("do not know how to read calibration file %q, expected .csv or .json", path)
	}
}

// WriteCalibrationFile writes a camera model to a .csv or .json calibration file.
func WriteCalibrationFile(path string, model *PinholeCameraModel) (err error) {
	var write func(io.Writer, *PinholeCameraModel) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = WriteCalibrationCSV
	case ".json":
		write = WriteCalibrationJSON
	default:
		return errors.Errorf("do not know how to write calibration file %q, expected .csv or .json", path)
	}
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "error creating calibration file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return write(f, model)
}

// ReadCalibrationCSV reads rows of the form
//
//	camera_matrix,fx,0,ppx,0,fy,ppy,0,0,1
//	distortion_coefficients,k1,k2,p1,p2,k3
//	image_size,width,height
//
// The camera matrix is required. Distortion coefficients are in OpenCV order and may be
// truncated; the image size row is optional. Lines starting with # are ignored.
func ReadCalibrationCSV(r io.Reader) (*PinholeCameraModel, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var (
		camMatrix   []float64
		distortion  []float64
		width       int
		height      int
		seenMatrix  bool
		seenDistort bool
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "error reading calibration csv")
		}
		if len(record) == 0 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(record[0]))
		line, _ := reader.FieldPos(0)
		values, err := parseCSVFloats(record[1:])
		if err != nil {
			return nil, errors.Wrapf(err, "bad %s row on line %d", name, line)
		}
		switch name {
		case csvCameraMatrix:
			if len(values) != 9 {
				return nil, errors.Errorf("camera_matrix row on line %d must have 9 values, got %d", line, len(values))
			}
			camMatrix, seenMatrix = values, true
		case csvDistortion:
			if len(values) < 1 || len(values) > 5 {
				return nil, errors.Errorf("distortion_coefficients row on line %d must have 1 to 5 values, got %d", line, len(values))
			}
			distortion, seenDistort = values, true
		case csvImageSize:
			if len(values) != 2 {
				return nil, errors.Errorf("image_size row on line %d must have 2 values, got %d", line, len(values))
			}
			width, height = int(values[0]), int(values[1])
		default:
			return nil, errors.Errorf("unknown calibration row %q on line %d", record[0], line)
		}
	}
	if !seenMatrix {
		return nil, NewNoIntrinsicsError("calibration csv has no camera_matrix row")
	}
	intrinsics, err := NewPinholeCameraIntrinsicsFromMatrix(camMatrix, width, height)
	if err != nil {
		return nil, err
	}
	var bc *BrownConrady
	if seenDistort {
		if bc, err = NewBrownConradyFromOpenCV(distortion...); err != nil {
			return nil, err
		}
	}
	return NewPinholeCameraModel(intrinsics, bc)
}

func parseCSVFloats(fields []string) ([]float64, error) {
	values := make([]float64, 0, len(fields))
	for i, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "value %d", i+1)
		}
		values = append(values, v)
	}
	return values, nil
}

// WriteCalibrationCSV writes the model in the format read by ReadCalibrationCSV.
func WriteCalibrationCSV(w io.Writer, model *PinholeCameraModel) error {
	if err := model.CheckValid(); err != nil {
		return err
	}
	k := model.GetCameraMatrix().RawMatrix().Data
	rows := [][]float64{k, model.Distortion.OpenCVCoefficients()}
	names := []string{csvCameraMatrix, csvDistortion}
	if model.Width > 0 && model.Height > 0 {
		rows = append(rows, []float64{float64(model.Width), float64(model.Height)})
		names = append(names, csvImageSize)
	}
	writer := csv.NewWriter(w)
	for i, row := range rows {
		record := []string{names[i]}
		for _, v := range row {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCalibrationJSON reads a camera model stored as
// {"intrinsic_parameters": {...}, "distortion_parameters": {...}}.
func ReadCalibrationJSON(r io.Reader) (*PinholeCameraModel, error) {
	model := &PinholeCameraModel{}
	if err := json.NewDecoder(r).Decode(model); err != nil {
		return nil, errors.Wrap(err, "error parsing calibration JSON")
	}
	if err := model.CheckValid(); err != nil {
		return nil, err
	}
	return model, nil
}

// WriteCalibrationJSON writes the model in the format read by ReadCalibrationJSON.
func WriteCalibrationJSON(w io.Writer, model *PinholeCameraModel) error {
	if err := model.CheckValid(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(model)
}
