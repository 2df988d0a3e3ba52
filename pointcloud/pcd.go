// Package pointcloud transcodes lidar point clouds between the raw velodyne
// binary layout and the PCD container the platform ingests.
package pointcloud

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// Point is one lidar return: position in meters plus reflectance intensity.
type Point struct {
	X, Y, Z   float32
	Intensity float32
}

// pointBytes is the on-disk size of one point in both the velodyne binary
// layout and the PCD binary body: 4 little-endian 32-bit floats.
const pointBytes = 16

// ReadVelodyneBin reads a raw velodyne blob: consecutive (x, y, z, intensity)
// little-endian float32 quads with no header.
func ReadVelodyneBin(r io.Reader) ([]Point, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading velodyne data")
	}
	if len(data)%pointBytes != 0 {
		return nil, errors.Errorf("velodyne data length %d is not a multiple of %d", len(data), pointBytes)
	}
	points := make([]Point, 0, len(data)/pointBytes)
	for off := 0; off < len(data); off += pointBytes {
		points = append(points, Point{
			X:         math.Float32frombits(binary.LittleEndian.Uint32(data[off:])),
			Y:         math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:])),
			Z:         math.Float32frombits(binary.LittleEndian.Uint32(data[off+8:])),
			Intensity: math.Float32frombits(binary.LittleEndian.Uint32(data[off+12:])),
		})
	}
	return points, nil
}

// WritePCD writes the points as a binary PCD document: the fixed header
// followed by the point bytes verbatim.
func WritePCD(points []Point, out io.Writer) error {
	if err := writePCDHeader(len(points), out); err != nil {
		return err
	}
	return WriteVelodyneBin(points, out)
}

// WriteVelodyneBin writes the points in the raw velodyne layout, the inverse
// of ReadVelodyneBin.
func WriteVelodyneBin(points []Point, out io.Writer) error {
	buf := make([]byte, pointBytes)
	for _, p := range points {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(p.X))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(p.Y))
		binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(p.Z))
		binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(p.Intensity))
		if _, err := out.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func writePCDHeader(n int, out io.Writer) error {
	_, err := fmt.Fprintf(out, "# .PCD v0.7 - Point Cloud Data file format\n"+
		"VERSION 0.7\n"+
		"FIELDS x y z i\n"+
		"SIZE 4 4 4 4\n"+
		"TYPE F F F U\n"+
		"COUNT 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA binary\n", n, n)
	return err
}

// TranscodeBinToPCD converts a velodyne blob into a PCD file on disk,
// buffering the full document so a failure never leaves a partial file.
func TranscodeBinToPCD(binPath, pcdPath string) (err error) {
	//nolint:gosec
	src, err := os.Open(binPath)
	if err != nil {
		return errors.Wrap(err, "opening velodyne file")
	}
	defer utils.UncheckedErrorFunc(src.Close)

	points, err := ReadVelodyneBin(src)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WritePCD(points, &buf); err != nil {
		return err
	}
	return os.WriteFile(pcdPath, buf.Bytes(), 0o644)
}

// ReadPCD reads back a binary PCD document written by WritePCD. Only the
// 4-field x/y/z/i layout is supported.
func ReadPCD(r io.Reader) ([]Point, error) {
	in := bufio.NewReader(r)
	n, err := readPCDHeader(in)
	if err != nil {
		return nil, err
	}
	points := make([]Point, 0, n)
	buf := make([]byte, pointBytes)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			return nil, errors.Wrapf(err, "reading point %d", i)
		}
		points = append(points, Point{
			X:         math.Float32frombits(binary.LittleEndian.Uint32(buf)),
			Y:         math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])),
			Z:         math.Float32frombits(binary.LittleEndian.Uint32(buf[8:])),
			Intensity: math.Float32frombits(binary.LittleEndian.Uint32(buf[12:])),
		})
	}
	return points, nil
}

func readPCDHeader(in *bufio.Reader) (int, error) {
	points := -1
	sawData := false
	for !sawData {
		line, err := in.ReadString('\n')
		if err != nil {
			return 0, errors.Wrap(err, "reading pcd header")
		}
		line, _, _ = strings.Cut(line, "#")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		field, value, _ := strings.Cut(line, " ")
		var fieldErr error
		switch field {
		case "FIELDS":
			if value != "x y z i" {
				fieldErr = errors.Errorf("unsupported pcd fields %q", value)
			}
		case "POINTS":
			points, fieldErr = strconv.Atoi(value)
		case "DATA":
			if value != "binary" {
				fieldErr = errors.Errorf("unsupported pcd data type %q", value)
			}
			sawData = true
		}
		if fieldErr != nil {
			return 0, fieldErr
		}
	}
	if points < 0 {
		return 0, errors.New("pcd header is missing the POINTS line")
	}
	return points, nil
}

// WritePCDFile writes points to a PCD file, combining close errors with any
// write failure.
func WritePCDFile(points []Point, path string) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if err := WritePCD(points, w); err != nil {
		return err
	}
	return w.Flush()
}
