// Package parser imports third-party annotation formats back into the
// platform's per-object JSON schema, producing the folder layout the upload
// pipeline expects.
package parser

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/labelforge/interchange/sdkerr"
)

// FormatInfo describes one supported import source.
type FormatInfo struct {
	Description string `json:"description"`
	Tags        string `json:"tags,omitempty"`
}

// SupportedFormats lists the formats the parser understands.
func SupportedFormats() map[string]FormatInfo {
	return map[string]FormatInfo{
		"COCO": {
			Description: "COCO object detection json plus the referenced images.",
			Tags:        "Rectangles, polygons, polyline segments in image tasks.",
		},
		"XTREME1": {
			Description: "Platform standard json, re-imported with identity backfill.",
		},
		"KITTI": {
			Description: "KITTI tree with calib/, image_2/, label_2/ and velodyne/ subfolders.",
			Tags:        "3D boxes with projected rectangles in lidar-fusion tasks.",
		},
	}
}

// Parser converts one source folder into platform upload folders.
type Parser struct {
	sourcePath string
	logger     golog.Logger
}

// NewParser returns a parser rooted at sourcePath.
func NewParser(sourcePath string, logger golog.Logger) *Parser {
	return &Parser{sourcePath: sourcePath, logger: logger}
}

// Parse converts the source into outputFolder in the named format. The
// format name is case-insensitive.
func (p *Parser) Parse(format, outputFolder string) error {
	if p.sourcePath == "" || outputFolder == "" {
		return sdkerr.NewParamError("both a source path and an output folder are required")
	}
	switch strings.ToUpper(format) {
	case "COCO":
		return p.FromCOCO(outputFolder)
	case "XTREME1":
		return p.FromXtreme1(outputFolder)
	case "KITTI":
		return p.FromKITTI(outputFolder)
	default:
		return sdkerr.NewParserError("do not support this format <%s> to parse", format)
	}
}

// listFiles walks root and returns the files whose extension is in exts, in
// lexical walk order.
func listFiles(root string, exts ...string) ([]string, error) {
	match := map[string]bool{}
	for _, e := range exts {
		match[e] = true
	}
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && match[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", root)
	}
	return files, nil
}

func loadJSON(path string, dst interface{}) error {
	//nolint:gosec
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return sdkerr.NewParserError("malformed json %s: %s", path, err)
	}
	return nil
}

func writeJSON(path string, src interface{}) error {
	out, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func ensureDir(path string) (string, error) {
	return path, os.MkdirAll(path, 0o755)
}

func copyFile(src, dst string) (err error) {
	//nolint:gosec
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(in.Close)
	//nolint:gosec
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}

// fileStem is the file name without directory or extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
