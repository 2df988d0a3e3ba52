package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/labelforge/interchange/annotation"
)

const testXtreme1Shards = `[
	{"dataId": 10, "objects": [
		{"type": "RECTANGLE", "trackName": "2", "trackId": "a", "className": "Car",
		 "contour": {"points": [{"x": 1, "y": 2}, {"x": 3, "y": 4}]}},
		{"type": "RECTANGLE", "modelClass": "Truck",
		 "contour": {"points": [{"x": 5, "y": 6}, {"x": 7, "y": 8}]}}
	]},
	{"dataId": 10, "objects": [
		{"type": "POLYGON",
		 "contour": {"points": [{"x": 0, "y": 0}, {"x": 1, "y": 0}, {"x": 1, "y": 1}]}}
	]}
]`

func TestFromXtreme1(t *testing.T) {
	src := t.TempDir()
	test.That(t, os.WriteFile(filepath.Join(src, "frame-320.json"), []byte(testXtreme1Shards), 0o644), test.ShouldBeNil)

	out := t.TempDir()
	p := NewParser(src, golog.NewTestLogger(t))
	test.That(t, p.Parse("xtreme1", out), test.ShouldBeNil)

	// the serial suffix is stripped from the output name
	result := readResult(t, filepath.Join(out, "frame.json"))
	test.That(t, result.SourceType, test.ShouldEqual, "EXTERNAL_GROUND_TRUTH")
	test.That(t, len(result.Objects), test.ShouldEqual, 3)

	// the annotated object is untouched
	test.That(t, result.Objects[0].TrackName, test.ShouldEqual, "2")
	test.That(t, result.Objects[0].TrackID, test.ShouldEqual, "a")

	// backfill skips names already in use and falls back to the model class
	test.That(t, result.Objects[1].TrackName, test.ShouldEqual, "1")
	test.That(t, result.Objects[1].TrackID, test.ShouldNotBeEmpty)
	test.That(t, result.Objects[1].ClassName, test.ShouldEqual, "Truck")
	test.That(t, result.Objects[2].TrackName, test.ShouldEqual, "3")
	test.That(t, result.Objects[2].TrackID, test.ShouldNotBeEmpty)
	test.That(t, result.Objects[2].TrackID, test.ShouldNotEqual, result.Objects[1].TrackID)
}

func TestFromXtreme1SingleDocument(t *testing.T) {
	src := t.TempDir()
	doc := `{"dataId": 7, "objects": [{"type": "POLYLINE", "contour": {"points": [{"x": 1, "y": 1}]}}]}`
	test.That(t, os.WriteFile(filepath.Join(src, "solo.json"), []byte(doc), 0o644), test.ShouldBeNil)

	out := t.TempDir()
	p := NewParser(src, golog.NewTestLogger(t))
	test.That(t, p.Parse("xtreme1", out), test.ShouldBeNil)

	result := readResult(t, filepath.Join(out, "solo.json"))
	test.That(t, len(result.Objects), test.ShouldEqual, 1)
	test.That(t, result.Objects[0].Type, test.ShouldEqual, annotation.ToolPolyline)
	test.That(t, result.Objects[0].TrackName, test.ShouldEqual, "1")
}

func TestFromXtreme1Malformed(t *testing.T) {
	src := t.TempDir()
	test.That(t, os.WriteFile(filepath.Join(src, "bad-1.json"), []byte("{"), 0o644), test.ShouldBeNil)

	p := NewParser(src, golog.NewTestLogger(t))
	err := p.Parse("xtreme1", t.TempDir())
	test.That(t, err, test.ShouldNotBeNil)
}
