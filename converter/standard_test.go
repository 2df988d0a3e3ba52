package converter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/labelforge/interchange/annotation"
)

func TestToJSON(t *testing.T) {
	dir := t.TempDir()
	result := NewResult("drive", imageRecords(), golog.NewTestLogger(t))
	test.That(t, result.Convert("json", dir), test.ShouldBeNil)

	raw, err := os.ReadFile(filepath.Join(dir, "street.json"))
	test.That(t, err, test.ShouldBeNil)
	var info annotation.ResultInfo
	test.That(t, json.Unmarshal(raw, &info), test.ShouldBeNil)
	test.That(t, len(info.Objects), test.ShouldEqual, 4)
	test.That(t, info.Objects[0].ClassName, test.ShouldEqual, "Car")

	// the record without a result still writes an empty document
	raw, err = os.ReadFile(filepath.Join(dir, "empty.json"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, json.Unmarshal(raw, &info), test.ShouldBeNil)
	test.That(t, len(info.Objects), test.ShouldEqual, 0)
}

func TestResultHeadTail(t *testing.T) {
	result := NewResult("drive", imageRecords(), golog.NewTestLogger(t))
	test.That(t, len(result.Head(1)), test.ShouldEqual, 1)
	test.That(t, result.Head(1)[0].Data.Name, test.ShouldEqual, "street")
	test.That(t, len(result.Head(10)), test.ShouldEqual, 2)
	test.That(t, result.Tail(1)[0].Data.Name, test.ShouldEqual, "empty")

	formats := SupportedFormats()
	for _, name := range []string{"JSON", "COCO", "VOC", "LABELME", "KITTI", "KITTI_ALL"} {
		_, ok := formats[name]
		test.That(t, ok, test.ShouldBeTrue)
	}
}

func TestResultToDict(t *testing.T) {
	result := NewResult("drive", imageRecords(), golog.NewTestLogger(t))
	dicts, err := result.ToDict()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(dicts), test.ShouldEqual, 2)

	data := dicts[0]["data"].(map[string]interface{})
	test.That(t, data["name"], test.ShouldEqual, "street")
	res := dicts[0]["result"].(map[string]interface{})
	test.That(t, len(res["objects"].([]interface{})), test.ShouldEqual, 4)

	// record without a result carries an explicit null
	test.That(t, dicts[1]["result"], test.ShouldBeNil)
}
