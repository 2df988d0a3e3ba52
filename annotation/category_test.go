package annotation

import (
	"testing"

	"go.viam.com/test"
)

func testRecords() []Record {
	return []Record{
		{
			Data: DataInfo{ID: "1", Name: "a"},
			Result: &ResultInfo{DataID: "1", Objects: []Object{
				{Type: ToolRectangle, ClassName: "Car"},
				{Type: ToolRectangle, ClassName: "Pedestrian"},
				{Type: ToolRectangle, ClassName: "Car"},
			}},
		},
		{Data: DataInfo{ID: "2", Name: "b"}},
		{
			Data: DataInfo{ID: "3", Name: "c"},
			Result: &ResultInfo{DataID: "3", Objects: []Object{
				{Type: ToolPolygon, ClassName: "Cyclist"},
				{Type: ToolPolygon, ModelClass: "Truck"},
				{Type: ToolPolygon},
			}},
		},
	}
}

func TestCategoryTableOrdering(t *testing.T) {
	ct := BuildCategoryTable(testRecords())
	test.That(t, ct.Labels(), test.ShouldResemble, []string{"Car", "Pedestrian", "Cyclist", "Truck", "null"})

	id, ok := ct.Lookup("Car")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldEqual, 1)
	id, ok = ct.Lookup("null")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldEqual, 5)
	_, ok = ct.Lookup("Bus")
	test.That(t, ok, test.ShouldBeFalse)

	// ids strictly increase in first-seen order
	prev := 0
	for _, label := range ct.Labels() {
		id, ok := ct.Lookup(label)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, id, test.ShouldEqual, prev+1)
		prev = id
	}
}

func TestCategoryTableDeterminism(t *testing.T) {
	first := BuildCategoryTable(testRecords())
	second := BuildCategoryTable(testRecords())
	test.That(t, first.Labels(), test.ShouldResemble, second.Labels())
	for _, label := range first.Labels() {
		a, _ := first.Lookup(label)
		b, _ := second.Lookup(label)
		test.That(t, a, test.ShouldEqual, b)
	}
}
