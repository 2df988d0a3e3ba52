package annotation

// CategoryTable maps class labels to integer category ids. Ids start at 1 and
// grow in first-seen order: record order, then object order within a record.
// A table is built once per conversion run and read thereafter.
type CategoryTable struct {
	ids    map[string]int
	labels []string
}

// NewCategoryTable returns an empty table.
func NewCategoryTable() *CategoryTable {
	return &CategoryTable{ids: map[string]int{}}
}

// BuildCategoryTable folds all objects of all records into a fresh table.
func BuildCategoryTable(records []Record) *CategoryTable {
	ct := NewCategoryTable()
	for _, rec := range records {
		for i := range rec.Objects() {
			ct.ID(rec.Objects()[i].Label())
		}
	}
	return ct
}

// ID returns the category id for label, assigning the next id if the label
// has not been seen before.
func (ct *CategoryTable) ID(label string) int {
	if id, ok := ct.ids[label]; ok {
		return id
	}
	id := len(ct.labels) + 1
	ct.ids[label] = id
	ct.labels = append(ct.labels, label)
	return id
}

// Lookup returns the id for a label without assigning one.
func (ct *CategoryTable) Lookup(label string) (int, bool) {
	id, ok := ct.ids[label]
	return id, ok
}

// Labels returns all labels in first-seen order.
func (ct *CategoryTable) Labels() []string {
	out := make([]string, len(ct.labels))
	copy(out, ct.labels)
	return out
}

// Len returns the number of distinct labels.
func (ct *CategoryTable) Len() int {
	return len(ct.labels)
}
