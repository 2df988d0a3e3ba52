package converter

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/labelforge/interchange/annotation"
	"github.com/labelforge/interchange/sdkerr"
)

// ToJSON writes each record's result in the platform's own schema, one file
// per data item named after the item. Records without a result produce an
// empty document so the export stays complete.
func (c *Converter) ToJSON(records []annotation.Record, exportFolder string) error {
	for _, rec := range records {
		result := rec.Result
		if result == nil {
			result = &annotation.ResultInfo{DataID: rec.Data.ID, Objects: []annotation.Object{}}
		}
		out, err := json.MarshalIndent(result, "", " ")
		if err != nil {
			return sdkerr.WrapConverter(err, "encoding result")
		}
		path := filepath.Join(exportFolder, rec.Data.Name+".json")
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return err
		}
	}
	return nil
}
