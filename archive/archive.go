// Package archive reconstitutes a platform export archive into paired
// annotation records. An archive is a zip whose entries are partitioned by
// path convention into data descriptors and result shards.
package archive

import (
	"archive/zip"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/labelforge/interchange/annotation"
	"github.com/labelforge/interchange/sdkerr"
)

// Options controls reconstitution.
type Options struct {
	// DropUnmatched omits records whose merged result is empty instead of
	// keeping them with an explicit empty result.
	DropUnmatched bool
}

// Reconstitute reads the archive at zipPath and produces one record per data
// entry, in archive order. Result shards sharing a data id are flattened into
// one object list before pairing. A data entry with no result yields a record
// with a nil result, not an error, unless DropUnmatched is set.
func Reconstitute(zipPath string, opts Options) ([]annotation.Record, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, sdkerr.NewSourceError("%s is not a valid zip archive: %s", zipPath, err)
	}
	defer utils.UncheckedErrorFunc(reader.Close)
	return reconstitute(&reader.Reader, opts)
}

func reconstitute(reader *zip.Reader, opts Options) ([]annotation.Record, error) {
	var dataEntries, resultEntries []*zip.File
	for _, f := range reader.File {
		switch classifyEntry(f.Name) {
		case entryData:
			dataEntries = append(dataEntries, f)
		case entryResult:
			resultEntries = append(resultEntries, f)
		}
	}

	merged := map[annotation.DataID]*annotation.ResultInfo{}
	for _, entry := range resultEntries {
		result, err := readResultEntry(entry)
		if err != nil {
			return nil, err
		}
		merged[result.DataID] = result
	}

	var records []annotation.Record
	for _, entry := range dataEntries {
		var data annotation.DataInfo
		if err := readJSONEntry(entry, &data); err != nil {
			return nil, err
		}
		result := merged[data.ID]
		if opts.DropUnmatched && result == nil {
			continue
		}
		records = append(records, annotation.Record{Data: data, Result: result})
	}
	return records, nil
}

type entryKind int

const (
	entryOther entryKind = iota
	entryData
	entryResult
)

// classifyEntry sorts an archive path by the directory segment directly
// containing it: .../data/x.json vs .../result/x.json.
func classifyEntry(name string) entryKind {
	parts := strings.Split(strings.Trim(name, "/"), "/")
	if len(parts) < 2 {
		return entryOther
	}
	switch parts[len(parts)-2] {
	case "data":
		return entryData
	case "result":
		return entryResult
	}
	return entryOther
}

// readResultEntry parses one result file. A file may hold either a single
// result document or a list of shards; all shards' objects are concatenated
// in order onto the first shard's metadata.
func readResultEntry(entry *zip.File) (*annotation.ResultInfo, error) {
	raw, err := readEntryBytes(entry)
	if err != nil {
		return nil, err
	}

	var shards []annotation.ResultInfo
	if err := unmarshalEntry(raw, &shards); err != nil {
		var single annotation.ResultInfo
		if err := unmarshalEntry(raw, &single); err != nil {
			return nil, sdkerr.NewConverterError("malformed result entry %s: %s", entry.Name, err)
		}
		shards = []annotation.ResultInfo{single}
	}
	if len(shards) == 0 {
		return nil, sdkerr.NewConverterError("result entry %s holds no shards", entry.Name)
	}

	first := shards[0]
	var objects []annotation.Object
	for _, shard := range shards {
		objects = append(objects, shard.Objects...)
	}
	first.Objects = objects
	return &first, nil
}

func readJSONEntry(entry *zip.File, dst interface{}) error {
	raw, err := readEntryBytes(entry)
	if err != nil {
		return err
	}
	if err := unmarshalEntry(raw, dst); err != nil {
		return sdkerr.NewConverterError("malformed data entry %s: %s", entry.Name, err)
	}
	return nil
}

func readEntryBytes(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open archive entry %s", entry.Name)
	}
	defer utils.UncheckedErrorFunc(rc.Close)
	return io.ReadAll(rc)
}

func unmarshalEntry(raw []byte, dst interface{}) error {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	return dec.Decode(dst)
}

// DatasetName derives a dataset name from the archive file name by stripping
// the extension and the trailing serial segment the platform appends.
func DatasetName(zipPath string) string {
	stem := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	parts := strings.Split(stem, "-")
	if len(parts) < 2 {
		return stem
	}
	return strings.Join(parts[:len(parts)-1], "-")
}
