package parser

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/labelforge/interchange/annotation"
	"github.com/labelforge/interchange/sdkerr"
)

// FromXtreme1 re-imports platform-schema result files, backfilling the
// identity fields uploads require: every object gets a track name (smallest
// unused numeric name), a track id, and a class name (falling back to the
// model-predicted class).
func (p *Parser) FromXtreme1(outputFolder string) error {
	if _, err := ensureDir(outputFolder); err != nil {
		return err
	}
	files, err := listFiles(p.sourcePath, ".json")
	if err != nil {
		return err
	}

	used := map[string]bool{}
	for _, file := range files {
		shards, err := loadResultShards(file)
		if err != nil {
			return err
		}
		for _, shard := range shards {
			for _, obj := range shard.Objects {
				if obj.TrackName != "" {
					used[obj.TrackName] = true
				}
			}
		}
	}

	nameCounter := 1
	for _, file := range files {
		shards, err := loadResultShards(file)
		if err != nil {
			return err
		}
		objects := []annotation.Object{}
		for _, shard := range shards {
			for _, obj := range shard.Objects {
				if obj.TrackName == "" {
					for used[strconv.Itoa(nameCounter)] {
						nameCounter++
					}
					obj.TrackName = strconv.Itoa(nameCounter)
					used[obj.TrackName] = true
				}
				if obj.TrackID == "" {
					obj.TrackID = uuid.NewString()
				}
				if obj.ClassName == "" && obj.ModelClass != "" {
					obj.ClassName = obj.ModelClass
				}
				objects = append(objects, obj)
			}
		}

		result := annotation.ResultInfo{
			SourceType: "EXTERNAL_GROUND_TRUTH",
			Objects:    objects,
		}
		path := filepath.Join(outputFolder, stripSerialSuffix(fileStem(file))+".json")
		if err := writeJSON(path, &result); err != nil {
			return err
		}
	}
	return nil
}

// loadResultShards reads a result file holding either a shard list or a
// single result document.
func loadResultShards(path string) ([]annotation.ResultInfo, error) {
	//nolint:gosec
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var shards []annotation.ResultInfo
	if err := json.Unmarshal(raw, &shards); err == nil {
		return shards, nil
	}
	var single annotation.ResultInfo
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, sdkerr.NewParserError("malformed result file %s: %s", path, err)
	}
	return []annotation.ResultInfo{single}, nil
}

// stripSerialSuffix removes the trailing -<serial> segment the platform
// appends to exported file names.
func stripSerialSuffix(stem string) string {
	parts := strings.Split(stem, "-")
	if len(parts) < 2 {
		return stem
	}
	return strings.Join(parts[:len(parts)-1], "-")
}
