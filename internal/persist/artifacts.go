// Package persist reads and writes the two detection artifacts: the
// baseline mapping as diffable JSON and the trained outlier model as an
// opaque gob blob. Loaders tolerate missing files; a cold start is an
// empty baseline plus an untrained model, not an error.
package persist

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/miradorstack/mirador-detect/internal/iforest"
	"github.com/miradorstack/mirador-detect/internal/utils"
	"github.com/miradorstack/mirador-detect/pkg/models"
)

// SaveBaseline writes the baseline mapping as indented JSON with sorted
// keys, so successive training runs diff cleanly.
func SaveBaseline(stats map[string]models.BaselineStats, path string) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return utils.NewAppError("persist.baseline", "encode baseline", err)
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return utils.NewAppError("persist.baseline", fmt.Sprintf("write %s", path), err)
	}
	return nil
}

// LoadBaseline reads the baseline mapping. A missing file yields an empty
// mapping and no error.
func LoadBaseline(path string) (map[string]models.BaselineStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]models.BaselineStats{}, nil
		}
		return nil, utils.NewAppError("persist.baseline", fmt.Sprintf("read %s", path), err)
	}

	stats := make(map[string]models.BaselineStats)
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, utils.NewAppError("persist.baseline", fmt.Sprintf("parse %s", path), err)
	}
	return stats, nil
}

// SaveModel writes the outlier model blob. Untrained models persist too;
// loading one restores the untrained state.
func SaveModel(model *iforest.Forest, path string) error {
	if model == nil {
		model = &iforest.Forest{}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(model); err != nil {
		return utils.NewAppError("persist.model", "encode model", err)
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return utils.NewAppError("persist.model", fmt.Sprintf("write %s", path), err)
	}
	return nil
}

// LoadModel reads the outlier model blob. A missing file yields a fresh
// untrained model and no error; reloaded models predict identically to the
// model that was saved.
func LoadModel(path string) (*iforest.Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &iforest.Forest{}, nil
		}
		return nil, utils.NewAppError("persist.model", fmt.Sprintf("read %s", path), err)
	}

	var model iforest.Forest
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&model); err != nil {
		return nil, utils.NewAppError("persist.model", fmt.Sprintf("parse %s", path), err)
	}
	return &model, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return utils.NewAppError("persist.mkdir", fmt.Sprintf("create %s", dir), err)
	}
	return nil
}
