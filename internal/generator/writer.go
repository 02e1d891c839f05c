package generator

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/juju/errors"
)

// WriteDataset serializes the dataset into folders.json under dir.
func WriteDataset(dataset Dataset, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Annotate(err, "create output dir")
	}
	path := filepath.Join(dir, "folders.json")
	file, err := os.Create(path)
	if err != nil {
		return "", errors.Annotatef(err, "open %s", path)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(dataset); err != nil {
		return "", errors.Annotatef(err, "encode json for %s", path)
	}
	return path, nil
}

// ReadDataset loads a dataset previously written by WriteDataset.
func ReadDataset(path string) (Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return Dataset{}, errors.Annotatef(err, "open %s", path)
	}
	defer file.Close()

	var dataset Dataset
	if err := json.NewDecoder(file).Decode(&dataset); err != nil {
		return Dataset{}, errors.Annotatef(err, "decode %s", path)
	}
	return dataset, nil
}
