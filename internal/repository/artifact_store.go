package repository

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"CoinCast/internal/forecast"
	"CoinCast/pkg/nn"
)

// FileStore persists models and scalers as gob files under two
// directories. Writes go to a temp file and rename into place, so
// concurrent readers never see a half-written artifact and the last
// write wins.
type FileStore struct {
	modelDir  string
	scalerDir string
}

// NewFileStore creates the artifact directories if needed.
func NewFileStore(modelDir, scalerDir string) (*FileStore, error) {
	for _, dir := range []string{modelDir, scalerDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create artifact dir %s: %w", dir, err)
		}
	}
	return &FileStore{modelDir: modelDir, scalerDir: scalerDir}, nil
}

func (s *FileStore) modelPath(key forecast.ModelKey) string {
	name := fmt.Sprintf("%s_%s_%s.gob", key.Symbol, key.Kind, key.Interval)
	return filepath.Join(s.modelDir, name)
}

func (s *FileStore) scalerPath(key forecast.ScalerKey) string {
	name := fmt.Sprintf("%s_%s.gob", key.Symbol, key.Interval)
	return filepath.Join(s.scalerDir, name)
}

// HasModel reports whether a model artifact exists.
func (s *FileStore) HasModel(key forecast.ModelKey) bool {
	_, err := os.Stat(s.modelPath(key))
	return err == nil
}

// PutModel writes a model artifact, replacing any previous one.
func (s *FileStore) PutModel(key forecast.ModelKey, net *nn.Network) error {
	return atomicWrite(s.modelPath(key), func(f *os.File) error {
		return net.Save(f)
	})
}

// Model loads a model artifact.
func (s *FileStore) Model(key forecast.ModelKey) (*nn.Network, error) {
	f, err := os.Open(s.modelPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: model %s/%s/%s",
				forecast.ErrArtifactNotFound, key.Symbol, key.Kind, key.Interval)
		}
		return nil, fmt.Errorf("open model artifact: %w", err)
	}
	defer f.Close()

	net, err := nn.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load model artifact: %w", err)
	}
	return net, nil
}

// HasScaler reports whether a scaler artifact exists.
func (s *FileStore) HasScaler(key forecast.ScalerKey) bool {
	_, err := os.Stat(s.scalerPath(key))
	return err == nil
}

// PutScaler writes a scaler artifact, replacing any previous one.
func (s *FileStore) PutScaler(key forecast.ScalerKey, scaler *forecast.MinMaxScaler) error {
	return atomicWrite(s.scalerPath(key), func(f *os.File) error {
		return gob.NewEncoder(f).Encode(scaler)
	})
}

// Scaler loads a scaler artifact.
func (s *FileStore) Scaler(key forecast.ScalerKey) (*forecast.MinMaxScaler, error) {
	f, err := os.Open(s.scalerPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: scaler %s/%s",
				forecast.ErrArtifactNotFound, key.Symbol, key.Interval)
		}
		return nil, fmt.Errorf("open scaler artifact: %w", err)
	}
	defer f.Close()

	var scaler forecast.MinMaxScaler
	if err := gob.NewDecoder(f).Decode(&scaler); err != nil {
		return nil, fmt.Errorf("load scaler artifact: %w", err)
	}
	return &scaler, nil
}

func atomicWrite(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}
