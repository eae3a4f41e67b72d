// Package storage persists pipeline artifacts. The core returns in-memory
// arrays only; persistence is an injected collaborator so the pipeline
// stays free of directory side effects.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/khanlab/neurobeer/pkg/spectral"
)

// ArtifactStore persists similarity matrices and the trained eigenbasis.
type ArtifactStore interface {
	SaveMatrix(name string, m *mat.Dense) error
	SaveEigenbasis(basis *spectral.Eigenbasis) error
	LoadEigenbasis() (*spectral.Eigenbasis, error)
}

// NpyStore writes artifacts as NumPy .npy files: matrices under
// <dir>/matrices/<name>.npy, the eigenbasis as <dir>/eigval.npy and
// <dir>/eigvec.npy.
type NpyStore struct {
	dir string
}

// NewNpyStore creates a store rooted at dir, creating it if needed.
func NewNpyStore(dir string) (*NpyStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "matrices"), 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &NpyStore{dir: dir}, nil
}

// SaveMatrix writes a dense matrix as matrices/<name>.npy.
func (s *NpyStore) SaveMatrix(name string, m *mat.Dense) error {
	path := filepath.Join(s.dir, "matrices", name+".npy")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := npyio.Write(f, m); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// SaveEigenbasis writes eigval.npy and eigvec.npy.
func (s *NpyStore) SaveEigenbasis(basis *spectral.Eigenbasis) error {
	evPath := filepath.Join(s.dir, "eigval.npy")
	f, err := os.Create(evPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", evPath, err)
	}
	if err := npyio.Write(f, basis.Values); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", evPath, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	vecPath := filepath.Join(s.dir, "eigvec.npy")
	g, err := os.Create(vecPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", vecPath, err)
	}
	defer g.Close()
	if err := npyio.Write(g, basis.Vectors); err != nil {
		return fmt.Errorf("write %s: %w", vecPath, err)
	}
	return nil
}

// LoadEigenbasis reads eigval.npy and eigvec.npy back into memory.
func (s *NpyStore) LoadEigenbasis() (*spectral.Eigenbasis, error) {
	evPath := filepath.Join(s.dir, "eigval.npy")
	f, err := os.Open(evPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", spectral.ErrMissingEigenbasis, err)
	}
	defer f.Close()
	var values []float64
	if err := npyio.Read(f, &values); err != nil {
		return nil, fmt.Errorf("read %s: %w", evPath, err)
	}

	vecPath := filepath.Join(s.dir, "eigvec.npy")
	g, err := os.Open(vecPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", spectral.ErrMissingEigenbasis, err)
	}
	defer g.Close()
	var vectors mat.Dense
	if err := npyio.Read(g, &vectors); err != nil {
		return nil, fmt.Errorf("read %s: %w", vecPath, err)
	}

	return &spectral.Eigenbasis{Values: values, Vectors: &vectors}, nil
}
