package spectral

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/khanlab/neurobeer/pkg/observability"
)

// Projector maps new fibers into the embedding space of a previous
// training run via the Nyström extension: E = W · U · diag(1/Λ), where W is
// the rectangular affinity of the new fibers against the prior fibers and
// (Λ, U) is the stored eigenbasis.
type Projector struct {
	log *observability.Logger
}

// NewProjector creates a projector. A nil logger discards output.
func NewProjector(log *observability.Logger) *Projector {
	if log == nil {
		log = observability.Nop()
	}
	return &Projector{log: log}
}

// Project computes the extension embedding for k clusters. The first
// feature-space column is dropped and the next k taken, with the same cap
// as the training embedding.
func (p *Projector) Project(w *mat.Dense, basis *Eigenbasis, k int) (*mat.Dense, error) {
	if basis == nil || basis.Vectors == nil || len(basis.Values) == 0 {
		return nil, ErrMissingEigenbasis
	}

	wr, wc := w.Dims()
	br, bc := basis.Vectors.Dims()
	if wc != br {
		return nil, fmt.Errorf("affinity is %d×%d but eigenbasis has %d rows", wr, wc, br)
	}
	if len(basis.Values) != bc {
		return nil, fmt.Errorf("eigenbasis has %d values for %d vectors", len(basis.Values), bc)
	}

	// W · U, then scale each column by 1/λ.
	var wu mat.Dense
	wu.Mul(w, basis.Vectors)
	for j := 0; j < bc; j++ {
		lambda := basis.Values[j]
		if lambda == 0 {
			// The first Laplacian eigenvalue is 0; its column is
			// dropped below, so its scale does not matter.
			continue
		}
		for i := 0; i < wr; i++ {
			wu.Set(i, j, wu.At(i, j)/lambda)
		}
	}

	embedder := &Embedder{log: p.log}
	return embedder.selectColumns(&wu, k), nil
}
