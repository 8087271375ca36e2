package strata

// External collaborators invoked during the write path. Summarizer and
// Embedder are best-effort: a nil collaborator or a failing call degrades the
// write (no log context, no index entry) but never aborts it. Attestation is
// part of the StorageBlob contract, so a configured Attestor that fails is a
// write error.

// Summarizer produces a short natural-language summary of stored text, used
// purely for logging and indexing context.
type Summarizer interface {
	Summarize(text string) (string, error)
}

// Embedder maps text to a semantic embedding. An empty result means no
// embedding is available for this input.
type Embedder interface {
	Embed(text string) ([]float32, error)
}

// Attestor produces an opaque attestation over a chunk and its commitment.
// The engine carries the result in the StorageBlob without interpreting it.
type Attestor interface {
	Attest(chunk []byte, commitment []byte) ([]byte, error)
}

// Collaborators bundles the external services the write path calls out to.
// Any field may be nil.
type Collaborators struct {
	Summarizer Summarizer
	Embedder   Embedder
	Attestor   Attestor
}
