// Package graph builds the regional similarity graph used to pretrain region
// embeddings: every region is reduced to its average weekly demand profile
// and every pair of regions is compared with dynamic time warping.
//
// The distances are written twice, as a triangular table for later stages of
// the pipeline and as a plain-text weighted edge list for node2vec-style
// embedders.
package graph

import "github.com/pkg/errors"

var (
	// ErrDataShape reports input that cannot hold a single full period.
	ErrDataShape = errors.New("graph: data shape inconsistent with period")
	// ErrIO reports a failure creating, writing or reading an artifact.
	ErrIO = errors.New("graph: i/o failure")
	// ErrRadius reports a FastDTW radius below 1.
	ErrRadius = errors.New("graph: radius must be at least 1")
)
