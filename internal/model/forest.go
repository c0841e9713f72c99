package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/lox/ridewise/internal/features"
)

// Forest is a regression tree ensemble exported from the training pipeline.
// Predictions are the mean of the individual tree outputs.
type Forest struct {
	Version string   `json:"version"`
	Columns []string `json:"columns"`
	Trees   []Tree   `json:"trees"`
}

// Tree is a flattened binary regression tree. Node 0 is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is either a split (Feature >= 0) or a leaf (Feature == -1).
// Rows with row[Feature] <= Threshold go Left.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Parse decodes and validates a JSON forest artifact.
func Parse(data []byte) (*Forest, error) {
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the column contract and that every tree is well formed.
func (f *Forest) Validate() error {
	if !slices.Equal(f.Columns, features.Columns) {
		return fmt.Errorf("column mismatch: artifact has %v, want %v", f.Columns, features.Columns)
	}
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for i, t := range f.Trees {
		if err := t.validate(len(f.Columns)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (t Tree) validate(width int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Feature == -1 {
			continue
		}
		if n.Feature < 0 || n.Feature >= width {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		// Children must point forward so evaluation always terminates.
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

// Predict evaluates the ensemble on a row in Columns order.
func (f *Forest) Predict(row []float64) (float64, error) {
	if len(row) != len(f.Columns) {
		return 0, fmt.Errorf("row has %d values, want %d", len(row), len(f.Columns))
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.eval(row)
	}
	return sum / float64(len(f.Trees)), nil
}

func (t Tree) eval(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature == -1 {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
