// Package xgboost evaluates a gradient boosted tree ensemble exported with
// XGBoost's JSON model dump.
package xgboost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dieselroute/dieselroute/internal/features"
	"github.com/dieselroute/dieselroute/internal/predictor"
)

// ErrInvalidModel is returned for a model file that cannot be evaluated.
var ErrInvalidModel = errors.New("invalid model")

// file is the on-disk layout: a header plus the per-tree dumps produced by
// Booster.get_dump(dump_format="json").
type file struct {
	BaseScore          float64   `json:"base_score"`
	FeatureNames       []string  `json:"feature_names"`
	Trees              []node    `json:"trees"`
	FeatureImportances []float64 `json:"feature_importances"`
}

type node struct {
	NodeID         int      `json:"nodeid"`
	Split          string   `json:"split"`
	SplitCondition float64  `json:"split_condition"`
	Yes            int      `json:"yes"`
	No             int      `json:"no"`
	Missing        int      `json:"missing"`
	Children       []node   `json:"children"`
	Leaf           *float64 `json:"leaf"`
}

// flatNode is a node with its split feature resolved to an index.
type flatNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	yes       int
	no        int
	missing   int
}

type tree []flatNode

// Model is a loaded ensemble. It is safe for concurrent use.
type Model struct {
	baseScore   float64
	names       []string
	trees       []tree
	importances []predictor.Importance
}

// Load reads a model file and checks it against schema.
func Load(path string, schema []string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model: %w", err)
	}
	defer f.Close()
	return Parse(f, schema)
}

// Parse decodes a model and checks that its feature names equal schema
// in order.
func Parse(r io.Reader, schema []string) (*Model, error) {
	var raw file
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding: %w", ErrInvalidModel, err)
	}
	if !slices.Equal(raw.FeatureNames, schema) {
		return nil, fmt.Errorf("%w: feature names %v do not match schema %v", ErrInvalidModel, raw.FeatureNames, schema)
	}
	if len(raw.Trees) == 0 {
		return nil, fmt.Errorf("%w: no trees", ErrInvalidModel)
	}

	index := make(map[string]int, len(raw.FeatureNames))
	for i, n := range raw.FeatureNames {
		index[n] = i
	}

	m := &Model{
		baseScore: raw.BaseScore,
		names:     slices.Clone(raw.FeatureNames),
		trees:     make([]tree, 0, len(raw.Trees)),
	}
	splits := make([]float64, len(raw.FeatureNames))

	for i := range raw.Trees {
		t, err := flatten(&raw.Trees[i], index, splits)
		if err != nil {
			return nil, fmt.Errorf("%w: tree %d: %w", ErrInvalidModel, i, err)
		}
		m.trees = append(m.trees, t)
	}

	weights := raw.FeatureImportances
	if len(weights) == 0 {
		weights = normalize(splits)
	} else if len(weights) != len(raw.FeatureNames) {
		return nil, fmt.Errorf("%w: %d importances for %d features", ErrInvalidModel, len(weights), len(raw.FeatureNames))
	}
	m.importances = make([]predictor.Importance, len(weights))
	for i, w := range weights {
		m.importances[i] = predictor.Importance{Feature: raw.FeatureNames[i], Weight: w}
	}

	return m, nil
}

// Predict returns base_score plus the leaf value of every tree.
func (m *Model) Predict(ctx context.Context, v features.Vector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, predictor.Unavailable(err)
	}
	if !slices.Equal(v.Names(), m.names) {
		return 0, predictor.Unavailable(fmt.Errorf("vector has %d features, model expects %d in schema order", v.Len(), len(m.names)))
	}

	x := v.Values()
	sum := m.baseScore
	for i, t := range m.trees {
		leaf, err := t.eval(x)
		if err != nil {
			return 0, predictor.Unavailable(fmt.Errorf("tree %d: %w", i, err))
		}
		sum += leaf
	}
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0, predictor.Unavailable(fmt.Errorf("non-finite prediction"))
	}
	return sum, nil
}

// FeatureImportances returns the importances stored with the model, or
// normalized split counts when the file carried none.
func (m *Model) FeatureImportances(context.Context) ([]predictor.Importance, error) {
	return slices.Clone(m.importances), nil
}

// TreeCount returns the number of trees in the ensemble.
func (m *Model) TreeCount() int {
	return len(m.trees)
}

func (t tree) eval(x []float64) (float64, error) {
	id := 0
	for steps := 0; steps <= len(t); steps++ {
		if id < 0 || id >= len(t) {
			return 0, fmt.Errorf("node %d out of range", id)
		}
		n := t[id]
		if n.leaf {
			return n.value, nil
		}
		switch v := x[n.feature]; {
		case math.IsNaN(v):
			id = n.missing
		case v < n.threshold:
			id = n.yes
		default:
			id = n.no
		}
	}
	return 0, errors.New("cycle in tree")
}

func flatten(root *node, index map[string]int, splits []float64) (tree, error) {
	var nodes []*node
	var walk func(n *node)
	walk = func(n *node) {
		nodes = append(nodes, n)
		for i := range n.Children {
			walk(&n.Children[i])
		}
	}
	walk(root)

	t := make(tree, len(nodes))
	seen := make([]bool, len(nodes))
	for _, n := range nodes {
		if n.NodeID < 0 || n.NodeID >= len(nodes) || seen[n.NodeID] {
			return nil, fmt.Errorf("bad node id %d", n.NodeID)
		}
		seen[n.NodeID] = true

		if n.Leaf != nil {
			t[n.NodeID] = flatNode{leaf: true, value: *n.Leaf}
			continue
		}

		feature, err := resolveFeature(n.Split, index)
		if err != nil {
			return nil, err
		}
		splits[feature]++
		t[n.NodeID] = flatNode{
			feature:   feature,
			threshold: n.SplitCondition,
			yes:       n.Yes,
			no:        n.No,
			missing:   n.Missing,
		}
	}
	return t, nil
}

// resolveFeature accepts a feature name or XGBoost's positional "f<N>".
func resolveFeature(split string, index map[string]int) (int, error) {
	if i, ok := index[split]; ok {
		return i, nil
	}
	if rest, ok := strings.CutPrefix(split, "f"); ok {
		if i, err := strconv.Atoi(rest); err == nil && i >= 0 && i < len(index) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown split feature %q", split)
}

func normalize(counts []float64) []float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	out := make([]float64, len(counts))
	if total == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / total
	}
	return out
}
