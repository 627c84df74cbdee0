package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// DecisionTree is a fitted tree exported as a flat node array. Classification
// trees report the leaf's class code (and its name when the artifact lists
// classes); regression trees report the leaf value.
type DecisionTree struct {
	nodes      []TreeNode
	classes    []string
	regression bool
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

// treeArtifact is the on-disk layout. A bare node array is accepted too.
type treeArtifact struct {
	Classes []string   `json:"classes"`
	Nodes   []TreeNode `json:"nodes"`
}

func NewDecisionTree(nodes []TreeNode, classes []string, regression bool) (*DecisionTree, error) {
	dt := &DecisionTree{nodes: nodes, classes: classes, regression: regression}
	if err := dt.validate(); err != nil {
		return nil, err
	}
	return dt, nil
}

func (dt *DecisionTree) Predict(ctx context.Context, in Input) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	node, err := dt.walk(in.Vector)
	if err != nil {
		return Prediction{}, err
	}
	if dt.regression {
		return Prediction{Values: []float64{node.Value}}, nil
	}
	pred := Prediction{Values: []float64{float64(node.ClassLabel)}}
	if len(dt.classes) > 0 {
		if node.ClassLabel < 0 || node.ClassLabel >= len(dt.classes) {
			return Prediction{}, fmt.Errorf("class %d outside %d known classes", node.ClassLabel, len(dt.classes))
		}
		pred.Label = dt.classes[node.ClassLabel]
	}
	return pred, nil
}

func (dt *DecisionTree) walk(features []float64) (TreeNode, error) {
	if len(dt.nodes) == 0 {
		return TreeNode{}, errors.New("model not trained")
	}
	idx := 0
	for steps := 0; steps <= len(dt.nodes); steps++ {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return TreeNode{}, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
	return TreeNode{}, errors.New("tree contains a cycle")
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact treeArtifact
	if err := json.Unmarshal(payload, &artifact.Nodes); err != nil {
		if err := json.Unmarshal(payload, &artifact); err != nil {
			return fmt.Errorf("decode tree %s: %w", path, err)
		}
	}
	dt.nodes = artifact.Nodes
	dt.classes = artifact.Classes
	return dt.validate()
}

func (dt *DecisionTree) validate() error {
	if len(dt.nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range dt.nodes {
		if node.IsLeaf {
			continue
		}
		if node.LeftChild <= 0 || node.LeftChild >= len(dt.nodes) ||
			node.RightChild <= 0 || node.RightChild >= len(dt.nodes) {
			return fmt.Errorf("node %d has invalid children", i)
		}
		if node.FeatureIdx < 0 {
			return fmt.Errorf("node %d has negative feature index", i)
		}
	}
	return nil
}
