package topic

import "testing"

func TestPropagateFillsParentFromUnanimousChildren(t *testing.T) {
	root := &Node{Label: "1", Children: []*Node{
		{Label: "1(a)", Topic: "algebra"},
		{Label: "1(b)", Topic: "algebra"},
	}}
	Propagate(root)
	if root.Topic != "algebra" {
		t.Errorf("root.Topic = %q, want algebra", root.Topic)
	}
}

func TestPropagateLeavesParentUnknownOnDisagreement(t *testing.T) {
	root := &Node{Label: "1", Children: []*Node{
		{Label: "1(a)", Topic: "algebra"},
		{Label: "1(b)", Topic: "geometry"},
	}}
	Propagate(root)
	if root.Topic != Unknown {
		t.Errorf("root.Topic = %q, want Unknown on disagreement", root.Topic)
	}
}

func TestPropagateFlankingConsensusFillsMiddleSibling(t *testing.T) {
	root := &Node{Label: "1", Children: []*Node{
		{Label: "1(a)", Topic: "algebra"},
		{Label: "1(b)", Topic: Unknown},
		{Label: "1(c)", Topic: "algebra"},
	}}
	Propagate(root)
	if root.Children[1].Topic != "algebra" {
		t.Errorf("1(b).Topic = %q, want algebra via flanking consensus", root.Children[1].Topic)
	}
}

func TestPropagateDoesNotFillEdgeSiblings(t *testing.T) {
	root := &Node{Label: "1", Children: []*Node{
		{Label: "1(a)", Topic: Unknown},
		{Label: "1(b)", Topic: "algebra"},
		{Label: "1(c)", Topic: "algebra"},
	}}
	Propagate(root)
	if root.Children[0].Topic != Unknown {
		t.Errorf("1(a).Topic = %q, want Unknown (no left sibling to form consensus)", root.Children[0].Topic)
	}
}
