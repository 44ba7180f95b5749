package constants

// Label is one of the two classes a box sample can fall into.
type Label string

const (
	LabelEmpty   Label = "EMPTY"
	LabelCrossed Label = "CROSSED"
)

// AllLabels lists the labels in output-vector order: index 0 of the
// network output scores EMPTY, index 1 scores CROSSED.
var AllLabels = []Label{LabelEmpty, LabelCrossed}

func (l Label) String() string { return string(l) }
