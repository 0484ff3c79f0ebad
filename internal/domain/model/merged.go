package model

// Cluster is a connected component of slugs under the detected edges.
type Cluster struct {
	Root    string
	Members []string
}

// MergedIdentity is the output row for one cluster.
type MergedIdentity struct {
	DisplayName string
	Slug        string // unique among the outputs of one run
	Quizzes     map[string]float64
	Total       float64
	Members     []string // slugs folded into this row
}

// Overlap records a quiz both compared identities have a score for.
type Overlap struct {
	QuizID string
	Score1 float64
	Score2 float64
	Kept   float64
}

// DuplicateCandidate is one row of the duplicate-candidate report.
type DuplicateCandidate struct {
	Method         Method
	Score          *float64
	Name1          string
	Slug1          string
	Total1         float64
	Quizzes1       int
	Name2          string
	Slug2          string
	Total2         float64
	Quizzes2       int
	Overlaps       []Overlap
	MergedTotal    float64 // worst-case total if both are the same person
	OverlapDetails string
}

// SumTotals returns the combined unmerged total.
func (d DuplicateCandidate) SumTotals() float64 { return d.Total1 + d.Total2 }

// SumMinusMerged returns how many points a merge would remove.
func (d DuplicateCandidate) SumMinusMerged() float64 { return d.SumTotals() - d.MergedTotal }

// PossibleDuplicate is an advisory pair; it never feeds clustering.
type PossibleDuplicate struct {
	Name1      string
	Slug1      string
	Name2      string
	Slug2      string
	Similarity float64
}
