package topics

// Ref is a named reference to a class or subject.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Topic is one lesson a learner can hold a tutoring session about.
type Topic struct {
	ID          string `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description,omitempty" db:"description"`
	OrderIndex  int    `json:"order_index" db:"order_index"`
	Class       Ref    `json:"class"`
	Subject     Ref    `json:"subject"`

	// Completed is filled only when listing for a specific learner.
	Completed bool `json:"completed"`
}
