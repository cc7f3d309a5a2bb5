package classes

// Class is a school year learners pick on their profile.
type Class struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	OrderNo int    `json:"order_no" db:"order_no"`
}

// Subject is taught in one or more classes through class_subjects.
type Subject struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Category    string `json:"category,omitempty" db:"category"`
	Description string `json:"description,omitempty" db:"description"`
	Image       string `json:"image,omitempty" db:"image"`
	Theme       string `json:"theme,omitempty" db:"theme"`
}
