package models

// Category is a node in the user's prompt taxonomy. A nil ParentID is a root.
type Category struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

func (c Category) IsRoot() bool {
	return c.ParentID == nil
}
