package types

// Project is the top-level container. Index is its position among all projects.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Archived    bool   `json:"archive"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Index       int64  `json:"index"`
}

// Section groups top-level tasks inside a project. Index is its position
// among the sections of Project.
type Section struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Project int64  `json:"project"`
	Index   int64  `json:"index"`
}
