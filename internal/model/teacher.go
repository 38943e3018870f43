package model

// Org is the (school, branch, class) triple that scopes local queries and
// the remote key namespace.
type Org struct {
	School string `json:"school" yaml:"school"`
	Branch string `json:"branch" yaml:"branch"`
	Class  string `json:"class" yaml:"class"`
}

// Teacher is a roster entry. Entries are read-only once loaded.
type Teacher struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Mobile string `json:"mobile" yaml:"mobile"`
	School string `json:"school" yaml:"school"`
	Branch string `json:"branch" yaml:"branch"`
	Class  string `json:"class" yaml:"class"`
	OTP    string `json:"-" yaml:"otp"`
	Email  string `json:"email" yaml:"email"`
}

func (t Teacher) Org() Org {
	return Org{School: t.School, Branch: t.Branch, Class: t.Class}
}
