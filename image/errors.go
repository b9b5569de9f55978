package image

import "fmt"

// DuplicateLabelError is returned by AddLabel when name is already bound,
// whether in the same table or across the text/data namespace split.
type DuplicateLabelError struct {
	Name string
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("duplicate label %q", e.Name)
}
