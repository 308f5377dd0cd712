package keel

import (
	"fmt"
	"io"
)

// CalmDown writes a short reassurance to w.
func CalmDown(w io.Writer) error {
	_, err := fmt.Fprintln(w, "Calm down, yo.")
	return err
}
