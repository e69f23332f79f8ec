package tool

import "errors"

var (
	ErrFileNotFound = errors.New("file not found")
	// ErrTextNotFound is returned by str_replace when old_str does not occur.
	ErrTextNotFound = errors.New("text not found")
	// ErrTextAmbiguous is returned by str_replace when old_str occurs more than once.
	ErrTextAmbiguous = errors.New("text appears more than once")
)
