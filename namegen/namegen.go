package namegen

import (
	vendor "github.com/anandvarma/namegen"
)

var gen = vendor.New()

// ID names a fleet. It is attached to every instance of the fleet so they can
// be recognised in the provider console.
type ID string

// Fleet returns a new ID prefixed with "awsrun-".
func Fleet() ID {
	return ID("awsrun-" + gen.Get())
}

func (id ID) String() string {
	return string(id)
}
