package catalog

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Type is an instance type known to awsrun.
type Type struct {
	Name  string `json:"name" yaml:"name"`
	Cores int    `json:"cores" yaml:"cores"`
}

// Only the "Compute Optimized" family is supported.
// See http://aws.amazon.com/ec2/instance-types/
var types = []Type{
	{Name: "c3.xlarge", Cores: 4},
	{Name: "c3.2xlarge", Cores: 8},
	{Name: "c3.4xlarge", Cores: 16},
	{Name: "c3.8xlarge", Cores: 32},
}

// Concurrency is the number of worker threads started on an instance of this type.
// One core is left to the system.
func (t Type) Concurrency() int {
	return t.Cores - 1
}

func (t Type) String() string {
	return t.Name
}

// All returns a copy of the catalog in declaration order.
func All() []Type {
	return append([]Type(nil), types...)
}

// Names returns the valid instance type identifiers.
func Names() []string {
	return lo.Map(types, func(t Type, _ int) string {
		return t.Name
	})
}

type UnknownTypeError struct {
	Name string
}

func (e UnknownTypeError) Error() string {
	return fmt.Sprintf("invalid instance type '%s' (choose from %s)", e.Name, quotedNames())
}

func Lookup(name string) (Type, error) {
	if t, ok := lo.Find(types, func(t Type) bool { return t.Name == name }); ok {
		return t, nil
	}
	return Type{}, UnknownTypeError{Name: name}
}

func quotedNames() string {
	return strings.Join(lo.Map(Names(), func(name string, _ int) string {
		return "'" + name + "'"
	}), ", ")
}
