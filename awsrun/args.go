package main

import (
	"fmt"
	"strconv"

	"github.com/gammadia/awsrun/catalog"
	"github.com/gammadia/awsrun/fleet"
)

// parseArgs resolves the positional arguments. It never reaches the provider.
func parseArgs(args []string) (fleet.Request, error) {
	if len(args) != 4 {
		return fleet.Request{}, fmt.Errorf("expected 4 arguments (num_instances instance_type user password), got %d", len(args))
	}

	count, err := strconv.Atoi(args[0])
	if err != nil {
		return fleet.Request{}, fmt.Errorf("invalid num_instances '%s': must be an integer", args[0])
	}
	if count <= 0 {
		return fleet.Request{}, fmt.Errorf("invalid num_instances '%s': must be greater than 0", args[0])
	}
	if count > fleet.MaxCount {
		return fleet.Request{}, fmt.Errorf("invalid num_instances '%s': must not exceed %d", args[0], fleet.MaxCount)
	}

	typ, err := catalog.Lookup(args[1])
	if err != nil {
		return fleet.Request{}, err
	}

	return fleet.Request{
		Count:    count,
		Type:     typ,
		User:     args[2],
		Password: args[3],
	}, nil
}
