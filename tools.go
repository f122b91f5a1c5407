//go:build tools

// This file only pins the mutation-testing tool's module version in
// go.mod/go.sum; it is never built into the selfencrypt binary.
package tools

import _ "github.com/go-gremlins/gremlins/cmd/gremlins"
