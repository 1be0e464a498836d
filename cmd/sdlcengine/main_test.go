package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCommand(t *testing.T) {
	command, args, ok := splitCommand("npx -y my-mcp-server --port 3000")
	assert.True(t, ok)
	assert.Equal(t, "npx", command)
	assert.Equal(t, []string{"-y", "my-mcp-server", "--port", "3000"}, args)

	command, args, ok = splitCommand("server")
	assert.True(t, ok)
	assert.Equal(t, "server", command)
	assert.Empty(t, args)

	_, _, ok = splitCommand("   ")
	assert.False(t, ok)

	_, _, ok = splitCommand("")
	assert.False(t, ok)
}
