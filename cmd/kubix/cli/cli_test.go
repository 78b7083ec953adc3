package cli

import (
	"bytes"
	"context"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTree(ran *[]string, verbose *bool) *Command {
	root := &Command{
		Usage: "tool",
		Long:  "tool does things",
		Setup: func(fs *flag.FlagSet) {
			fs.BoolVar(verbose, "v", false, "verbose")
		},
	}
	root.SetOutput(new(bytes.Buffer))
	root.AddCommand(&Command{
		Usage: "greet <name>",
		Short: "say hello",
		Args:  RangeArgs(1, 2),
		Run: func(ctx context.Context, args []string) {
			*ran = append(*ran, args...)
		},
	})
	return root
}

func TestExecute(t *testing.T) {
	var ran []string
	var verbose bool
	root := newTree(&ran, &verbose)

	err := Execute(context.Background(), root, []string{"-v", "greet", "bob"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"bob"}, ran)
	assert.True(t, verbose)
}

func TestExecuteErrors(t *testing.T) {
	var ran []string
	var verbose bool
	root := newTree(&ran, &verbose)

	assert.ErrorIs(t, Execute(context.Background(), root, []string{"wave"}), ErrUsage)
	assert.ErrorIs(t, Execute(context.Background(), root, []string{"greet"}), ErrUsage)
	assert.ErrorIs(t, Execute(context.Background(), root, []string{"greet", "a", "b", "c"}), ErrUsage)
	assert.ErrorIs(t, Execute(context.Background(), root, []string{"-nope"}), ErrUsage)
	assert.Empty(t, ran)
}

func TestHelp(t *testing.T) {
	var ran []string
	var verbose bool
	root := newTree(&ran, &verbose)
	buf := new(bytes.Buffer)
	root.SetOutput(buf)

	assert.NoError(t, Execute(context.Background(), root, nil))
	assert.Contains(t, buf.String(), "greet")
	assert.Contains(t, buf.String(), "say hello")
	assert.Contains(t, buf.String(), "-v")

	buf.Reset()
	assert.NoError(t, Execute(context.Background(), root, []string{"help", "greet"}))
	assert.Contains(t, buf.String(), "tool greet <name>")
}
