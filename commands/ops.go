package commands

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Operation int

const (
	DEFAULT = iota
	// Render the chain tree from some depth above the best tip.
	SHOW
	// Print the balance owned by the local key.
	BALANCE
	// Leave the REPL.
	EXIT
)

// A command contains an operation and its arguments.
type Command struct {
	Op   Operation
	Args []string
}

func (c Command) IsValid() bool {
	switch c.Op {
	case BALANCE, EXIT:
		return len(c.Args) == 0
	case SHOW:
		if len(c.Args) != 1 {
			return false
		}
		// depth must be a number.
		if _, err := strconv.Atoi(c.Args[0]); err != nil {
			return false
		}
		return true
	default:
		return false
	}
}

// CreateCommand parses one REPL line.
func CreateCommand(s string) (Command, error) {
	ss := strings.Fields(s)
	if len(ss) == 0 {
		return Command{}, errors.New("command is empty")
	}
	cmd := Command{}
	switch ss[0] {
	case "show":
		cmd.Op = SHOW
	case "balance":
		cmd.Op = BALANCE
	case "exit":
		cmd.Op = EXIT
	}
	cmd.Args = ss[1:]
	if !cmd.IsValid() {
		return Command{}, errors.Errorf("invalid command: %s", s)
	}
	return cmd, nil
}
