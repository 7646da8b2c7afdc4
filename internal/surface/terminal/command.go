package terminal

import (
	"errors"
	"strconv"
	"strings"
)

// CommandKind identifies a REPL command.
type CommandKind int

const (
	CmdPrompt CommandKind = iota
	CmdNew
	CmdList
	CmdSwitch
	CmdMode
	CmdQuit
	CmdHelp
)

var errUsage = errors.New("usage")

// Command is one parsed input line.
type Command struct {
	Kind  CommandKind
	Arg   string
	Index int
}

// ParseCommand interprets a REPL line. Lines that do not start with "/" are
// prompts and are passed through untouched.
func ParseCommand(line string) (Command, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return Command{Kind: CmdPrompt, Arg: line}, nil
	}

	fields := strings.Fields(trimmed)
	name, args := fields[0], fields[1:]
	switch name {
	case "/new":
		return Command{Kind: CmdNew}, nil
	case "/list":
		return Command{Kind: CmdList}, nil
	case "/quit", "/exit":
		return Command{Kind: CmdQuit}, nil
	case "/help":
		return Command{Kind: CmdHelp}, nil
	case "/mode":
		if len(args) != 1 {
			return Command{}, errUsageFor("/mode <text|audio|video>")
		}
		return Command{Kind: CmdMode, Arg: args[0]}, nil
	case "/switch":
		if len(args) != 1 {
			return Command{}, errUsageFor("/switch <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return Command{}, errUsageFor("/switch <n>")
		}
		return Command{Kind: CmdSwitch, Index: n}, nil
	}
	return Command{Kind: CmdPrompt, Arg: line}, nil
}

func errUsageFor(s string) error {
	return &usageError{text: s}
}

type usageError struct{ text string }

func (e *usageError) Error() string { return "usage: " + e.text }

func (e *usageError) Unwrap() error { return errUsage }

// IsUsage reports whether err came from a malformed command.
func IsUsage(err error) bool {
	return errors.Is(err, errUsage)
}
