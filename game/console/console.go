// Package console implements the in-game hacking console. A command line
// reads or rewrites entity attributes on the session's grid.
//
//	help                  list commands
//	ls                    list entities with hackable attributes
//	inspect X Y           show every attribute of the entity at (X, Y)
//	set X Y ATTR VALUE    overwrite a hackable attribute
//
// "@" may replace "X Y" and means the cell the player is looking at.
package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wricardo/mcp-training/gridhack/game/engine"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
	ErrNoTarget       = errors.New("player is not looking at anything")
)

// LookingAt is the coordinate shorthand for the player's target cell.
const LookingAt = "@"

type command struct {
	usage string
	help  string
	run   func(eng *engine.GameEngine, args []string) (string, error)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":    {"help", "list commands", runHelp},
		"ls":      {"ls", "list entities with hackable attributes", runList},
		"inspect": {"inspect X Y | inspect @", "show the attributes of one entity", runInspect},
		"set":     {"set X Y ATTR VALUE | set @ ATTR VALUE", "overwrite a hackable attribute", runSet},
	}
}

var order = []string{"help", "ls", "inspect", "set"}

// Execute runs one command line against eng. Every command except help
// requires the console to be enabled.
func Execute(eng *engine.GameEngine, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	name := strings.ToLower(fields[0])
	cmd, ok := commands[name]
	if !ok {
		return "", fmt.Errorf("%w: %s (try help)", ErrUnknownCommand, fields[0])
	}
	if name != "help" && !eng.ConsoleEnabled() {
		return "", engine.ErrConsoleDisabled
	}
	return cmd.run(eng, fields[1:])
}

func runHelp(*engine.GameEngine, []string) (string, error) {
	var b strings.Builder
	for _, name := range order {
		cmd := commands[name]
		fmt.Fprintf(&b, "%-38s %s\n", cmd.usage, cmd.help)
	}
	b.WriteString(`"@" is the cell the player is looking at`)
	return b.String(), nil
}

func runList(eng *engine.GameEngine, args []string) (string, error) {
	if len(args) != 0 {
		return "", usage("ls")
	}
	g := eng.Grid()
	var lines []string
	for _, c := range g.MatchAll(func(e engine.Entity) bool { return len(e.Hackable()) > 0 }) {
		e := g.At(c)
		lines = append(lines, fmt.Sprintf("%s %s: %s", c, e.Kind(), strings.Join(e.Hackable(), ", ")))
	}
	if len(lines) == 0 {
		return "nothing to hack", nil
	}
	return strings.Join(lines, "\n"), nil
}

func runInspect(eng *engine.GameEngine, args []string) (string, error) {
	c, rest, err := target(eng, args)
	if err != nil || len(rest) != 0 {
		return "", usageOr("inspect", err)
	}
	e, err := entityAt(eng, c)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s #%d", c, e.Kind(), e.ID())
	for _, a := range engine.Attributes(e) {
		mark := " "
		if a.Hackable {
			mark = "*"
		}
		fmt.Fprintf(&b, "\n%s %s = %s", mark, a.Name, a.Value)
	}
	return b.String(), nil
}

func runSet(eng *engine.GameEngine, args []string) (string, error) {
	c, rest, err := target(eng, args)
	if err != nil || len(rest) < 2 {
		return "", usageOr("set", err)
	}
	attr, value := rest[0], strings.Join(rest[1:], " ")
	if err := eng.Hack(c, attr, value); err != nil {
		return "", err
	}
	e, _ := entityAt(eng, c)
	got, err := e.Attr(attr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s.%s = %s", c, e.Kind(), attr, got), nil
}

// target parses "@" or "X Y" off the front of args.
func target(eng *engine.GameEngine, args []string) (engine.Coord, []string, error) {
	if len(args) > 0 && args[0] == LookingAt {
		p, _, err := eng.Player()
		if err != nil {
			return engine.Coord{}, nil, err
		}
		c, ok := p.LookingAt()
		if !ok {
			return engine.Coord{}, nil, ErrNoTarget
		}
		return c, args[1:], nil
	}
	if len(args) < 2 {
		return engine.Coord{}, nil, ErrUsage
	}
	x, errX := strconv.Atoi(args[0])
	y, errY := strconv.Atoi(args[1])
	if errX != nil || errY != nil {
		return engine.Coord{}, nil, fmt.Errorf("%w: coordinates must be integers", ErrUsage)
	}
	return engine.Coord{X: x, Y: y}, args[2:], nil
}

func entityAt(eng *engine.GameEngine, c engine.Coord) (engine.Entity, error) {
	e, err := eng.Grid().Get(c)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: nothing at %s", engine.ErrNotFound, c)
	}
	return e, nil
}

func usage(name string) error {
	return fmt.Errorf("%w: %s", ErrUsage, commands[name].usage)
}

// usageOr keeps errors other than usage errors, which become the command's
// usage line.
func usageOr(name string, err error) error {
	if err != nil && !errors.Is(err, ErrUsage) {
		return err
	}
	return usage(name)
}
