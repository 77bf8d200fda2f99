package engine

import "fmt"

var constructors = map[Kind]func(IDSource) Entity{
	KindEmpty:               func(ids IDSource) Entity { return NewEmpty(ids) },
	KindWall:                func(ids IDSource) Entity { return NewWall(ids) },
	KindPlayer:              func(ids IDSource) Entity { return NewPlayer(ids) },
	KindItem:                func(ids IDSource) Entity { return NewItem(ids) },
	KindSmallKey:            func(ids IDSource) Entity { return NewSmallKey(ids) },
	KindBigKey:              func(ids IDSource) Entity { return NewBigKey(ids) },
	KindKeyDoor:             func(ids IDSource) Entity { return NewKeyDoor(ids) },
	KindColoredDoor:         func(ids IDSource) Entity { return NewColoredDoor(ids) },
	KindChangingColoredDoor: func(ids IDSource) Entity { return NewChangingColoredDoor(ids) },
	KindAllyDrone:           func(ids IDSource) Entity { return NewAllyDrone(ids) },
	KindComputer:            func(ids IDSource) Entity { return NewComputer(ids) },
	KindMazeGenerator:       func(ids IDSource) Entity { return NewMazeGenerator(ids) },
	KindExit:                func(ids IDSource) Entity { return NewExit(ids) },
	KindFluxBarrier:         func(ids IDSource) Entity { return NewFluxBarrier(ids) },
}

// New constructs a default entity of the given kind.
func New(ids IDSource, kind Kind) (Entity, error) {
	ctor, ok := constructors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return ctor(ids), nil
}

// NewConfigured constructs an entity of the given kind and applies params
// through Configure.
func NewConfigured(ids IDSource, kind Kind, params map[string]string) (Entity, error) {
	e, err := New(ids, kind)
	if err != nil {
		return nil, err
	}
	if err := Configure(e, params); err != nil {
		return nil, err
	}
	return e, nil
}

// FactoryFor returns a spawner that builds a fresh configured entity for
// every cell it is placed in.
func FactoryFor(kind Kind, params map[string]string) Factory {
	return func(g *Grid) (Entity, error) {
		return NewConfigured(g, kind, params)
	}
}
