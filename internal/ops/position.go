package ops

import "fmt"

// Position says where a moved, pasted or cloned node lands relative to the
// target instance.
type Position string

const (
	// PositionChild places the node first among the target's children.
	PositionChild Position = "child"

	// PositionChildBottom places the node last among the target's children.
	PositionChildBottom Position = "child-bottom"

	// PositionSibling places the node right after the target, under the
	// target's contextual parent.
	PositionSibling Position = "sibling"
)

// ParsePosition parses the text form of a Position.
func ParsePosition(s string) (Position, error) {
	switch p := Position(s); p {
	case PositionChild, PositionChildBottom, PositionSibling:
		return p, nil
	default:
		return "", fmt.Errorf("unknown position %q (want child, child-bottom or sibling)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Position) UnmarshalText(text []byte) error {
	parsed, err := ParsePosition(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Direction is the way MoveNodeOrder shifts a node among its siblings.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection parses "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Up, Down:
		return d, nil
	default:
		return "", fmt.Errorf("unknown direction %q (want up or down)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
