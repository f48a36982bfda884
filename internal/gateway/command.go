package gateway

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRequest marks caller input that cannot become a ticket operation.
var ErrInvalidRequest = errors.New("invalid request")

var (
	ErrMissingName      = fmt.Errorf("%w: missing name", ErrInvalidRequest)
	ErrQuantityTooSmall = fmt.Errorf("%w: quantity must be at least 1", ErrInvalidRequest)
	ErrQuantityTooLarge = fmt.Errorf("%w: quantity is too large", ErrInvalidRequest)
)

// Command is one decoded inbound message. The set of implementations is
// closed; every variant maps to at most one ticket operation.
type Command interface {
	command()
}

type (
	Start     struct{}
	Help      struct{}
	Total     struct{}
	Redeemed  struct{}
	DeleteAll struct{}

	// Issue asks for Quantity tickets labelled BaseName_1..BaseName_N.
	Issue struct {
		BaseName string
		Quantity int
	}

	// Invalid has the "Name N" shape but an unusable quantity.
	Invalid struct {
		Err error
	}

	// Unrecognized is anything else, including unknown slash commands.
	Unrecognized struct {
		Text string
	}
)

func (Start) command()        {}
func (Help) command()         {}
func (Total) command()        {}
func (Redeemed) command()     {}
func (DeleteAll) command()    {}
func (Issue) command()        {}
func (Invalid) command()      {}
func (Unrecognized) command() {}

var slashCommands = map[string]Command{
	"start":  Start{},
	"help":   Help{},
	"total":  Total{},
	"norole": Redeemed{},
	"delete": DeleteAll{},
}

// Parse decodes raw message text. Slash commands may carry a bot suffix
// ("/total@InviteBot") and trailing arguments, which are ignored. Plain text
// is read as "<name...> <quantity>".
func Parse(text string) Command {
	text = strings.TrimSpace(text)
	if text == "" {
		return Unrecognized{Text: text}
	}

	if strings.HasPrefix(text, "/") {
		name := strings.Fields(text)[0][1:]
		if at := strings.IndexByte(name, '@'); at >= 0 {
			name = name[:at]
		}
		if cmd, ok := slashCommands[strings.ToLower(name)]; ok {
			return cmd
		}
		return Unrecognized{Text: text}
	}

	parts := strings.Fields(text)
	last := parts[len(parts)-1]
	if len(parts) < 2 || !isDigits(last) {
		return Unrecognized{Text: text}
	}

	quantity, err := strconv.Atoi(last)
	if err != nil {
		return Invalid{Err: ErrQuantityTooLarge}
	}
	if quantity < 1 {
		return Invalid{Err: ErrQuantityTooSmall}
	}
	return Issue{
		BaseName: strings.Join(parts[:len(parts)-1], " "),
		Quantity: quantity,
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
