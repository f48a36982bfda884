package gateway_test

import (
	"testing"

	"ms-invites/internal/gateway"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want gateway.Command
	}{
		{"start", "/start", gateway.Start{}},
		{"help", "/help", gateway.Help{}},
		{"total", "/total", gateway.Total{}},
		{"redeemed", "/norole", gateway.Redeemed{}},
		{"delete", "/delete", gateway.DeleteAll{}},
		{"bot suffix", "/total@InviteBot", gateway.Total{}},
		{"uppercase command", "/TOTAL", gateway.Total{}},
		{"command with args", "/help me", gateway.Help{}},
		{"unknown command", "/redeem abc", gateway.Unrecognized{Text: "/redeem abc"}},
		{"issue", "Joao 3", gateway.Issue{BaseName: "Joao", Quantity: 3}},
		{"issue multi word", "  Maria   da Silva 2 ", gateway.Issue{BaseName: "Maria da Silva", Quantity: 2}},
		{"issue accented", "João 1", gateway.Issue{BaseName: "João", Quantity: 1}},
		{"leading zeros", "Ana 007", gateway.Issue{BaseName: "Ana", Quantity: 7}},
		{"zero quantity", "Joao 0", gateway.Invalid{Err: gateway.ErrQuantityTooSmall}},
		{"overflowing quantity", "Joao 99999999999999999999", gateway.Invalid{Err: gateway.ErrQuantityTooLarge}},
		{"negative quantity", "Joao -1", gateway.Unrecognized{Text: "Joao -1"}},
		{"missing quantity", "Joao", gateway.Unrecognized{Text: "Joao"}},
		{"missing name", "3", gateway.Unrecognized{Text: "3"}},
		{"non numeric quantity", "Joao tres", gateway.Unrecognized{Text: "Joao tres"}},
		{"empty", "   ", gateway.Unrecognized{Text: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gateway.Parse(tt.text))
		})
	}
}

func TestInvalidErrorsAreInvalidRequests(t *testing.T) {
	for _, err := range []error{gateway.ErrMissingName, gateway.ErrQuantityTooSmall, gateway.ErrQuantityTooLarge} {
		assert.ErrorIs(t, err, gateway.ErrInvalidRequest)
	}
}
