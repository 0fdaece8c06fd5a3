// Package messages fills the reply, direct message and broadcast templates.
package messages

import "strings"

const (
	Amount      = "{amount}"
	Remaining   = "{remaining}"
	TxId        = "{txid}"
	Period      = "{period}"
	NewUsers    = "{new_users}"
	Withdrawals = "{withdrawals}"
)

// Render substitutes placeholder/value pairs. Unknown placeholders are left as is.
func Render(template string, pairs ...string) string {
	if template == "" || len(pairs) == 0 {
		return template
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
