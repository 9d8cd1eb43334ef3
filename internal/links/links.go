// Package links builds the chat deep links a storefront visitor uses to
// place an order. Pure string templating, no network.
package links

import (
	"fmt"
	"net/url"
	"strconv"
)

type Contacts struct {
	// WhatsAppPhone is the international number without the leading plus,
	// e.g. "251992011629".
	WhatsAppPhone string
	// TelegramHandle is the public channel or user name, e.g. "EtsubOnline".
	TelegramHandle string
}

// OrderLinks are the pre-filled handoff URLs for one product.
type OrderLinks struct {
	WhatsApp string `json:"whatsapp,omitempty"`
	Telegram string `json:"telegram,omitempty"`
}

func (c Contacts) For(name string, finalPriceETB float64) OrderLinks {
	var out OrderLinks
	if c.WhatsAppPhone != "" {
		msg := fmt.Sprintf("Hi! I'm interested in %s (%s ETB)", name, formatETB(finalPriceETB))
		out.WhatsApp = "https://wa.me/" + c.WhatsAppPhone + "?text=" + url.QueryEscape(msg)
	}
	if c.TelegramHandle != "" {
		msg := fmt.Sprintf("Hi! I'm interested in %s", name)
		out.Telegram = "https://t.me/" + c.TelegramHandle + "?text=" + url.QueryEscape(msg)
	}
	return out
}

func formatETB(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
