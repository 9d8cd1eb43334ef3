package links

import (
	"net/url"
	"strings"
	"testing"
)

func TestForBuildsBothLinks(t *testing.T) {
	c := Contacts{WhatsAppPhone: "251992011629", TelegramHandle: "EtsubOnline"}

	got := c.For("Summer Dress", 2800)

	if !strings.HasPrefix(got.WhatsApp, "https://wa.me/251992011629?text=") {
		t.Errorf("whatsapp = %q", got.WhatsApp)
	}
	if !strings.HasPrefix(got.Telegram, "https://t.me/EtsubOnline?text=") {
		t.Errorf("telegram = %q", got.Telegram)
	}

	wa, err := url.Parse(got.WhatsApp)
	if err != nil {
		t.Fatalf("whatsapp url: %v", err)
	}
	if msg := wa.Query().Get("text"); msg != "Hi! I'm interested in Summer Dress (2800 ETB)" {
		t.Errorf("whatsapp text = %q", msg)
	}

	tg, err := url.Parse(got.Telegram)
	if err != nil {
		t.Fatalf("telegram url: %v", err)
	}
	if msg := tg.Query().Get("text"); msg != "Hi! I'm interested in Summer Dress" {
		t.Errorf("telegram text = %q", msg)
	}
}

func TestForEscapesProductName(t *testing.T) {
	c := Contacts{WhatsAppPhone: "251992011629"}

	got := c.For("Dress & Scarf / 100% cotton", 1500)

	query := got.WhatsApp[strings.Index(got.WhatsApp, "?text=")+len("?text="):]
	if strings.ContainsAny(query, " &") {
		t.Errorf("unescaped characters in query: %q", query)
	}

	u, err := url.Parse(got.WhatsApp)
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if msg := u.Query().Get("text"); msg != "Hi! I'm interested in Dress & Scarf / 100% cotton (1500 ETB)" {
		t.Errorf("round-tripped text = %q", msg)
	}
}

func TestForOmitsUnconfiguredChannels(t *testing.T) {
	got := Contacts{TelegramHandle: "EtsubOnline"}.For("Dress", 1000)
	if got.WhatsApp != "" {
		t.Errorf("whatsapp link without a phone: %q", got.WhatsApp)
	}
	if got.Telegram == "" {
		t.Error("telegram link missing")
	}

	if got := (Contacts{}).For("Dress", 1000); got.WhatsApp != "" || got.Telegram != "" {
		t.Errorf("links from empty contacts: %+v", got)
	}
}

func TestFormatETB(t *testing.T) {
	cases := map[float64]string{
		2800:   "2800",
		2800.5: "2800.5",
		0:      "0",
	}
	for in, want := range cases {
		if got := formatETB(in); got != want {
			t.Errorf("formatETB(%v) = %q, want %q", in, got, want)
		}
	}
}
