// Package mail delivers HTML notifications either through the Graph sendMail API or SMTP
package mail

import (
	"context"
	"fmt"

	"github.com/app-sre/secret-expiration-notifier/pkg/graph"
	"github.com/app-sre/secret-expiration-notifier/pkg/util"
	"github.com/app-sre/secret-expiration-notifier/pkg/vault"
	"github.com/spf13/viper"
)

// Message is a single HTML mail
type Message struct {
	Subject    string
	HTMLBody   string
	Recipients []string
}

// Sender delivers a Message
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

const (
	// TransportGraph sends mail through the Graph API
	TransportGraph = "graph"
	// TransportSMTP sends mail through an SMTP relay
	TransportSMTP = "smtp"
)

type mailConfig struct {
	Transport string
	Sender    string
}

func newMailConfig() *mailConfig {
	var mc mailConfig
	sub := util.EnsureViperSub(viper.GetViper(), "mail")
	sub.SetDefault("transport", TransportGraph)
	sub.BindEnv("transport", "MAIL_TRANSPORT")
	sub.BindEnv("sender", "MAIL_SENDER")
	if err := sub.Unmarshal(&mc); err != nil {
		util.Log().Fatalw("Error while unmarshalling configuration", "error", err.Error())
	}
	return &mc
}

// NewSender creates the Sender selected by the mail configuration section.
// gc is used for the graph transport, vc may be nil unless SMTP credentials live in vault.
func NewSender(gc graph.Client, vc *vault.Client) (Sender, error) {
	mc := newMailConfig()
	if len(mc.Sender) == 0 {
		return nil, fmt.Errorf("mail sender address not configured")
	}
	switch mc.Transport {
	case TransportGraph:
		return NewGraphSender(gc, mc.Sender), nil
	case TransportSMTP:
		return NewSMTPSender(mc.Sender, vc)
	default:
		return nil, fmt.Errorf("unsupported mail transport \"%s\"", mc.Transport)
	}
}

// GraphSender sends mails on behalf of a mailbox using the Graph API
type GraphSender struct {
	client graph.Client
	from   string
}

var _ Sender = &GraphSender{}

// NewGraphSender creates a GraphSender sending as from
func NewGraphSender(client graph.Client, from string) *GraphSender {
	return &GraphSender{client: client, from: from}
}

// Send implements Sender
func (g *GraphSender) Send(ctx context.Context, msg *Message) error {
	util.Log().Debugw("Sending mail through graph", "sender", g.from, "recipients", msg.Recipients)
	return g.client.SendMail(ctx, g.from, &graph.MailMessage{
		Subject:    msg.Subject,
		HTMLBody:   msg.HTMLBody,
		Recipients: msg.Recipients,
	})
}
