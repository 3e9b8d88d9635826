package mail

import (
	"context"
	"fmt"

	"github.com/app-sre/secret-expiration-notifier/pkg/util"
	"github.com/app-sre/secret-expiration-notifier/pkg/vault"
	"github.com/nikoksr/notify"
	notifymail "github.com/nikoksr/notify/service/mail"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type sendFunc func(ctx context.Context, notifier *notify.Notify, subject, body string) error

type smtpAuth struct {
	Server               string
	Port                 string
	Username             string
	Password             string
	CredentialsVaultPath string
}

func newSMTPConfig() *smtpAuth {
	var sc smtpAuth
	sub := util.EnsureViperSub(viper.GetViper(), "smtp")
	sub.SetDefault("port", "587")
	sub.BindEnv("server", "SMTP_SERVER")
	sub.BindEnv("port", "SMTP_PORT")
	sub.BindEnv("username", "SMTP_USERNAME")
	sub.BindEnv("password", "SMTP_PASSWORD")
	sub.BindEnv("credentialsvaultpath", "SMTP_CREDENTIALS_VAULT_PATH")
	if err := sub.Unmarshal(&sc); err != nil {
		util.Log().Fatalw("Error while unmarshalling configuration", "error", err.Error())
	}
	return &sc
}

// SMTPSender sends mails through an SMTP relay using github.com/nikoksr/notify
type SMTPSender struct {
	from     string
	smtpauth smtpAuth
	sendFunc sendFunc
}

var _ Sender = &SMTPSender{}

// NewSMTPSender creates a SMTPSender, credentials are read from vault if a vault path is configured
func NewSMTPSender(from string, vc *vault.Client) (*SMTPSender, error) {
	sc := newSMTPConfig()
	if len(sc.CredentialsVaultPath) > 0 {
		if vc == nil {
			return nil, fmt.Errorf("vault client required to read smtp credentials from %s", sc.CredentialsVaultPath)
		}
		values, err := vc.ReadStringFields(sc.CredentialsVaultPath, "server", "port", "username", "password")
		if err != nil {
			return nil, errors.Wrap(err, "Error while reading smtp credentials from vault")
		}
		sc.Server = values["server"]
		sc.Port = values["port"]
		sc.Username = values["username"]
		sc.Password = values["password"]
	}
	if len(sc.Server) == 0 {
		return nil, fmt.Errorf("smtp server not configured")
	}
	return &SMTPSender{
		from:     from,
		smtpauth: *sc,
		sendFunc: func(ctx context.Context, notifier *notify.Notify, subject, body string) error {
			return notifier.Send(ctx, subject, body)
		},
	}, nil
}

func (s *SMTPSender) newNotifier(recipients []string) *notify.Notify {
	notifier := notify.New()
	email := notifymail.New(s.from, fmt.Sprintf("%s:%s", s.smtpauth.Server, s.smtpauth.Port))
	email.AddReceivers(recipients...)
	if len(s.smtpauth.Username) > 0 {
		email.AuthenticateSMTP("", s.smtpauth.Username, s.smtpauth.Password, s.smtpauth.Server)
	}
	email.BodyFormat(notifymail.HTML)
	notifier.UseServices(email)
	return notifier
}

// Send implements Sender
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if len(msg.Recipients) == 0 {
		return fmt.Errorf("no recipients for message %q", msg.Subject)
	}
	util.Log().Debugw("Sending mail through smtp", "server", s.smtpauth.Server, "recipients", msg.Recipients)
	return s.sendFunc(ctx, s.newNotifier(msg.Recipients), msg.Subject, msg.HTMLBody)
}
