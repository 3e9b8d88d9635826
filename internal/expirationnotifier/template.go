package expirationnotifier

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/app-sre/secret-expiration-notifier/pkg/mail"
)

var messageTemplate = template.Must(template.New("message").Parse(`<p>The following key is scheduled to expire in exactly {{.DaysLeft}} days:</p>
<p><strong>App:</strong> {{.Application}}<br>
<strong>AppId:</strong> {{.AppID}}<br>
<strong>Key:</strong> {{.KeyID}}<br>
<strong>Expiration:</strong> {{.Expiration}}<br>
<strong>Days Left:</strong> {{.DaysLeft}}<br>
<strong>Owner:</strong> {{.Owner}}<br></p>
<hr>
<p>If you wish to extend the application's validity (i.e. generate a new secret), please submit a ticket using the link below:</p>
<p><a href="{{.TicketURL}}">Submit Ticket</a></p>
<hr>
<h3>Ticket Submission Template</h3>
<p><strong>Summary:</strong> Request to Generate New Secret for {{.Application}}</p>
<p><strong>Description:</strong><br>
<strong>Application Name:</strong> {{.Application}}<br>
<strong>AppId:</strong> {{.AppID}}<br>
<strong>Current Secret Expiration Date:</strong> {{.Expiration}}<br>
<strong>Owner:</strong> {{.Owner}}<br><br>
Please generate a new secret for the above application to extend its validity. If additional details are required, please contact the application owner.</p>
`))

type messageData struct {
	notification
	TicketURL string
}

func subject(thresholdDays int, application string) string {
	return fmt.Sprintf("Alert: Keys expiring in %d days for application: %s", thresholdDays, application)
}

func renderMessage(n notification, thresholdDays int, ticketURL string) (*mail.Message, error) {
	var body bytes.Buffer
	if err := messageTemplate.Execute(&body, messageData{notification: n, TicketURL: ticketURL}); err != nil {
		return nil, err
	}
	return &mail.Message{
		Subject:    subject(thresholdDays, n.Application),
		HTMLBody:   body.String(),
		Recipients: n.Recipients,
	}, nil
}
