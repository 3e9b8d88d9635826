package graph

import (
	"fmt"
	"time"
)

// Application is an application registration as returned by /applications
type Application struct {
	ID                  string       `json:"id"`
	AppID               string       `json:"appId"`
	DisplayName         string       `json:"displayName"`
	IdentifierURIs      []string     `json:"identifierUris"`
	KeyCredentials      []Credential `json:"keyCredentials"`
	PasswordCredentials []Credential `json:"passwordCredentials"`
}

// Credential is a key or password credential of an Application
type Credential struct {
	KeyID       string `json:"keyId"`
	DisplayName string `json:"displayName"`
	EndDateTime string `json:"endDateTime"`
}

// Expiration parses EndDateTime
func (c Credential) Expiration() (time.Time, error) {
	if len(c.EndDateTime) == 0 {
		return time.Time{}, fmt.Errorf("credential %s has no endDateTime", c.KeyID)
	}
	end, err := time.Parse(time.RFC3339, c.EndDateTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("credential %s has invalid endDateTime %q: %w", c.KeyID, c.EndDateTime, err)
	}
	return end.UTC(), nil
}

// Owner is a directory object owning an Application
type Owner struct {
	Mail        string `json:"mail"`
	DisplayName string `json:"displayName"`
}

// Name returns the mail address of the owner, falling back to the display name
func (o *Owner) Name() string {
	if o == nil {
		return ""
	}
	if len(o.Mail) > 0 {
		return o.Mail
	}
	return o.DisplayName
}

// MailMessage is an HTML message sent through /users/{sender}/sendMail
type MailMessage struct {
	Subject    string
	HTMLBody   string
	Recipients []string
}

type applicationPage struct {
	Value    []Application `json:"value"`
	NextLink string        `json:"@odata.nextLink"`
}

type ownerPage struct {
	Value []Owner `json:"value"`
}

type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

type sendMailMessage struct {
	Subject      string      `json:"subject"`
	Body         itemBody    `json:"body"`
	ToRecipients []recipient `json:"toRecipients"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
}
