package health

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/mrz1836/postmark"
)

// ErrFailedToSendAlert wraps Postmark delivery failures.
var ErrFailedToSendAlert = errors.New("failed to send health alert")

// postmarkAPI is the slice of the Postmark client the notifier uses.
type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkNotifier emails health alerts to an operator address.
type PostmarkNotifier struct {
	client postmarkAPI
	from   string
	to     string
}

// NewPostmarkNotifier creates a notifier sending from and to the given
// addresses. Panics on missing configuration; a silently broken alert
// channel defeats its purpose.
func NewPostmarkNotifier(serverToken, accountToken, from, to string) *PostmarkNotifier {
	if serverToken == "" || accountToken == "" {
		panic("health: postmark tokens are required")
	}
	if from == "" || to == "" {
		panic("health: sender and recipient addresses are required")
	}
	return &PostmarkNotifier{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
		to:     to,
	}
}

func (n *PostmarkNotifier) Notify(ctx context.Context, alert Alert) error {
	resp, err := n.client.SendEmail(ctx, postmark.Email{
		From:    n.from,
		To:      n.to,
		Tag:     "health-alert",
		Subject: fmt.Sprintf("[billing] %s failing (%d consecutive errors)", alert.Component, alert.Failures),
		HTMLBody: fmt.Sprintf(
			"<p>Component <strong>%s</strong> has failed %d times in a row since %s.</p><p>Last error: <code>%s</code></p>",
			html.EscapeString(alert.Component),
			alert.Failures,
			alert.Since.UTC().Format("2006-01-02 15:04:05 MST"),
			html.EscapeString(alert.LastError),
		),
	})
	if err != nil {
		return errors.Join(ErrFailedToSendAlert, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSendAlert,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
