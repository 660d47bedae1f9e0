package communication

import (
	"errors"
	"fmt"
	"os"

	"github.com/slack-go/slack"

	"punchexport.com/punchexport/punch/core"
)

type Slack struct {
	client  *slack.Client
	options SlackOption
}

type SlackOption struct {
	InfoChannelID  string
	ErrorChannelID string
}

// ConnectSlack reads SLACK_BOT_TOKEN, SLACK_INFO_CHANNEL and
// SLACK_ERROR_CHANNEL.
func ConnectSlack() *Slack {
	token := os.Getenv("SLACK_BOT_TOKEN")
	infoCh := os.Getenv("SLACK_INFO_CHANNEL")
	errorCh := os.Getenv("SLACK_ERROR_CHANNEL")

	return NewSlack(token, SlackOption{InfoChannelID: infoCh, ErrorChannelID: errorCh})
}

func NewSlack(token string, options SlackOption, clientOptions ...slack.Option) *Slack {
	client := slack.New(token, clientOptions...)
	return &Slack{client: client, options: options}
}

func (s *Slack) postMessage(channelID, message string) error {
	if channelID == "" {
		return nil
	}
	_, _, err := s.client.PostMessage(
		channelID,
		slack.MsgOptionText(message, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

func (s *Slack) Info(message string) error {
	return s.postMessage(s.options.InfoChannelID, message)
}

func (s *Slack) Error(message string) error {
	return s.postMessage(s.options.ErrorChannelID, "```"+message+"```")
}

// Notifiers sends every message to each notifier in turn.
type Notifiers []core.Notifier

func (n Notifiers) Info(message string) error {
	var errs []error
	for _, notifier := range n {
		errs = append(errs, notifier.Info(message))
	}
	return errors.Join(errs...)
}

func (n Notifiers) Error(message string) error {
	var errs []error
	for _, notifier := range n {
		errs = append(errs, notifier.Error(message))
	}
	return errors.Join(errs...)
}
