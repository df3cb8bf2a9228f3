/*
Copyright 2024 Csveer Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notification

import (
	"net/http"
	"time"

	"github.com/csveer/csveer/config"
	"github.com/csveer/csveer/internal/request"
	"github.com/sirupsen/logrus"
)

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

func buildSlackMessage(err error, at time.Time) slackMessage {
	return slackMessage{Blocks: []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: "Error From Csveer 🐞", Emoji: true}},
		{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: "*Error:*\n" + err.Error()}}},
		{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: "*Time:*\n" + at.Format(time.RFC822)}}},
	}}
}

// SlackNotification posts err to the given Slack incoming webhook.
func SlackNotification(webhookURL string, err error) error {
	payload, e := request.ToJsonReq(buildSlackMessage(err, time.Now()))
	if e != nil {
		return e
	}

	req, e := http.NewRequest(http.MethodPost, webhookURL, payload)
	if e != nil {
		return e
	}

	_, e = request.Call(req, nil)
	return e
}

// NotifyError logs systemError and, when a Slack webhook is configured, forwards
// it there. It never blocks the caller.
func NotifyError(systemError error) {
	go func(systemError error) {
		logrus.Error(systemError)

		conf, err := config.Fetch()
		if err != nil {
			logrus.WithError(err).Warn("notification skipped, configuration unavailable")
			return
		}

		if conf.Notification.Slack.WebhookUrl == "" {
			return
		}
		if err := SlackNotification(conf.Notification.Slack.WebhookUrl, systemError); err != nil {
			logrus.WithError(err).Error("failed to deliver slack notification")
		}
	}(systemError)
}
