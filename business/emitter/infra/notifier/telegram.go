// Package notifier implements the Emitter's chat-bot outbound port against
// the Telegram bot HTTP API, grounded on internal/httpclient's instrumented
// request builder.
package notifier

import (
	"context"
	"fmt"

	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/httpclient"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier sends opportunity summaries to a Telegram chat via the
// bot sendMessage endpoint.
type TelegramNotifier struct {
	client httpclient.Client
	token  string
	chat   string
}

// NewTelegramNotifier builds a TelegramNotifier. token and chat come from
// config.NotifierConfig; client should be built with
// httpclient.NewInstrumentedClient.
func NewTelegramNotifier(client httpclient.Client, token, chat string) *TelegramNotifier {
	return &TelegramNotifier{client: client, token: token, chat: chat}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send implements emitter/app.Notifier.
func (n *TelegramNotifier) Send(ctx context.Context, text string) error {
	if n.token == "" || n.chat == "" {
		return apperror.New(apperror.CodeNotifierSendFailed,
			apperror.WithMessage("notifier token or chat not configured"))
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, n.token)
	var result sendMessageResponse
	resp, err := n.client.NewRequest().
		SetBody(sendMessageRequest{ChatID: n.chat, Text: text}).
		SetResult(&result).
		Post(ctx, url)
	if err != nil {
		return apperror.New(apperror.CodeNotifierSendFailed,
			apperror.WithMessage("telegram sendMessage request failed"),
			apperror.WithCause(err))
	}
	if resp.IsError() || !result.OK {
		return apperror.New(apperror.CodeNotifierSendFailed,
			apperror.WithMessage("telegram sendMessage rejected"),
			apperror.WithContext(fmt.Sprintf("status=%d description=%s", resp.StatusCode, result.Description)))
	}
	return nil
}
