package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

type sender interface {
	Send(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error)
}

// Notifier posts batch run summaries as an interactive card to a Lark group chat
type Notifier struct {
	sender sender
	chatID string
	logger *zap.Logger
}

// NewNotifier creates a notifier that posts to the client's configured chat
func NewNotifier(client *Client, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender: NewMessenger(client, logger),
		chatID: client.ChatID(),
		logger: logger,
	}
}

// NotifyBatch sends the run counters and the tickets that need attention
func (n *Notifier) NotifyBatch(ctx context.Context, run *entity.BatchRun) error {
	if n.chatID == "" {
		return fmt.Errorf("lark chat_id is not configured")
	}

	card, err := json.Marshal(buildBatchCard(run))
	if err != nil {
		return fmt.Errorf("failed to marshal card content: %w", err)
	}

	if _, err := n.sender.Send(ctx, receiveIDTypeChat, n.chatID, "interactive", string(card)); err != nil {
		return fmt.Errorf("failed to send batch summary: %w", err)
	}

	n.logger.Info("Batch summary sent",
		zap.String("run_id", run.ID),
		zap.String("chat_id", n.chatID))
	return nil
}

type card struct {
	Config   cardConfig    `json:"config"`
	Header   cardHeader    `json:"header"`
	Elements []cardElement `json:"elements"`
}

type cardConfig struct {
	WideScreenMode bool `json:"wide_screen_mode"`
}

type cardHeader struct {
	Template string   `json:"template"`
	Title    cardText `json:"title"`
}

type cardElement struct {
	Tag  string    `json:"tag"`
	Text *cardText `json:"text,omitempty"`
}

type cardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

// maxListedTickets bounds the attention list so the card stays readable
const maxListedTickets = 15

func buildBatchCard(run *entity.BatchRun) card {
	template := "green"
	title := fmt.Sprintf("Invoice intake run %s", shortID(run.ID))
	switch {
	case !run.Success:
		template = "red"
		title += " failed"
	case run.Failed > 0 || run.CreationFailed > 0:
		template = "orange"
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "**Trigger:** %s\n", run.Trigger)
	fmt.Fprintf(&summary, "**Tickets:** %d\n", run.TicketCount)
	fmt.Fprintf(&summary, "Linked: %d | Duplicates: %d | No PDF: %d\n", run.Linked, run.Duplicates, run.NoPDF)
	fmt.Fprintf(&summary, "No valid PO: %d | Unknown PO: %d | Creation failed: %d | Errors: %d",
		run.NoValidPO, run.POInexistent, run.CreationFailed, run.Failed)
	if run.Error != "" {
		fmt.Fprintf(&summary, "\n**Error:** %s", run.Error)
	}

	elements := []cardElement{{Tag: "div", Text: &cardText{Tag: "lark_md", Content: summary.String()}}}

	if attention := attentionLines(run); attention != "" {
		elements = append(elements,
			cardElement{Tag: "hr"},
			cardElement{Tag: "div", Text: &cardText{Tag: "lark_md", Content: attention}},
		)
	}

	return card{
		Config:   cardConfig{WideScreenMode: true},
		Header:   cardHeader{Template: template, Title: cardText{Tag: "plain_text", Content: title}},
		Elements: elements,
	}
}

// attentionLines lists tickets an operator has to look at
func attentionLines(run *entity.BatchRun) string {
	var lines []string
	for _, t := range run.Tickets {
		var detail string
		switch {
		case t.Error != "":
			detail = "error: " + t.Error
		case t.Stage == entity.StagePOInexistent:
			detail = "unknown PO " + t.PONumber
		case t.Stage == entity.StageCreationFailed:
			detail = "invoice creation failed"
		default:
			continue
		}
		lines = append(lines, fmt.Sprintf("- #%d %s: %s", t.TicketID, t.TicketName, detail))
	}
	if len(lines) == 0 {
		return ""
	}

	extra := 0
	if len(lines) > maxListedTickets {
		extra = len(lines) - maxListedTickets
		lines = lines[:maxListedTickets]
	}
	out := "**Needs attention**\n" + strings.Join(lines, "\n")
	if extra > 0 {
		out += fmt.Sprintf("\n... and %d more", extra)
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var _ port.Notifier = (*Notifier)(nil)
