package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rag-console/internal/api"
	"rag-console/internal/chat"
	"rag-console/internal/history"
	"rag-console/internal/models"
)

func newChatCmd(a *app) *cobra.Command {
	var tone string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation with the assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tone == "" {
				tone = a.cfg.DefaultTone
			}
			if !models.ValidTone(tone) {
				return fmt.Errorf("unknown tone %q, valid tones: %s", tone, strings.Join(models.Tones, ", "))
			}
			return a.runChat(cmd, tone)
		},
	}
	cmd.Flags().StringVarP(&tone, "tone", "t", "", "answer tone: "+strings.Join(models.Tones, ", "))
	return cmd
}

func (a *app) runChat(cmd *cobra.Command, tone string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	rec := chat.NewReconciler(chat.OpenerFunc(
		func(ctx context.Context, req api.ChatRequest) (chat.EventStream, error) {
			return a.client.ChatStream(ctx, req)
		}))

	store, err := history.Open(a.cfg.HistoryDB, a.cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to open history store: %v", err)
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("failed to init history store: %v", err)
	}

	// Incremental printing: emit only the unseen tail of the content.
	printed := 0
	rec.OnUpdate = func(turn models.Turn) {
		if len(turn.Content) > printed {
			fmt.Fprint(out, turn.Content[printed:])
			printed = len(turn.Content)
		}
	}

	for _, t := range rec.Turns() {
		fmt.Fprintf(out, "assistant> %s\n", t.Content)
	}
	fmt.Fprintf(out, "(tone: %s, /tone <label> to switch, /quit to leave)\n", tone)

	prompt := "you"
	if role := a.sess.Role(); role != "" {
		prompt = role
	}

	var conversationID int64
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprintf(out, "\n%s> ", prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit", line == "/exit":
			return nil
		case strings.HasPrefix(line, "/tone"):
			next := strings.TrimSpace(strings.TrimPrefix(line, "/tone"))
			if !models.ValidTone(next) {
				fmt.Fprintf(out, "unknown tone %q, valid tones: %s\n", next, strings.Join(models.Tones, ", "))
				continue
			}
			tone = next
			fmt.Fprintf(out, "tone set to %s\n", tone)
			continue
		}

		if conversationID == 0 {
			conversationID, err = store.CreateConversation(ctx, firstWords(line), tone)
			if err != nil {
				log.Warn().Err(err).Msg("failed to create history conversation")
			}
		}

		printed = 0
		fmt.Fprint(out, "\nassistant> ")
		assistant, err := rec.Submit(ctx, line, tone)
		if err != nil {
			if errors.Is(err, chat.ErrExchangeActive) || errors.Is(err, chat.ErrEmptyMessage) {
				fmt.Fprintln(out, err)
				continue
			}
			return err
		}
		fmt.Fprintln(out)
		if len(assistant.Sources) > 0 {
			fmt.Fprintf(out, "Sources: %s\n", strings.Join(assistant.Sources, ", "))
		}

		if conversationID != 0 {
			turns := rec.Turns()
			user := turns[len(turns)-2]
			if err := store.SaveExchange(ctx, conversationID, user, assistant); err != nil {
				log.Warn().Err(err).Msg("failed to save exchange")
			}
		}
	}
	return scanner.Err()
}

// firstWords trims a question down to a short conversation title
func firstWords(s string) string {
	const maxTitle = 60
	if len(s) <= maxTitle {
		return s
	}
	return s[:maxTitle] + "…"
}
