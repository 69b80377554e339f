package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nadzzz/agrivoice/internal/config"
	"github.com/nadzzz/agrivoice/internal/message"
	"github.com/nadzzz/agrivoice/internal/transport"
	"github.com/nadzzz/agrivoice/internal/tts"
	"github.com/nadzzz/agrivoice/internal/tts/player"
)

var (
	askLang   string
	askClient string
	askSpeak  bool
	askJSON   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question and print (and speak) the answer",
	Long:  "Runs a single question through the pipeline. With no argument the question is read from stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := questionText(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		a, err := build(cfg, localPlayer(cfg.Speech.Player))
		if err != nil {
			return err
		}
		defer a.Close()

		utt := &message.Utterance{ClientID: askClient, Text: text, LanguageHint: askLang}
		if cmd.Flags().Changed("speak") {
			utt.AutoSpeak = &askSpeak
		}
		transport.Prepare(utt)

		ctx := cmd.Context()
		res, err := a.dispatcher.Ask(ctx, utt)
		if err != nil {
			return err
		}
		if err := printResult(cmd.OutOrStdout(), res, askJSON); err != nil {
			return err
		}
		return waitSpeech(ctx, a, utt.ClientID, res.Speech)
	},
}

func init() {
	askCmd.Flags().StringVar(&askLang, "lang", "", "language hint for the backend (e.g. hi-IN)")
	askCmd.Flags().StringVar(&askClient, "client", "cli", "client id for the conversation log and speech session")
	askCmd.Flags().BoolVar(&askSpeak, "speak", true, "speak the answer (default from speech.auto_speak)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full pipeline result as JSON")
	rootCmd.AddCommand(askCmd)
}

// questionText joins args, or reads r when there are none.
func questionText(args []string, r io.Reader) (string, error) {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		b, err := io.ReadAll(r)
		if err != nil {
			return "", eris.Wrap(err, "reading question from stdin")
		}
		text = string(b)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", eris.New("no question given")
	}
	return text, nil
}

// localPlayer plays through the configured command, or relays when the
// command is unavailable.
func localPlayer(cfg config.PlayerConfig) tts.Player {
	p, err := player.NewExec(cfg.Command)
	if err != nil {
		slog.Warn("audio player unavailable, speech will not be played", "error", err)
		return player.Relay{}
	}
	return p
}

func printResult(w io.Writer, res *message.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := fmt.Fprintln(w, res.Answer.Text)
	return err
}

// waitSpeech blocks until the answer has been played.
func waitSpeech(ctx context.Context, a *app, client string, speech *message.Speech) error {
	if speech == nil {
		return nil
	}
	if speech.ClientSynthesis {
		slog.Warn("no server speech tier produced audio and no native engine is configured")
		return nil
	}
	return a.sessions.Get(client).Wait(ctx)
}
