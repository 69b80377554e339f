package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nadzzz/agrivoice/internal/message"
	"github.com/nadzzz/agrivoice/internal/tts/player"
)

var (
	speakLang  string
	speakVoice string
	speakRate  float64
	speakOut   string
)

var speakCmd = &cobra.Command{
	Use:   "speak [text]",
	Short: "Speak a sentence through the speech chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := questionText(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		// Writing to a file needs the audio back instead of played.
		p := localPlayer(cfg.Speech.Player)
		if speakOut != "" {
			p = player.Relay{}
		}
		a, err := build(cfg, p)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		speech, err := a.dispatcher.Speak(ctx, message.SpeakRequest{
			ClientID: "cli",
			Text:     text,
			Language: speakLang,
			Voice:    speakVoice,
			Rate:     speakRate,
		})
		if err != nil {
			return err
		}
		if speakOut != "" {
			return writeAudio(speakOut, speech)
		}
		return waitSpeech(ctx, a, "cli", speech)
	},
}

func init() {
	speakCmd.Flags().StringVar(&speakLang, "lang", "", "speech locale (detected from the text when empty)")
	speakCmd.Flags().StringVar(&speakVoice, "voice", "", "provider voice (default from speech.default_voice)")
	speakCmd.Flags().Float64Var(&speakRate, "rate", 0, "playback rate multiplier (default from speech.rate_multiplier)")
	speakCmd.Flags().StringVarP(&speakOut, "out", "o", "", "write the audio to a file instead of playing it")
	rootCmd.AddCommand(speakCmd)
}

func writeAudio(path string, speech *message.Speech) error {
	if speech.ClientSynthesis || speech.Audio == "" {
		return eris.New("no speech tier produced audio")
	}
	audio, err := speech.AudioBytes()
	if err != nil {
		return err
	}
	return eris.Wrapf(os.WriteFile(path, audio, 0o644), "writing %s", path)
}
