// Command speak synthesizes a sentence with the configured TTS_SERVICE and
// writes the audio to a file, optionally playing it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxchat/internal/catalog"
	"github.com/satriahrh/voxchat/internal/config"
	"github.com/satriahrh/voxchat/internal/providers"
)

func main() {
	text := flag.String("text", "你好！这是语音合成的演示。", "text to synthesize")
	voice := flag.String("voice", catalog.DefaultVoiceName, "timbre name from the catalog")
	out := flag.String("out", "speak_output.mp3", "output file")
	play := flag.Bool("play", false, "play the file after writing it")
	listVoices := flag.Bool("voices", false, "list the timbre names and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cat, err := catalog.Load(cfg.CatalogFile, cfg.ModelOverride())
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}

	synthesis, voices, err := providers.NewSynthesis(cfg, cat, logger)
	if err != nil {
		logger.Fatal("Failed to create TTS service", zap.Error(err))
	}

	if *listVoices {
		for _, name := range voices.Names() {
			fmt.Println(name)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SynthesisTimeout)
	defer cancel()

	logger.Info("Converting text to speech",
		zap.String("text", *text),
		zap.String("voice", *voice),
		zap.String("ttsService", cfg.TTSService))

	start := time.Now()
	audio, err := synthesis.Synthesize(ctx, *text, *voice)
	if err != nil {
		logger.Fatal("Failed to convert text to speech", zap.Error(err))
	}

	if err := os.WriteFile(*out, audio, 0o644); err != nil {
		logger.Fatal("Failed to write output file", zap.Error(err))
	}

	logger.Info("Audio conversion completed",
		zap.Int("totalBytes", len(audio)),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("outputFile", *out))

	if *play {
		if err := playAudioFile(*out, logger); err != nil {
			logger.Warn("Failed to play audio automatically", zap.Error(err))
		}
	}
}

// audioPlayer represents an audio player command and its arguments
type audioPlayer struct {
	command string
	args    []string
}

var audioPlayers = []audioPlayer{
	{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{"mpg123", []string{"-q"}},
	{"afplay", nil},
	{"play", []string{"-q"}},
}

// playAudioFile tries the first available player for compressed audio
func playAudioFile(filename string, logger *zap.Logger) error {
	for _, player := range audioPlayers {
		if _, err := exec.LookPath(player.command); err != nil {
			continue
		}

		args := append(append([]string{}, player.args...), filename)
		logger.Info("Attempting to play audio", zap.String("player", player.command), zap.Strings("args", args))
		err := exec.Command(player.command, args...).Run()
		if err == nil {
			return nil
		}
		logger.Debug("Player failed", zap.String("player", player.command), zap.Error(err))
	}
	return fmt.Errorf("no suitable audio player found")
}
