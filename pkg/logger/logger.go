package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global zerolog logger. Development gets a human readable
// console writer, every other environment JSON lines on stdout.
func Setup(appEnv string) zerolog.Logger {
	return SetupWriter(appEnv, os.Stdout)
}

func SetupWriter(appEnv string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	out := w
	level := zerolog.InfoLevel
	if appEnv == "development" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
		level = zerolog.DebugLevel
	}

	l := zerolog.New(out).Level(level).With().Timestamp().Logger()
	log.Logger = l
	return l
}
