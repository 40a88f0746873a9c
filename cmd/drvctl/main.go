package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	cw := zerolog.ConsoleWriter{Out: os.Stderr}
	log = zerolog.New(cw).With().Timestamp().Logger()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	a := &app{log: log}
	err := newRootCmd(a).ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil {
		log.Error().Err(cerr).Msg("failed to close transport")
	}
	stop()

	if err != nil {
		os.Exit(1)
	}
}
