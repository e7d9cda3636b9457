package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/ericfisherdev/otpdeck/internal/adapter/driven/docstore"
	"github.com/ericfisherdev/otpdeck/internal/application"
	"github.com/ericfisherdev/otpdeck/internal/config"
)

var errNotInteractive = errors.New("refusing to prompt on non-interactive input; pass --yes to confirm")

// app carries the state shared by every subcommand. The document store is
// opened lazily so commands that never touch it also work without one.
type app struct {
	v          *viper.Viper
	logger     *slog.Logger
	backend    *docstore.Backend
	configs    *application.ConfigStore
	isTerminal func(io.Reader) bool
	verbose    bool
}

func newApp() *app {
	return &app{
		v:          viper.New(),
		isTerminal: readerIsTerminal,
	}
}

// store opens the configured document store on first use.
func (a *app) store(cmd *cobra.Command) (*application.ConfigStore, error) {
	if a.configs != nil {
		return a.configs, nil
	}

	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return nil, err
	}
	cfg, err := config.LoadFrom(a.v)
	if err != nil {
		return nil, err
	}

	backend, err := docstore.Open(cmd.Context(), cfg, a.log(cmd))
	if err != nil {
		return nil, err
	}
	a.log(cmd).Info("document store opened", "store", cfg.Store, "location", backend.Location)

	a.backend = backend
	a.configs = application.NewConfigStore(backend.Store, a.log(cmd))
	return a.configs, nil
}

func (a *app) log(cmd *cobra.Command) *slog.Logger {
	if a.logger == nil {
		level := slog.LevelWarn
		if a.verbose {
			level = slog.LevelInfo
		}
		a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	}
	return a.logger
}

func (a *app) close() {
	if a.backend == nil {
		return
	}
	if err := a.backend.Close(); err != nil && a.logger != nil {
		a.logger.Error("error closing document store", "error", err)
	}
	a.backend, a.configs = nil, nil
}

// confirm asks a yes/no question on the command's input. It refuses to
// prompt when input is not a terminal, so scripts must opt in with --yes.
func (a *app) confirm(cmd *cobra.Command, yes bool, prompt string) (bool, error) {
	if yes {
		return true, nil
	}
	if !a.isTerminal(cmd.InOrStdin()) {
		return false, errNotInteractive
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func readerIsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
