// cmd/setup/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"

	"github.com/ramtinsoft/ibsguard/internal/adapter/runtime"
	"github.com/ramtinsoft/ibsguard/internal/cli"
	"github.com/ramtinsoft/ibsguard/internal/config"
	"github.com/ramtinsoft/ibsguard/internal/infrastructure/logger"
	"github.com/ramtinsoft/ibsguard/internal/setup"
)

func main() {
	if err := run(); err != nil {
		cli.Fatalf("%v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	botToken := flag.String("bot-token", "", "Telegram bot token (prompted for when empty)")
	chatID := flag.String("chat-id", "", "Telegram chat id (prompted for when empty)")
	noBot := flag.Bool("no-bot", false, "skip Telegram bot setup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer log.Close()

	opts := setup.Options{BotToken: *botToken, ChatID: *chatID}
	if !*noBot {
		if err := promptCredentials(&opts); err != nil {
			return err
		}
	}

	rt, err := runtime.NewDocker(cfg.Container.StopTimeoutSeconds)
	if err != nil {
		return fmt.Errorf("connect to docker: %w", err)
	}
	defer rt.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := setup.New(rt, cfg, log).Run(ctx, opts); err != nil {
		return err
	}

	cli.Successf("Setup finished. Start the agent with: ibsguard-agent -config %s", *configPath)
	return nil
}

// promptCredentials asks for any Telegram credential not already supplied
// on the command line. Empty answers leave the bot disabled.
func promptCredentials(opts *setup.Options) error {
	if opts.BotToken == "" {
		q := &survey.Input{Message: "Telegram bot token (empty to disable the bot):"}
		if err := survey.AskOne(q, &opts.BotToken); err != nil {
			return fmt.Errorf("prompt failed: %w", err)
		}
		opts.BotToken = strings.TrimSpace(opts.BotToken)
	}
	if opts.BotToken == "" {
		return nil
	}

	for opts.ChatID == "" {
		q := &survey.Input{Message: "Telegram chat id:"}
		if err := survey.AskOne(q, &opts.ChatID); err != nil {
			return fmt.Errorf("prompt failed: %w", err)
		}
		opts.ChatID = strings.TrimSpace(opts.ChatID)
	}

	if _, err := strconv.ParseInt(opts.ChatID, 10, 64); err != nil {
		return fmt.Errorf("chat id must be numeric, got %q", opts.ChatID)
	}
	return nil
}
