// Command mcp-chat is the interactive chat host.
// It starts the configured tool providers, and lets the model call their tools.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/suckgeun/mcp-sample/callbacks"
	"github.com/suckgeun/mcp-sample/chatmodel"
	"github.com/suckgeun/mcp-sample/config"
	"github.com/suckgeun/mcp-sample/host"
	"github.com/suckgeun/mcp-sample/internal/appcli"
	"github.com/suckgeun/mcp-sample/mcp/client"
	"github.com/suckgeun/mcp-sample/pkg/llmfactory"
	"github.com/suckgeun/mcp-sample/store"
	"github.com/suckgeun/mcp-sample/tools"
	"github.com/urfave/cli/v2"
)

var logger = xlog.NewPackageLogger("github.com/suckgeun/mcp-sample", "mcp-chat")

const appName = "mcp-chat"

func main() {
	app := &cli.App{
		Name:    appName,
		Usage:   "chat with a model that calls MCP tools",
		Version: appcli.Version,
		Flags: append(appcli.Flags(),
			&cli.StringFlag{
				Name:  "chat-id",
				Usage: "resume the conversation with the ID, requires store.redis_url",
			},
			&cli.BoolFlag{
				Name:  "list-chats",
				Usage: "print the stored chats and exit",
			},
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "delete the conversation of --chat-id before starting",
			},
			&cli.BoolFlag{
				Name:  "render",
				Usage: "render the answers as markdown",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "print the tool calls and the conversation to stderr",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable colored prompts",
			},
		),
		Action: run,
	}
	appcli.Exit(app.Run(os.Args))
}

func run(c *cli.Context) error {
	cfg, err := appcli.Setup(c, os.Stderr)
	if err != nil {
		return err
	}

	ctx, cancel := appcli.SignalContext(c.Context)
	defer cancel()

	st, err := openStore(ctx, cfg, c.String("chat-id"))
	if err != nil {
		return err
	}
	chatCtx := chatmodel.NewChatContext(c.String("chat-id"))
	ctx = chatmodel.WithChatContext(ctx, chatCtx)

	if c.Bool("list-chats") {
		return listChats(ctx, st, os.Stdout)
	}
	if err = cfg.RequireLLMCredentials(); err != nil {
		return err
	}

	llm, err := llmfactory.New(&cfg.LLM).HostModel(host.DefaultName)
	if err != nil {
		return err
	}

	mc, err := client.Start(ctx, appName, appcli.Version, cfg.Providers)
	if err != nil {
		return err
	}
	defer func() {
		_ = mc.Close()
	}()
	for _, line := range mc.Describe() {
		fmt.Fprintln(os.Stdout, line)
	}

	cb := callbacks.NewFanout(callbacks.NewPackageLogger(logger))
	if c.Bool("verbose") {
		cb.Add(callbacks.NewPrinter(os.Stderr, callbacks.ModeVerbose))
	}

	opts := []host.Option{
		host.WithSystemPrompt(cfg.Chat.SystemPrompt),
		host.WithMaxToolCalls(cfg.Chat.MaxToolCalls),
		host.WithCallback(cb),
		host.WithStore(st),
		host.WithColor(!c.Bool("no-color")),
	}
	if c.Bool("render") || cfg.Chat.Render {
		r, err := host.NewMarkdownRenderer(100)
		if err != nil {
			return err
		}
		opts = append(opts, host.WithRenderer(r))
	}

	h := host.New(llm, tools.NewRegistry(mc.Tools()...), opts...)

	if err = openChat(ctx, st, c.Bool("reset"), os.Stdout); err != nil {
		return err
	}
	logger.KV(xlog.INFO, "status", "started", "chat_id", chatCtx.GetChatID(), "tools", len(mc.Tools()))

	return h.Run(ctx, os.Stdin, os.Stdout)
}

// listChats prints the stored chats, one per line.
func listChats(ctx context.Context, st store.MessageStore, w io.Writer) error {
	ids, err := st.ListChats(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		info, err := st.GetChatInfo(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%d messages\n", id, info.Title, len(info.Messages))
	}
	return nil
}

// openChat deletes the conversation of the context chat when reset is set,
// otherwise it reports the stored chat being resumed.
func openChat(ctx context.Context, st store.MessageStore, reset bool, w io.Writer) error {
	if reset {
		logger.ContextKV(ctx, xlog.INFO, "status", "reset", "chat_id", chatmodel.GetChatID(ctx))
		return st.Reset(ctx)
	}

	info, err := st.GetChatInfo(ctx, "")
	if errors.Is(err, store.ErrChatNotFound) {
		logger.ContextKV(ctx, xlog.INFO, "status", "new_chat", "chat_id", chatmodel.GetChatID(ctx))
		return nil
	}
	if err != nil {
		return errors.WithMessage(err, "failed to resume chat")
	}
	fmt.Fprintf(w, "Resuming chat %q, %d messages\n", info.Title, len(info.Messages))
	return nil
}

// openStore returns the Redis store if configured,
// otherwise the conversation is discarded at exit.
func openStore(ctx context.Context, cfg *config.Config, chatID string) (store.MessageStore, error) {
	if cfg.Store.RedisURL == "" {
		if chatID != "" {
			logger.KV(xlog.WARNING, "reason", "chat_id_without_store", "chat_id", chatID)
		}
		return store.NewMemoryStore(), nil
	}
	return store.OpenRedisStore(ctx, cfg.Store.RedisURL, cfg.Store.Prefix)
}
