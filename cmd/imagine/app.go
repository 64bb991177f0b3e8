package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v2"

	"github.com/mhpenta/imagine"
	"github.com/mhpenta/imagine/internal/config"
	"github.com/mhpenta/imagine/internal/tui"
	"github.com/mhpenta/imagine/kvstore"
	"github.com/mhpenta/imagine/provider/gemini"
	"github.com/mhpenta/imagine/provider/openai"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "imagine",
		Usage: "generate images from text prompts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "model to generate with (defaults to the first configured provider's model)",
			},
			&cli.StringFlag{
				Name:    "aspect-ratio",
				Aliases: []string{"r"},
				Usage:   "aspect ratio: 1:1, 3:4, 4:3, 9:16 or 16:9",
			},
			&cli.StringFlag{
				Name:    "export-dir",
				Aliases: []string{"o"},
				Usage:   "directory that saved images are written to",
			},
		},
		Action: runTUI,
		Commands: []*cli.Command{
			{
				Name:   "tui",
				Usage:  "open the interactive terminal UI",
				Action: runTUI,
			},
			{
				Name:      "generate",
				Usage:     "generate one image and save it to the export dir",
				ArgsUsage: "[prompt]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "prompt",
						Aliases: []string{"p"},
						Usage:   "text prompt; remaining arguments are used when unset",
					},
				},
				Action: runGenerate,
			},
			{
				Name:   "models",
				Usage:  "list the models available with the configured keys",
				Action: runModels,
			},
			{
				Name:  "history",
				Usage: "inspect the generation history",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list stored images, newest first",
						Action: runHistoryList,
					},
					{
						Name:      "export",
						Usage:     "save a stored image to the export dir",
						ArgsUsage: "<id>",
						Action:    runHistoryExport,
					},
					{
						Name:      "delete",
						Usage:     "remove an image from the history",
						ArgsUsage: "<id>",
						Action:    runHistoryDelete,
					},
				},
			},
		},
	}
}

// runtime is the wired application shared by every command.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	history *imagine.History
	storage imagine.Storage

	closers []func() error
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// setup loads configuration, builds the logger and opens the history.
// Logs go to the configured log file, or to logOut when none is set.
func setup(c *cli.Context, logOut io.Writer) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := applyFlags(c, cfg); err != nil {
		return nil, err
	}

	r := &runtime{cfg: cfg}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		r.closers = append(r.closers, f.Close)
		logOut = f
	}
	r.logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel}))

	store, err := openStore(c.Context, cfg, r.logger)
	if err != nil {
		r.Close()
		return nil, err
	}
	if closer, ok := store.(io.Closer); ok {
		r.closers = append(r.closers, closer.Close)
	}

	r.history, err = imagine.LoadHistory(c.Context, store, imagine.WithHistoryLogger(r.logger))
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("loading history: %w", err)
	}

	r.storage = &imagine.DirStorage{Dir: cfg.ExportDir}
	return r, nil
}

func applyFlags(c *cli.Context, cfg *config.Config) error {
	if v := c.String("model"); v != "" {
		cfg.Model = imagine.Model(v)
	}
	if v := c.String("aspect-ratio"); v != "" {
		ratio, err := imagine.ParseAspectRatio(v)
		if err != nil {
			return err
		}
		cfg.AspectRatio = ratio
	}
	if v := c.String("export-dir"); v != "" {
		cfg.ExportDir = v
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (imagine.KeyValueStore, error) {
	if cfg.DatabaseURL != "" {
		store, err := kvstore.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Debug("using postgres history store")
		return store, nil
	}

	store, err := kvstore.NewFile(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("using file history store", "dir", store.Dir())
	return store, nil
}

// session builds the provider client and wraps it in a Session.
func (r *runtime) session(ctx context.Context) (*imagine.Session, error) {
	client, err := r.client(ctx)
	if err != nil {
		return nil, err
	}
	return imagine.NewSession(client, r.history, imagine.WithSessionLogger(r.logger)), nil
}

// client registers every provider with a configured key. The first one
// supplies the default model unless a model was chosen explicitly.
func (r *runtime) client(ctx context.Context) (*imagine.Client, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	var gens []imagine.ImageGenerator
	if r.cfg.GeminiAPIKey != "" {
		gen, err := gemini.New(ctx, &imagine.ProviderConfig{
			Provider: imagine.ProviderGeminiAPI,
			APIKey:   r.cfg.GeminiAPIKey,
		})
		if err != nil {
			return nil, err
		}
		gens = append(gens, gen)
	}
	if r.cfg.OpenAIAPIKey != "" {
		gen, err := openai.New(&imagine.ProviderConfig{
			Provider: imagine.ProviderOpenAI,
			APIKey:   r.cfg.OpenAIAPIKey,
		})
		if err != nil {
			return nil, err
		}
		gens = append(gens, gen)
	}

	opts := []imagine.ClientOption{
		imagine.WithLogger(r.logger),
		imagine.WithDefaultModel(r.cfg.Model),
	}
	for _, gen := range gens[1:] {
		opts = append(opts, imagine.WithProvider(gen))
	}

	client := imagine.NewClient(gens[0], opts...)
	r.closers = append(r.closers, client.Close)

	if r.cfg.Model != imagine.ModelDefault {
		if _, ok := client.GetModelInfo(r.cfg.Model); !ok {
			return nil, fmt.Errorf("%w: %s", imagine.ErrModelNotRegistered, r.cfg.Model)
		}
	}
	return client, nil
}

func runTUI(c *cli.Context) error {
	r, err := setup(c, io.Discard)
	if err != nil {
		return err
	}
	defer r.Close()

	session, err := r.session(c.Context)
	if err != nil {
		return err
	}

	m := tui.New(c.Context, session, r.storage, imagine.GenerateConfig{AspectRatio: r.cfg.AspectRatio})
	return tui.Run(c.Context, m)
}

func runGenerate(c *cli.Context) error {
	prompt := c.String("prompt")
	if prompt == "" {
		prompt = strings.Join(c.Args().Slice(), " ")
	}
	if err := imagine.ValidatePrompt(prompt); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	r, err := setup(c, os.Stderr)
	if err != nil {
		return err
	}
	defer r.Close()

	session, err := r.session(c.Context)
	if err != nil {
		return err
	}

	img, err := session.Submit(c.Context, prompt, imagine.DefaultConfig().WithAspectRatio(r.cfg.AspectRatio))
	if err != nil {
		return cli.Exit(imagine.UserMessage(err), 1)
	}

	res, err := session.Export(c.Context, img.ID, r.storage)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s\t%s\n", img.ID, res.URL)
	return nil
}

func runModels(c *cli.Context) error {
	r, err := setup(c, os.Stderr)
	if err != nil {
		return err
	}
	defer r.Close()

	client, err := r.client(c.Context)
	if err != nil {
		return err
	}

	models := client.ListModels()
	slices.Sort(models)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("MODEL", "PROVIDER", "API MODEL", "RPM", "DEFAULT")
	for _, model := range models {
		info, _ := client.GetModelInfo(model)
		def := ""
		if model == client.DefaultModel() {
			def = "*"
		}
		t.Row(string(model), string(info.Provider), info.APIModelName,
			fmt.Sprint(info.RateLimits.RequestsPerMinute), def)
	}
	fmt.Fprintln(c.App.Writer, t.String())
	return nil
}

func runHistoryList(c *cli.Context) error {
	r, err := setup(c, os.Stderr)
	if err != nil {
		return err
	}
	defer r.Close()

	images := r.history.Images()
	if len(images) == 0 {
		fmt.Fprintln(c.App.Writer, "No images yet.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "RATIO", "CREATED", "PROMPT")
	for _, img := range images {
		t.Row(img.ID, img.Config.AspectRatio.String(),
			time.UnixMilli(img.Timestamp).Format(time.DateTime), shorten(img.Prompt, 60))
	}
	fmt.Fprintln(c.App.Writer, t.String())
	return nil
}

func runHistoryExport(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return cli.Exit("an image id is required", 2)
	}

	r, err := setup(c, os.Stderr)
	if err != nil {
		return err
	}
	defer r.Close()

	img, ok := r.history.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", imagine.ErrImageNotFound, id)
	}
	res, err := imagine.SaveToStorage(c.Context, r.storage, img)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, res.URL)
	return nil
}

func runHistoryDelete(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return cli.Exit("an image id is required", 2)
	}

	r, err := setup(c, os.Stderr)
	if err != nil {
		return err
	}
	defer r.Close()

	if !r.history.Contains(id) {
		return fmt.Errorf("%w: %s", imagine.ErrImageNotFound, id)
	}
	return r.history.Remove(c.Context, id)
}

func shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
