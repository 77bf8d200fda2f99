// Command gridhack runs the gridhack puzzle game.
//
// Commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket updates and an /mcp endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "play" plays a session in the terminal, optionally serving it over HTTP at the same time
//  4. "levels" lists or validates level files
//
// Flags control host/port, the levels directory, grid size, debug logging
// and optional ngrok tunneling for easy external access during development.
// Every flag can also be set from the environment or a .env file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mcp-training/gridhack/api"
	"github.com/wricardo/mcp-training/gridhack/game/config"
	"github.com/wricardo/mcp-training/gridhack/game/engine"
	"github.com/wricardo/mcp-training/gridhack/game/service"
	"github.com/wricardo/mcp-training/gridhack/game/session"
	"github.com/wricardo/mcp-training/gridhack/logging"
	"github.com/wricardo/mcp-training/gridhack/transport/mcp"
	"github.com/wricardo/mcp-training/gridhack/transport/terminal"
	"github.com/wricardo/mcp-training/gridhack/transport/websocket"
	"github.com/wricardo/mcp-training/gridhack/validate"
)

// Version information
const (
	Version = "3.0.0"
	AppName = "gridhack"
)

const (
	sessionCleanupInterval = time.Hour
	sessionMaxAge          = 24 * time.Hour
	shutdownTimeout        = 10 * time.Second
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Global flags are visible to every
// subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "tile-based hacking puzzle game with REST, WebSocket, MCP and terminal frontends",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "levels-dir",
				Value:   "levels",
				Usage:   "directory containing level files (.json, .yaml)",
				Sources: cli.EnvVars("LEVELS_DIR"),
			},
			&cli.IntFlag{
				Name:    "grid-width",
				Value:   engine.DefaultGridWidth,
				Usage:   "grid width for new sessions",
				Sources: cli.EnvVars("GRID_WIDTH"),
			},
			&cli.IntFlag{
				Name:    "grid-height",
				Value:   engine.DefaultGridHeight,
				Usage:   "grid height for new sessions",
				Sources: cli.EnvVars("GRID_HEIGHT"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			playCommand(),
			levelsCommand(),
		},
		Action: runServe,
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server", "http"},
		Usage:   "run the HTTP server with REST API, WebSocket and MCP endpoint",
		Flags:   ngrokFlags(),
		Action:  runServe,
	}
}

func ngrokFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "expose the server through an ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:    "mcp",
		Aliases: []string{"stdio-mcp", "mcp-stdio"},
		Usage:   "run an MCP stdio server backed by an external or internal HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Value:   "http://localhost:8080",
				Usage:   "external API to use when it is reachable",
				Sources: cli.EnvVars("GRIDHACK_API_URL"),
			},
		},
		Action: runStdioMCP,
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "play a session in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "level",
				Usage: "starting level (default level when empty)",
			},
			&cli.BoolFlag{
				Name:  "serve",
				Usage: "also serve the session over HTTP so agents can join",
			},
			&cli.BoolFlag{
				Name:    "mute",
				Usage:   "disable sound",
				Sources: cli.EnvVars("GRIDHACK_MUTE"),
			},
			&cli.FloatFlag{
				Name:  "volume",
				Value: 0.3,
				Usage: "sound volume between 0 and 1",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "write logs to this file (the terminal is busy drawing)",
			},
		},
		Action: runPlay,
	}
}

func levelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "levels",
		Usage: "inspect level files",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list the levels in the levels directory",
				Action: runLevelsList,
			},
			{
				Name:      "validate",
				Usage:     "validate level files (all files in the levels directory when none are given)",
				ArgsUsage: "[FILE...]",
				Action:    runLevelsValidate,
			},
		},
	}
}

// serviceOptions configures initializeServices.
type serviceOptions struct {
	LevelsDir  string
	GridWidth  int
	GridHeight int
}

func optionsFrom(cmd *cli.Command) serviceOptions {
	return serviceOptions{
		LevelsDir:  cmd.String("levels-dir"),
		GridWidth:  cmd.Int("grid-width"),
		GridHeight: cmd.Int("grid-height"),
	}
}

// services bundles the wired game components.
type services struct {
	levels   *config.Manager
	sessions *session.Manager
	game     service.GameService
	logger   *zap.Logger
}

// initializeServices wires the level and session managers into the game
// service.
func initializeServices(opts serviceOptions, logger *zap.Logger) (*services, error) {
	logger = logging.OrNop(logger)

	levels, err := config.NewManager(opts.LevelsDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create level manager: %w", err)
	}
	sessions := session.NewManager(levels, opts.GridWidth, opts.GridHeight, logger)

	return &services{
		levels:   levels,
		sessions: sessions,
		game:     service.NewGameService(sessions, levels, logger),
		logger:   logger,
	}, nil
}

// cleanupSessions periodically removes sessions that have not been accessed
// within maxAge.
func (s *services) cleanupSessions(ctx context.Context, every, maxAge time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.sessions.CleanupExpiredSessions(maxAge); removed > 0 {
				s.logger.Info("cleaned up expired sessions", zap.Int("removed", removed))
			}
		}
	}
}

func newLogger(cmd *cli.Command) (*zap.Logger, error) {
	logger, err := logging.New(cmd.Bool("debug"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// runServe runs the HTTP server until SIGINT or SIGTERM.
func runServe(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	svcs, err := initializeServices(optionsFrom(cmd), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(cmd.String("host"), strconv.Itoa(cmd.Int("port")))
	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.String("addr", addr))

	return serveHTTP(ctx, svcs, addr, ngrokOptionsFrom(cmd))
}

// ngrokOptions configures the optional public tunnel.
type ngrokOptions struct {
	Enabled   bool
	AuthToken string
	Domain    string
}

func ngrokOptionsFrom(cmd *cli.Command) ngrokOptions {
	return ngrokOptions{
		Enabled:   cmd.Bool("ngrok"),
		AuthToken: cmd.String("ngrok-auth"),
		Domain:    cmd.String("ngrok-domain"),
	}
}

// newRouter mounts the REST API at "/" and the MCP endpoint at "/mcp".
func newRouter(apiServer *api.Server, mcpClient *mcp.Client) *http.ServeMux {
	router := http.NewServeMux()
	router.Handle("/", apiServer)
	router.Handle("/mcp", mcpClient)
	return router
}

// loopbackURL is the base URL the MCP endpoint uses to reach the API it is
// mounted next to.
func loopbackURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// serveHTTP serves the API, WebSocket hub and MCP endpoint on addr until ctx
// is done, then shuts down gracefully.
func serveHTTP(ctx context.Context, svcs *services, addr string, ng ngrokOptions) error {
	logger := svcs.logger
	hub := websocket.NewHub(logger)
	apiServer := api.NewServer(svcs.game, hub, logger)
	mcpClient := mcp.NewClient(loopbackURL(addr), logger)
	router := newRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return hub.Run(gctx) })

	g.Go(func() error {
		svcs.cleanupSessions(gctx, sessionCleanupInterval, sessionMaxAge)
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server listening",
			zap.String("rest", "http://"+addr+"/api"),
			zap.String("websocket", "ws://"+addr+"/ws?session=<session_id>"),
			zap.String("mcp", "http://"+addr+"/mcp"),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if ng.Enabled {
		g.Go(func() error {
			serveNgrok(gctx, router, ng, logger)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown error", zap.Error(err))
		}
		return nil
	})

	err := g.Wait()
	logger.Info("server stopped")
	return err
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is done. A
// tunnel failure is logged and leaves the local server running.
func serveNgrok(ctx context.Context, handler http.Handler, ng ngrokOptions, logger *zap.Logger) {
	if ng.AuthToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	var endpoint ngrokConfig.Tunnel
	if ng.Domain != "" {
		endpoint = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(ng.Domain))
		logger.Info("using custom ngrok domain", zap.String("domain", ng.Domain))
	} else {
		endpoint = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, endpoint, ngrok.WithAuthtoken(ng.AuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	url := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", url),
		zap.String("rest", url+"/api"),
		zap.String("mcp", url+"/mcp"),
	)

	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// apiAvailable reports whether a gridhack API answers at baseURL.
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalAPI serves the REST API on a random loopback port and returns
// its base URL.
func startInternalAPI(ctx context.Context, svcs *services) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to get available port: %w", err)
	}

	hub := websocket.NewHub(svcs.logger)
	go hub.Run(ctx)

	httpServer := &http.Server{Handler: api.NewServer(svcs.game, hub, svcs.logger)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			svcs.logger.Error("internal HTTP server error", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	return "http://" + listener.Addr().String(), nil
}

// runStdioMCP runs an MCP stdio server. It reuses the API at --api-url when
// one is running; otherwise it starts an internal API on a random loopback
// port. Logs go to stderr so stdout stays reserved for the protocol.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	baseURL := cmd.String("api-url")
	if apiAvailable(ctx, baseURL) {
		logger.Info("using external API server", zap.String("url", baseURL))
	} else {
		svcs, err := initializeServices(optionsFrom(cmd), logger)
		if err != nil {
			return err
		}
		go svcs.cleanupSessions(ctx, sessionCleanupInterval, sessionMaxAge)

		baseURL, err = startInternalAPI(ctx, svcs)
		if err != nil {
			return err
		}
		logger.Info("using internal API server", zap.String("url", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL, logger)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func playLogger(cmd *cli.Command) (*zap.Logger, error) {
	path := cmd.String("log-file")
	if path == "" {
		return zap.NewNop(), nil
	}
	return logging.NewFile(path, cmd.Bool("debug"))
}

// runPlay creates a session and plays it in the terminal. With --serve the
// same session is reachable over HTTP while the terminal is open.
func runPlay(ctx context.Context, cmd *cli.Command) error {
	logger, err := playLogger(cmd)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	svcs, err := initializeServices(optionsFrom(cmd), logger)
	if err != nil {
		return err
	}
	info, err := svcs.game.CreateSession(ctx, cmd.String("level"))
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}
	defer screen.Fini()

	var sound terminal.Sound = terminal.Silent{}
	if !cmd.Bool("mute") {
		sound = terminal.NewChimes(cmd.Float("volume"), logger)
		if c, ok := sound.(*terminal.Chimes); ok {
			defer c.Close()
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cmd.Bool("serve") {
		addr := net.JoinHostPort(cmd.String("host"), strconv.Itoa(cmd.Int("port")))
		g.Go(func() error { return serveHTTP(gctx, svcs, addr, ngrokOptions{}) })
	}

	game := terminal.New(screen, svcs.game, info.ID, sound, logger)
	g.Go(func() error {
		defer cancel()
		return game.Run(gctx)
	})

	return g.Wait()
}

func runLevelsList(ctx context.Context, cmd *cli.Command) error {
	svcs, err := initializeServices(optionsFrom(cmd), nil)
	if err != nil {
		return err
	}
	levels, err := svcs.game.ListLevels(ctx)
	if err != nil {
		return err
	}
	return printLevels(cmd.Root().Writer, levels, svcs.levels.GetDefault())
}

func printLevels(w io.Writer, levels []*service.LevelInfo, defaultLevel string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSIZE\tNEXT\tDESCRIPTION")
	for _, l := range levels {
		id := l.LevelID
		if id == defaultLevel {
			id += " *"
		}
		fmt.Fprintf(tw, "%s\t%dx%d\t%s\t%s\n", id, l.Width, l.Height, l.Next, l.Description)
	}
	return tw.Flush()
}

func runLevelsValidate(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		var err error
		files, err = validate.LevelFiles(cmd.String("levels-dir"))
		if err != nil {
			return err
		}
	}

	results := validate.Files(files)
	validate.Report(cmd.Root().Writer, results)
	if n := validate.Failed(results); n > 0 {
		return fmt.Errorf("%d of %d level files are invalid", n, len(results))
	}
	return nil
}
