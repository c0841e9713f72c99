package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/ridewise/internal/api"
	"github.com/lox/ridewise/internal/auth"
	"github.com/lox/ridewise/internal/chat"
	"github.com/lox/ridewise/internal/demand"
	"github.com/lox/ridewise/internal/features"
	"github.com/lox/ridewise/internal/model"
	"github.com/lox/ridewise/internal/models"
	"github.com/lox/ridewise/internal/store"
)

var defaultLocations = []models.Location{
	{Name: "Gateway of India", Latitude: 18.921984, Longitude: 72.834654, BikesAvailable: 25, HourlyRate: 50},
	{Name: "Juhu Beach Hub", Latitude: 19.098003, Longitude: 72.827050, BikesAvailable: 15, HourlyRate: 40},
	{Name: "Bandra Kurla Complex", Latitude: 19.060692, Longitude: 72.863385, BikesAvailable: 40, HourlyRate: 60},
	{Name: "Marine Drive Stand", Latitude: 18.943285, Longitude: 72.822896, BikesAvailable: 20, HourlyRate: 55},
	{Name: "Powai Lake", Latitude: 19.125956, Longitude: 72.903823, BikesAvailable: 12, HourlyRate: 35},
}

type Globals struct {
	DB    string `help:"Path to SQLite database." default:"data/ridewise.db" env:"RIDEWISE_DB"`
	Model string `help:"Model artifact path or ftp:// URL." default:"data/model.json" env:"RIDEWISE_MODEL"`
}

type CLI struct {
	Globals

	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Run the HTTP API (default)."`
	Migrate MigrateCmd `cmd:"" help:"Apply database migrations and seed locations, then exit."`
	Predict PredictCmd `cmd:"" help:"Predict demand for one feature vector."`
}

type ServeCmd struct {
	Port       string `help:"HTTP server port." default:"8080" env:"PORT"`
	JWTSecret  string `help:"HS256 secret for bearer tokens. Empty trusts X-User-ID (development only)." env:"JWT_SECRET"`
	LLMBaseURL string `help:"OpenAI-compatible chat endpoint." default:"http://localhost:11434/v1" env:"LLM_BASE_URL"`
	LLMModel   string `help:"Chat model name." default:"llama3.2:1b" env:"LLM_MODEL"`
	LLMAPIKey  string `help:"Chat endpoint API key." env:"LLM_API_KEY"`
	NoChat     bool   `help:"Disable the chat assistant." env:"RIDEWISE_NO_CHAT"`
}

func (c *ServeCmd) Run(g *Globals) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, closeDB, err := openStore(ctx, g.DB)
	if err != nil {
		return err
	}
	defer closeDB()

	opts := api.Options{Port: c.Port}
	if c.JWTSecret != "" {
		opts.Auth = auth.NewJWT(c.JWTSecret)
	} else {
		log.Println("auth: JWT_SECRET not set, trusting X-User-ID header")
	}
	if !c.NoChat {
		opts.Assistant = chat.NewAssistant(chat.Config{
			BaseURL: c.LLMBaseURL,
			APIKey:  c.LLMAPIKey,
			Model:   c.LLMModel,
		})
	}

	server := api.NewServer(st, loadPredictor(ctx, g.Model), opts)
	go server.Bookings().RunGauges(ctx, time.Minute)
	return server.Run(ctx)
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(g *Globals) error {
	_, closeDB, err := openStore(context.Background(), g.DB)
	if err != nil {
		return err
	}
	closeDB()
	log.Println("done")
	return nil
}

type PredictCmd struct {
	Daily  bool     `help:"Sum predictions over the 24 hours of the day."`
	Values []string `arg:"" optional:"" help:"Feature values as key=value, e.g. hour=8 weather=2. Missing keys take defaults."`
}

func (c *PredictCmd) Run(g *Globals) error {
	raw := make(map[string]any, len(c.Values))
	for _, kv := range c.Values {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", kv)
		}
		raw[k] = v
	}
	v, err := features.ParseWithDefaults(raw)
	if err != nil {
		return err
	}

	ctx := context.Background()
	p := loadPredictor(ctx, g.Model)
	var n int
	if c.Daily {
		n, err = p.PredictDaily(ctx, v)
	} else {
		n, err = p.Predict(v)
	}
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}

func openStore(ctx context.Context, path string) (*store.Store, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	st := store.New(db)
	if err := st.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	log.Println("database migrated")

	n, err := st.SeedLocations(ctx, defaultLocations)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("seed locations: %w", err)
	}
	if n > 0 {
		log.Printf("seeded %d locations", n)
	}
	return st, func() { db.Close() }, nil
}

// loadPredictor never fails: without a model every prediction returns
// demand.ErrModelUnavailable.
func loadPredictor(ctx context.Context, src string) *demand.Predictor {
	forest, err := model.Load(ctx, src)
	if err != nil {
		log.Printf("model: unavailable, predictions disabled: %v", err)
		return demand.NewPredictor(nil)
	}
	return demand.NewPredictor(forest)
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("ridewise"),
		kong.Description("Bike-rental demand prediction and booking service."),
		kong.UsageOnError(),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli.Globals))
}
