package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spoolghost/gritd/internal/api"
	"github.com/spoolghost/gritd/internal/button"
	"github.com/spoolghost/gritd/internal/genai"
	"github.com/spoolghost/gritd/internal/printer"
	"github.com/spoolghost/gritd/internal/store"
	"github.com/spoolghost/gritd/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for gritd state data
	DefaultStateDir = "/var/lib/gritd"
	// DefaultDBFileName is the default SQLite journal filename
	DefaultDBFileName = "gritd.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Build module options
	printerOpts := buildPrinterOptions(flags)
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts := buildAPIOptions(flags)

	if *flags.once {
		// One slip, then exit. No lock, no API server, no button.
		if err := api.RunOnce(printerOpts, storeOpts, genaiOpts, apiOpts, *flags.category, *flags.temperature); err != nil {
			slog.Error("gritd failed to print", "error", err)
			os.Exit(1)
		}
		return
	}

	// Start the service
	slog.Info("Bootstrapping gritd with configured modules")
	slog.Debug("Module options counts", "printer", len(printerOpts), "store", len(storeOpts), "genai", len(genaiOpts), "api", len(apiOpts))
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := api.Run(printerOpts, storeOpts, genaiOpts, apiOpts); err != nil {
		slog.Error("gritd failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("gritd exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir       string
	JournalDSN     string
	OpenAIKey      string
	GeminiKey      string
	APIAddr        string
	GenAIBackend   string
	Model          string
	PrinterBackend string
	PrinterDevice  string
	PrinterBaud    int
	PrinterCut     bool
	ButtonPin      string
	Ambient        string
	QRBaseURL      string
}

// Flags holds command line flag values
type Flags struct {
	stateDir       *string
	dbDSN          *string
	openaiKey      *string
	geminiKey      *string
	apiAddr        *string
	genaiBackend   *string
	model          *string
	printerBackend *string
	device         *string
	baud           *int
	feedLines      *int
	noCut          *bool
	buttonPin      *string
	ambient        *string
	qrBaseURL      *string
	once           *bool
	category       *string
	temperature    *float64
	debug          *bool
}

// initializeLogger sets up structured logging at the level named by $LOG_LEVEL
func initializeLogger() {
	level := util.ParseLevelEnv("LOG_LEVEL", slog.LevelInfo)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:       os.Getenv("GRITD_STATE_DIR"),
		JournalDSN:     os.Getenv("DATABASE_DSN"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		APIAddr:        os.Getenv("API_ADDR"),
		GenAIBackend:   os.Getenv("GENAI_BACKEND"),
		Model:          os.Getenv("GENAI_MODEL"),
		PrinterBackend: os.Getenv("PRINTER_BACKEND"),
		PrinterDevice:  os.Getenv("PRINTER_DEVICE"),
		PrinterCut:     util.ParseBoolEnv("PRINTER_CUT", true),
		ButtonPin:      os.Getenv("BUTTON_PIN"),
		Ambient:        os.Getenv("GRITD_AMBIENT"),
		QRBaseURL:      os.Getenv("QR_BASE_URL"),
	}

	if baud := os.Getenv("PRINTER_BAUD"); baud != "" {
		parsed, err := strconv.Atoi(baud)
		if err != nil {
			slog.Warn("Invalid PRINTER_BAUD value, ignoring", "value", baud, "error", err)
		} else {
			config.PrinterBaud = parsed
		}
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No GRITD_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("GRITD_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// Fall back to the legacy DATABASE_URL variable for the journal DSN
	if config.JournalDSN == "" {
		config.JournalDSN = os.Getenv("DATABASE_URL")
		if config.JournalDSN != "" {
			slog.Debug("Using DATABASE_URL as journal DSN", "dsn_set", true)
		}
	}

	// If no database DSN is provided, default to SQLite in the state directory
	if config.JournalDSN == "" {
		config.JournalDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite journal", "sqlite_path", config.JournalDSN)
	}

	// The button is on by default; this is a button-operated machine
	if config.ButtonPin == "" {
		config.ButtonPin = button.DefaultPin
	}

	slog.Debug("environment variables loaded",
		"GRITD_STATE_DIR", config.StateDir,
		"DATABASE_DSN_SET", config.JournalDSN != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"GEMINI_API_KEY_SET", config.GeminiKey != "",
		"API_ADDR", config.APIAddr,
		"GENAI_BACKEND", config.GenAIBackend,
		"PRINTER_BACKEND", config.PrinterBackend,
		"BUTTON_PIN", config.ButtonPin,
		"GRITD_AMBIENT", config.Ambient)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:       flag.String("state-dir", config.StateDir, "state directory for gritd data (overrides $GRITD_STATE_DIR)"),
		dbDSN:          flag.String("db-dsn", config.JournalDSN, "database DSN for the slip journal (overrides $DATABASE_DSN or $DATABASE_URL)"),
		openaiKey:      flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		geminiKey:      flag.String("gemini-api-key", config.GeminiKey, "Gemini API key (overrides $GEMINI_API_KEY)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "control API address (overrides $API_ADDR)"),
		genaiBackend:   flag.String("genai-backend", config.GenAIBackend, "generation backend: openai or gemini (overrides $GENAI_BACKEND)"),
		model:          flag.String("model", config.Model, "model name for the generation backend (overrides $GENAI_MODEL)"),
		printerBackend: flag.String("printer-backend", config.PrinterBackend, "printer backend: escpos, console or mock (overrides $PRINTER_BACKEND)"),
		device:         flag.String("device", config.PrinterDevice, "printer device path, e.g. /dev/usb/lp0 (overrides $PRINTER_DEVICE)"),
		baud:           flag.Int("baud", config.PrinterBaud, "serial baud rate; 0 opens the device as a plain file (overrides $PRINTER_BAUD)"),
		feedLines:      flag.Int("feed-lines", 0, "extra blank lines to feed before the cut; 0 uses the printer default"),
		noCut:          flag.Bool("no-cut", !config.PrinterCut, "skip the paper cut after printing, for printers without a cutter (overrides $PRINTER_CUT)"),
		buttonPin:      flag.String("button-pin", config.ButtonPin, "GPIO pin for the button; empty disables the button (overrides $BUTTON_PIN)"),
		ambient:        flag.String("ambient", config.Ambient, "cron expression for unprompted printing (overrides $GRITD_AMBIENT)"),
		qrBaseURL:      flag.String("qr-base-url", config.QRBaseURL, "render a QR code for the trigger endpoint at this base URL (overrides $QR_BASE_URL)"),
		once:           flag.Bool("once", false, "print a single slip and exit instead of running the service"),
		category:       flag.String("category", "", "category for -once; empty picks one at random"),
		temperature:    flag.Float64("temperature", 0, "sampling temperature for -once; 0 uses the backend default"),
		debug:          flag.Bool("debug", false, "enable debug logging"),
	}

	flag.Parse()

	if *flags.debug {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"geminiKeySet", *flags.geminiKey != "",
		"apiAddr", *flags.apiAddr,
		"genaiBackend", *flags.genaiBackend,
		"printerBackend", *flags.printerBackend,
		"device", *flags.device,
		"buttonPin", *flags.buttonPin,
		"ambient", *flags.ambient,
		"once", *flags.once)

	adjustDSNForStateDir(flags, config)

	return flags
}

// adjustDSNForStateDir recomputes the default SQLite journal path when the
// state directory was overridden but the DSN was not.
func adjustDSNForStateDir(flags Flags, config Config) {
	if *flags.dbDSN == config.JournalDSN && config.JournalDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated journal DSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if *flags.stateDir != "" {
		if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", *flags.stateDir)
			return err
		}
	}
	// Ensure the journal directory exists if we're using a file-based DSN
	if *flags.dbDSN != "" && store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		dbDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating directory for file-based journal", "db_dir", dbDir)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			slog.Error("Failed to create journal directory", "error", err, "db_dir", dbDir)
			return err
		}
	}
	return nil
}

// buildPrinterOptions constructs printer configuration options
func buildPrinterOptions(flags Flags) []printer.Option {
	var printerOpts []printer.Option
	if *flags.device != "" {
		printerOpts = append(printerOpts, printer.WithDevicePath(*flags.device))
	}
	if *flags.baud > 0 {
		printerOpts = append(printerOpts, printer.WithBaudRate(*flags.baud))
	}
	if *flags.feedLines > 0 {
		printerOpts = append(printerOpts, printer.WithFeedLines(*flags.feedLines))
	}
	if *flags.noCut {
		printerOpts = append(printerOpts, printer.WithCut(false))
	}
	return printerOpts
}

// buildStoreOptions constructs journal store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		// Check if it's a PostgreSQL DSN using the shared detection function
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL journal", "dsn_type", "postgres", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			// Assume SQLite for file paths
			slog.Debug("Detected SQLite DSN, configuring SQLite journal", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory journal")
	}
	return storeOpts
}

// buildGenAIOptions constructs generation backend configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	key := *flags.openaiKey
	if *flags.genaiBackend == api.GenAIBackendGemini && *flags.geminiKey != "" {
		key = *flags.geminiKey
	}
	if key != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(key))
	}
	if *flags.model != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.model))
	}
	return genaiOpts
}

// buildAPIOptions constructs control API configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.stateDir != "" {
		apiOpts = append(apiOpts, api.WithStateDir(*flags.stateDir))
	}
	if *flags.printerBackend != "" {
		apiOpts = append(apiOpts, api.WithPrinterBackend(*flags.printerBackend))
	}
	if *flags.genaiBackend != "" {
		apiOpts = append(apiOpts, api.WithGenAIBackend(*flags.genaiBackend))
	}
	if *flags.buttonPin != "" {
		apiOpts = append(apiOpts, api.WithButtonPin(*flags.buttonPin))
	}
	if *flags.ambient != "" {
		apiOpts = append(apiOpts, api.WithAmbientSchedule(*flags.ambient))
	}
	if *flags.qrBaseURL != "" {
		apiOpts = append(apiOpts, api.WithQRBaseURL(*flags.qrBaseURL))
	}
	return apiOpts
}
