package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"lxsp/internal/evaluator"
	"lxsp/internal/foreign"
	"lxsp/internal/object"
	"lxsp/internal/parser"
	"lxsp/internal/repl"
	"lxsp/internal/util"
	"os"
	"path/filepath"
	"strings"
)

const stdLibrary = "std"

var (
	// Version is set at build time.
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
	help      bool
	version   bool
	// logging
	logLevel string
	logFile  string
	// config vars
	configPath  string
	libDir      string
	noStd       bool
	noMacroPass bool
	reduce      bool
	loads       stringList
)

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	// evaluator config
	flag.StringVar(&configPath, "config", "", "Path to a TOML config file (default $"+util.ConfigEnvVar+" or ./"+util.DefaultConfigFile+")")
	flag.StringVar(&libDir, "lib-dir", "", "Directory holding libraries (default 'lisb')")
	flag.BoolVar(&noStd, "nostd", false, "Do not load the standard library")
	flag.Var(&loads, "load", "Load the named library before starting (repeatable)")
	flag.BoolVar(&noMacroPass, "no-macro-pass", false, "Skip the macro expansion pass before evaluation")
	flag.BoolVar(&reduce, "reduce", false, "Reduce instead of evaluating; unsafe calls are left as is")
	// log config
	flag.StringVar(&logLevel, "log-level", "none", "Log level: debug, info, warn, error, none")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	loggerOptions := &slog.HandlerOptions{
		AddSource: false,
		Level:     logLevelFromString(logLevel),
	}
	logWriter := configureLogWriter()
	defaultLogger := slog.New(slog.NewJSONHandler(logWriter, loggerOptions))
	slog.SetDefault(defaultLogger)

	if version {
		printVersion()
		return 0
	}

	if help {
		printHelp()
		return 0
	}

	config, err := loadConfiguration()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	host := foreign.NewHost(config)
	defer func() {
		if err := host.Close(); err != nil {
			slog.Error("failed to release host resources", slog.Any("error", err))
		}
	}()

	lib := evaluator.NewLibrary(config)
	e := evaluator.New(config.MaxDepth)
	root := evaluator.NewRootEnvironment(lib, host.Builtins())

	env := root
	names := config.Load
	if !config.NoStd {
		names = append([]string{stdLibrary}, names...)
	}
	for _, name := range names {
		env, err = e.LoadLibrary(env, lib, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load library %s: %v\n", name, err)
			return 1
		}
	}

	session := &repl.Session{
		Env:       env,
		Evaluator: e,
		MacroPass: config.MacroPass,
		Reduce:    config.Reduce,
		Out:       os.Stdout,
	}

	if file := flag.Arg(0); file != "" {
		return runFile(session, file)
	}

	printBindings(os.Stdout, root, env)

	terminal := repl.NewTerminal(config.HistoryFile)
	defer terminal.Close()
	if err := session.Start(terminal); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

// loadConfiguration layers defaults, the config file and flags.
func loadConfiguration() (util.Configuration, error) {
	base := util.DefaultConfiguration()
	config, err := util.LoadConfiguration(util.ResolveConfigPath(configPath), base)
	if err != nil {
		return base, err
	}

	config.Version = Version
	config.BuildDate = BuildDate
	config.Commit = Commit

	if libDir != "" {
		config.LibDir = libDir
	}
	if noStd {
		config.NoStd = true
	}
	config.Load = append(config.Load, loads...)
	if noMacroPass {
		config.MacroPass = false
	}
	if reduce {
		config.Reduce = true
	}
	return config, nil
}

// runFile evaluates every top-level form of file in order and prints the
// last result.
func runFile(session *repl.Session, file string) int {
	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", file, err)
		return 1
	}
	forms, err := parser.ParseAll(string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	var result object.Value = object.Nil()
	for _, form := range forms {
		if session.MacroPass {
			if form, err = session.Evaluator.MacroEval(form, session.Env); err != nil {
				fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
				return 1
			}
		}
		if session.Reduce {
			result, err = session.Evaluator.Reduce(form, session.Env)
		} else {
			result, err = session.Evaluator.Eval(form, session.Env)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
			return 1
		}
		if object.IsExit(result) {
			break
		}
	}
	fmt.Fprintf(session.Out, "%s\n", result.Inspect())
	return 0
}

func printBindings(out io.Writer, root, env *object.Environment) {
	fmt.Fprintf(out, "Built-ins: %s\n", strings.Join(root.SortedNames(), " "))
	var libs []string
	for frame := env; frame != nil && frame != root; frame = frame.Outer {
		libs = append(libs, frame.SortedNames()...)
	}
	fmt.Fprintf(out, "Libraries: %s\n\n---\n\n", strings.Join(libs, " "))
}

func configureLogWriter() *os.File {
	var logWriter *os.File
	var err error
	if logFile != "" {
		// Create parent directories if they don't exist
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", logFile, err)
			return os.Stderr
		}
		logWriter, err = os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
			logWriter = os.Stderr
		}
	} else {
		logWriter = os.Stderr
	}
	return logWriter
}

func printVersion() {
	fmt.Printf("lxsp version 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: lxsp [options] [filename]

Options:
  -config <path>     TOML configuration file. Default is $LXSP_CONFIG or ./lxsp.toml.
  -lib-dir <path>    Directory holding libraries. Default is 'lisb'.
  -nostd             Do not load the standard library.
  -load <name>       Load the named library before starting; may be repeated.
  -no-macro-pass     Skip the macro expansion pass before evaluation.
  -reduce            Reduce instead of evaluating.
  -help              Display this help information and exit.
  -version           Display version information and exit.
  -log-level <level> Set the log level: debug, info, warn, error. Default logs errors only.
  -log-file <path>   Specify a log file to write logs. Default is stderr.

Details:
Without a filename an interactive session starts; each line is one
expression. Evaluating the symbol 'exit' ends the session. Side effects
such as file, database and subprocess access are only available inside
(unsafe ...).

Examples:
  lxsp                          Start a session with the standard library
  lxsp -nostd -load mylib       Start with only lisb/mylib.l loaded
  lxsp program.l                Evaluate every expression in program.l

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, Version, BuildDate, Commit)
}

func logLevelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelError
	}
}
