// Command epub2txt converts EPUB books to plain text.
//
// Usage:
//
//	epub2txt book.epub                     # writes book.txt next to the input
//	epub2txt -outdir texts books/          # convert every .epub in a directory
//	epub2txt -zip texts.zip a.epub b.epub  # package outputs into one archive
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"epubtext"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		flagOut           string
		flagOutDir        string
		flagZip           string
		flagConfig        string
		flagMaxChapters   int
		flagMaxEntryBytes int64
		flagJobs          int
		flagLogLevel      string
	)
	flag.StringVar(&flagOut, "o", "", "output file (single input only)")
	flag.StringVar(&flagOutDir, "outdir", "", "directory collecting the output files")
	flag.StringVar(&flagZip, "zip", "", "package outputs into a single zip archive at this path")
	flag.StringVar(&flagConfig, "config", "", "path to a YAML config file")
	flag.IntVar(&flagMaxChapters, "max-chapters", 0, "chapter count limit per book (default 10000)")
	flag.Int64Var(&flagMaxEntryBytes, "max-entry-bytes", 0, "decompressed size limit per archive entry (default 256 MB)")
	flag.IntVar(&flagJobs, "jobs", 0, "number of books converted in parallel (default 1)")
	flag.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	flag.Parse()

	cfg := &Config{}
	if flagConfig != "" {
		loaded, err := LoadConfig(flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "epub2txt: load config: %v\n", err)
			return 2
		}
		cfg = loaded
	}
	if flagMaxChapters > 0 {
		cfg.MaxChapters = flagMaxChapters
	}
	if flagMaxEntryBytes > 0 {
		cfg.MaxEntryBytes = flagMaxEntryBytes
	}
	if flagOutDir != "" {
		cfg.OutDir = flagOutDir
	}
	if flagZip != "" {
		cfg.Zip = flagZip
	}
	if flagJobs > 0 {
		cfg.Jobs = flagJobs
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	cfg.applyDefaults()

	inputs, err := collectInputs(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "epub2txt: %v\n", err)
		return 1
	}
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: epub2txt [flags] book.epub [more.epub | directory] ...")
		return 2
	}
	if flagOut != "" {
		if len(inputs) > 1 {
			fmt.Fprintln(os.Stderr, "epub2txt: -o needs exactly one input")
			return 2
		}
		if cfg.OutDir != "" || cfg.Zip != "" {
			fmt.Fprintln(os.Stderr, "epub2txt: -o cannot be combined with -outdir or -zip")
			return 2
		}
	}
	if cfg.OutDir != "" && cfg.Zip != "" {
		fmt.Fprintln(os.Stderr, "epub2txt: -outdir and -zip are mutually exclusive")
		return 2
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))

	opts := epubtext.Options{
		MaxChapters:   cfg.MaxChapters,
		MaxEntryBytes: cfg.MaxEntryBytes,
		Logger:        logger,
	}

	if cfg.OutDir != "" {
		if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
			logger.Error("cannot create output directory", "dir", cfg.OutDir, "error", err)
			return 1
		}
	}

	results := convertAll(inputs, cfg.Jobs, opts)

	used := make(map[string]bool)
	var members []zipMember
	failed := 0
	for _, c := range results {
		if c.err != nil {
			logger.Error("conversion failed", "input", c.input, "error", c.err)
			failed++
			continue
		}

		if cfg.Zip != "" {
			name := uniqueName(used, filepath.Base(outputPath(c.input, "")))
			members = append(members, zipMember{Name: name, Data: []byte(c.res.Text)})
			logConverted(logger, c, name)
			continue
		}

		dest := flagOut
		if dest == "" {
			dest = uniqueName(used, outputPath(c.input, cfg.OutDir))
		}
		if err := os.WriteFile(dest, []byte(c.res.Text), 0o644); err != nil {
			logger.Error("write failed", "input", c.input, "error", err)
			failed++
			continue
		}
		logConverted(logger, c, dest)
	}

	if cfg.Zip != "" && len(members) > 0 {
		if err := writeZip(cfg.Zip, members); err != nil {
			logger.Error("cannot write zip archive", "path", cfg.Zip, "error", err)
			return 1
		}
		logger.Info("packaged outputs", "path", cfg.Zip, "files", len(members))
	}

	if failed == len(inputs) {
		return 1
	}
	return 0
}

func logConverted(logger *slog.Logger, c conversion, output string) {
	logger.Info("converted",
		"input", c.input,
		"title", c.res.Metadata.Title,
		"chapters", c.res.Chapters,
		"warnings", len(c.res.Warnings),
		"output", output)
}

// logLevel maps a level name to its slog level. Unknown names select Info.
func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// collectInputs expands the positional arguments into a sorted list of
// input files with duplicates removed. Directory arguments are scanned one
// level deep for .epub files; anything else is taken as a file and left
// for the conversion to reject.
func collectInputs(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var inputs []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			inputs = append(inputs, p)
		}
	}

	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil || !st.IsDir() {
			add(arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".epub") {
				continue
			}
			add(filepath.Join(arg, e.Name()))
		}
	}

	sort.Strings(inputs)
	return inputs, nil
}

// conversion is the outcome of converting one input.
type conversion struct {
	input string
	res   *epubtext.Result
	err   error
}

// convertAll converts inputs with up to jobs conversions in flight.
// Results keep input order regardless of completion order.
func convertAll(inputs []string, jobs int, opts epubtext.Options) []conversion {
	if jobs < 1 {
		jobs = 1
	}
	sem := make(chan struct{}, jobs)
	var wg sync.WaitGroup
	results := make([]conversion, len(inputs))

	for i, input := range inputs {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := epubtext.Convert(path, opts)
			results[idx] = conversion{input: path, res: res, err: err}
		}(i, input)
	}

	wg.Wait()
	return results
}
