package main

import (
	"bufio"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/docopt/docopt-go"

	"github.com/apl-go/dynamictokenlist/datasource"
)

const DynamicListDemoVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Dynamic token list demo.

Reads one seed document from --seed, creates the list, and prints every
fetch event the provider emits. Then reads newline-delimited update
envelopes from stdin (or --updates) and applies each one, printing every
splice notification and pending error along the way.

Usage:
    dynamiclistdemo run --seed=<seed_file> [--updates=<updates_file>]
        [--cache_chunk_size=<n>] [--fetch_retries=<n>] [--fetch_timeout_ms=<ms>]

Options:
    -h --help                          Show this screen.
    --version                          Show version.
    --seed=<seed_file>                 JSON-encoded Seed document.
    --updates=<updates_file>           Newline-delimited UpdateEnvelope JSON; defaults to stdin.
    --cache_chunk_size=<n>             [default: 10]
    --fetch_retries=<n>                [default: 2]
    --fetch_timeout_ms=<ms>            [default: 5000]`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], DynamicListDemoVersion)
	if err != nil {
		panic(err)
	}

	if run_, _ := opts.Bool("run"); run_ {
		run(opts)
	}
}

func run(opts docopt.Opts) {
	seedPath, _ := opts.String("--seed")
	seedBytes, err := os.ReadFile(seedPath)
	if err != nil {
		Err.Fatalf("reading seed file: %v", err)
	}

	seed, err := datasource.DecodeSeed(seedBytes)
	if err != nil {
		Err.Fatalf("decoding seed: %v", err)
	}

	cacheChunkSize, _ := opts.Int("--cache_chunk_size")
	fetchRetries, _ := opts.Int("--fetch_retries")
	fetchTimeoutMs, _ := opts.Int("--fetch_timeout_ms")

	provider := datasource.NewProvider(datasource.NewRealClock())
	provider.Configure(datasource.Configuration{
		Type:           seed.Type,
		CacheChunkSize: cacheChunkSize,
		FetchRetries:   fetchRetries,
		FetchTimeout:   time.Duration(fetchTimeoutMs) * time.Millisecond,
	})

	provider.OnFetchRequest(func(event datasource.FetchEvent) {
		printJSON("fetch", event)
	})
	provider.OnChildrenChanged(func(n datasource.ChildrenChangeNotification) {
		printJSON("childrenChanged", n)
	})

	if err := provider.CreateList(seed); err != nil {
		Err.Printf("createList: %v", err)
	}
	drainErrors(provider)

	updatesPath, _ := opts.String("--updates")
	var scanner *bufio.Scanner
	if updatesPath != "" {
		f, err := os.Open(updatesPath)
		if err != nil {
			Err.Fatalf("opening updates file: %v", err)
		}
		defer f.Close()
		scanner = bufio.NewScanner(f)
	} else {
		scanner = bufio.NewScanner(os.Stdin)
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if _, err := provider.ProcessUpdate(line); err != nil {
			Err.Printf("processUpdate: %v", err)
		}
		drainErrors(provider)
	}
}

func drainErrors(provider *datasource.Provider) {
	for _, record := range provider.GetPendingErrors() {
		printJSON("error", record)
	}
}

func printJSON(label string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		Err.Printf("marshal %s: %v", label, err)
		return
	}
	Out.Printf("%s: %s", label, string(b))
}
