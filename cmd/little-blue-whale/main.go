package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/fcrozatier/little-blue-whale/pkg/lexer"
)

const (
	version = "0.1.0"
	usage   = `little-blue-whale - a declarative lexer compiler and runtime

Usage:
  little-blue-whale [options]

Options:
  -h, --help            Show this help message
  -v, --version         Show version information
  --spec <file>         YAML lexer specification (required unless --make-spec)
  --input <file>        Input file (defaults to stdin)
  --output <file>       Output file (defaults to stdout)
  --make-spec           Generate a commented starter specification to stdout
  --exit0               Exit with code 0 even on syntax errors
  --verbose             Log compilation and tokenization progress to stderr

Examples:
  little-blue-whale --spec lang.yaml --input source.txt
  little-blue-whale --make-spec > lang.yaml
  echo "if x == 1" | little-blue-whale --spec lang.yaml

The tokenizer outputs one JSON token object per line.
`
)

// starterSpec is the --make-spec output: a small expression language that
// exercises states, keywords, the !re tag and literal alternatives.
const starterSpec = `# little-blue-whale lexer specification.
#
# Plain scalars are literal strings; tag regular expressions with !re.
# Earlier rules outrank later ones.
start: main
states:
  main:
    ws: !re '[ \t]+'
    nl: {match: "\n", lineBreaks: true}
    comment: !re '//[^\n]*'
    number: !re '[0-9]+(?:\.[0-9]+)?'
    dqstring: {match: '"', push: string}
    ident:
      pattern: '[A-Za-z_][A-Za-z0-9_]*'
      keywords:
        keyword: [if, else, while, return]
    op: ['==', '!=', '<=', '>=', '=', '+', '-', '*', '/', '(', ')', '{', '}']
  string:
    chars: !re '(?:[^"\\\n]|\\.)+'
    close: {match: '"', pop: 1}
`

func main() {
	var showHelp, showVersion, exit0, makeSpec, verbose bool
	var specFile, inputFile, outputFile string

	flag.BoolVar(&showHelp, "h", false, "Show help")
	flag.BoolVar(&showHelp, "help", false, "Show help")
	flag.BoolVar(&showVersion, "v", false, "Show version")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&exit0, "exit0", false, "Exit with code 0 even on errors")
	flag.BoolVar(&makeSpec, "make-spec", false, "Generate a starter specification")
	flag.BoolVar(&verbose, "verbose", false, "Log progress to stderr")
	flag.StringVar(&specFile, "spec", "", "YAML lexer specification")
	flag.StringVar(&inputFile, "input", "", "Input file (defaults to stdin)")
	flag.StringVar(&outputFile, "output", "", "Output file (defaults to stdout)")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("little-blue-whale version %s\n", version)
		os.Exit(0)
	}

	if makeSpec {
		fmt.Print(starterSpec)
		os.Exit(0)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	if len(flag.Args()) > 0 {
		fmt.Fprintf(os.Stderr, "Error: Unexpected positional arguments. Use --input and --output flags instead.\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if specFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --spec is required (or use --make-spec to get started).\n\n")
		flag.Usage()
		os.Exit(1)
	}

	lx, err := lexer.LoadSpecFile(specFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading spec '%s': %v\n", specFile, err)
		os.Exit(1)
	}
	log.WithField("spec", specFile).Debug("specification compiled")

	var input string
	if inputFile == "" {
		input, err = readFromStdin()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
			os.Exit(1)
		}
	} else {
		input, err = readFromFile(inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading file '%s': %v\n", inputFile, err)
			os.Exit(1)
		}
	}

	var output io.Writer = os.Stdout
	var outputCloser io.Closer
	if outputFile != "" {
		file, err := os.Create(outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file '%s': %v\n", outputFile, err)
			os.Exit(1)
		}
		output = file
		outputCloser = file
	}

	lx.Reset(input)
	count := 0
	var lexErr error
	enc := json.NewEncoder(output)
	enc.SetEscapeHTML(false)
	for {
		tok, err := lx.Next()
		if err != nil {
			lexErr = err
			break
		}
		if tok == nil {
			break
		}
		if err := enc.Encode(tok); err != nil {
			fmt.Fprintf(os.Stderr, "JSON encoding error: %v\n", err)
			os.Exit(1)
		}
		count++
	}
	log.WithField("tokens", count).Debug("tokenization finished")

	if outputCloser != nil {
		if err := outputCloser.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing output file '%s': %v\n", outputFile, err)
			os.Exit(1)
		}
	}

	if lexErr != nil {
		if exit0 {
			os.Exit(0)
		}
		var syntaxErr *lexer.SyntaxError
		if errors.As(lexErr, &syntaxErr) {
			color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "Syntax error")
			fmt.Fprintln(os.Stderr, syntaxErr.Error())
		} else {
			fmt.Fprintf(os.Stderr, "Tokenization error: %v\n", lexErr)
		}
		os.Exit(1)
	}
}

// readFromStdin reads all input from stdin.
func readFromStdin() (string, error) {
	bytes, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// readFromFile reads the contents of a file.
func readFromFile(filename string) (string, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
