// internal/input/reader.go
package input

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

const historyFile = ".rondo_history"

// BlockEnd terminates a multi-line block round started with `:block`.
const BlockEnd = ":end"

// InputReader reads interactive rounds with line editing and history.
// Incomplete rounds are buffered across calls so the caller can re-prompt
// with a continuation prompt.
type InputReader struct {
	line     *liner.State
	buf      string
	histPath string
}

// NewInputReader constructs an interactive reader and loads history.
func NewInputReader() *InputReader {
	ln := liner.NewLiner()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	return &InputReader{line: ln, histPath: histPath}
}

// Close writes history back and restores the terminal.
func (r *InputReader) Close() {
	if f, err := os.Create(r.histPath); err == nil {
		_, _ = r.line.WriteHistory(f)
		_ = f.Close()
	}
	_ = r.line.Close()
}

// ReadInput reads one line, folds it into any pending partial round, and
// parses the result. ResultMore keeps the buffer for the next call.
func (r *InputReader) ReadInput(prompt string) Result {
	text, err := r.line.Prompt(prompt)
	switch err {
	case nil:
	case io.EOF:
		return Result{Type: ResultEOF}
	case liner.ErrPromptAborted:
		r.buf = ""
		return Result{Type: ResultEmpty}
	default:
		return parseError(err.Error())
	}

	if r.buf == "" {
		r.buf = text
	} else {
		r.buf += "\n" + text
	}

	res := Parse(r.buf)
	if res.Type == ResultMore {
		return res
	}
	if strings.TrimSpace(r.buf) != "" {
		r.line.AppendHistory(strings.ReplaceAll(r.buf, "\n", " "))
	}
	r.buf = ""
	return res
}

// ReadBlockInput reads lines until the block terminator and parses the
// whole text as a single round.
func (r *InputReader) ReadBlockInput(prompt string) Result {
	var lines []string
	for {
		text, err := r.line.Prompt(prompt)
		switch err {
		case nil:
		case io.EOF:
			if len(lines) == 0 {
				return Result{Type: ResultEOF}
			}
			return r.finishBlock(lines)
		case liner.ErrPromptAborted:
			return Result{Type: ResultEmpty}
		default:
			return parseError(err.Error())
		}
		if strings.TrimSpace(text) == BlockEnd {
			return r.finishBlock(lines)
		}
		lines = append(lines, text)
	}
}

func (r *InputReader) finishBlock(lines []string) Result {
	text := strings.Join(lines, "\n")
	if strings.TrimSpace(text) == "" {
		return Result{Type: ResultEmpty}
	}
	r.line.AppendHistory(strings.ReplaceAll(text, "\n", " "))
	res := Parse(text)
	if res.Type == ResultMore {
		return parseError("unexpected end of block")
	}
	return res
}

// FileReader reads rounds from a file. Contiguous lines form one round;
// a blank line ends the round once it parses completely. Command lines
// are rounds of their own.
type FileReader struct {
	s    *bufio.Scanner
	buf  string
	done bool
}

// NewFileReader constructs a reader over r.
func NewFileReader(r io.Reader) *FileReader {
	return &FileReader{s: bufio.NewScanner(r)}
}

// ReadInput returns the next round from the file, or ResultEOF.
func (r *FileReader) ReadInput() Result {
	for {
		if r.done {
			return r.flush()
		}
		if !r.s.Scan() {
			r.done = true
			if err := r.s.Err(); err != nil {
				return parseError(err.Error())
			}
			continue
		}
		line := r.s.Text()

		if r.buf == "" && strings.HasPrefix(strings.TrimSpace(line), ":") {
			return Parse(line)
		}

		if strings.TrimSpace(line) == "" {
			if strings.TrimSpace(r.buf) == "" {
				r.buf = ""
				continue
			}
			res := Parse(r.buf)
			if res.Type == ResultMore {
				r.buf += "\n" + line
				continue
			}
			r.buf = ""
			return res
		}

		if r.buf == "" {
			r.buf = line
		} else {
			r.buf += "\n" + line
		}
	}
}

func (r *FileReader) flush() Result {
	if strings.TrimSpace(r.buf) == "" {
		return Result{Type: ResultEOF}
	}
	res := Parse(r.buf)
	r.buf = ""
	if res.Type == ResultMore {
		return parseError("unexpected end of input")
	}
	return res
}
