// Command fluxdb-cli is an interactive shell for FluxDB's line
// protocol: it connects, then reads and sends the wire's own line
// commands directly rather than maintaining a separate local command
// set, using github.com/peterh/liner for history and line-editing.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "FluxDB server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Printf("Connected to FluxDB at %s. Type HELP for commands, exit to quit.\n", *addr)

	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)

	historyPath := historyFilePath()
	if f, err := os.Open(historyPath); err == nil {
		term.ReadHistory(f)
		f.Close()
	}

	reader := bufio.NewReader(conn)

	for {
		input, err := term.Prompt("fluxdb> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				break
			}
			fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
			break
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		term.AppendHistory(input)

		if strings.EqualFold(trimmed, "exit") || strings.EqualFold(trimmed, "quit") {
			break
		}

		if _, err := conn.Write([]byte(trimmed + "\n")); err != nil {
			fmt.Fprintf(os.Stderr, "write error: %v\n", err)
			break
		}

		resp, err := readResponse(reader)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			break
		}
		fmt.Println(resp)
	}

	if f, err := os.Create(historyPath); err == nil {
		term.WriteHistory(f)
		f.Close()
	}
}

// readResponse reads one full server response: a single line, or, for
// "OK COUNT=<n>" results, the header plus its n row lines, or, for the
// "OK COMMANDS" help text, every line through its closing "HELP" line.
func readResponse(reader *bufio.Reader) (string, error) {
	header, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	header = strings.TrimRight(header, "\r\n")

	if header == "OK COMMANDS" {
		lines := []string{header}
		for {
			row, err := reader.ReadString('\n')
			if err != nil {
				return "", err
			}
			row = strings.TrimRight(row, "\r\n")
			lines = append(lines, row)
			if row == "HELP" {
				return strings.Join(lines, "\n"), nil
			}
		}
	}

	n, ok := rowCount(header)
	if !ok || n == 0 {
		return header, nil
	}

	lines := make([]string, 0, n+1)
	lines = append(lines, header)
	for i := 0; i < n; i++ {
		row, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		lines = append(lines, strings.TrimRight(row, "\r\n"))
	}
	return strings.Join(lines, "\n"), nil
}

func rowCount(header string) (int, bool) {
	const prefix = "OK COUNT="
	if !strings.HasPrefix(header, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(header, prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fluxdb_history"
	}
	return filepath.Join(home, ".fluxdb_history")
}
