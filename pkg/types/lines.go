package types

import (
	"bufio"
	"io"
	"strings"
)

// ReadLines calls fn with every line of r, without the trailing newline,
// until fn returns false or r is exhausted. Lines have no length limit.
// A final line without a newline is still delivered.
func ReadLines(r io.Reader, fn func(line string) bool) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if !fn(strings.TrimSuffix(line, "\n")) {
				return nil
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
