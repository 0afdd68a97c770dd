package tui

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/shlex"
)

// ParsePaths splits text typed or pasted into the terminal into file paths.
// Terminals paste dragged files either shell-quoted or as file:// URIs,
// one per line or separated by spaces; both forms are accepted.
func ParsePaths(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	words, err := shlex.Split(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse paths: %w", err)
	}

	paths := make([]string, 0, len(words))
	for _, w := range words {
		p, err := fromURI(w)
		if err != nil {
			return nil, err
		}
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// fromURI converts a file:// URI to a local path. Other words pass through.
func fromURI(word string) (string, error) {
	if !strings.HasPrefix(word, "file://") {
		return word, nil
	}
	u, err := url.Parse(word)
	if err != nil {
		return "", fmt.Errorf("invalid file uri %q: %w", word, err)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("remote file uri %q is not supported", word)
	}
	return u.Path, nil
}
