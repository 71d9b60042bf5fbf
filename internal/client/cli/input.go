package cli

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"humanityclub/site/internal/client/apiclient"
)

const maxUploadBytes = 10 << 20

func (a *App) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// prompt asks for one line; an empty answer yields fallback.
func (a *App) prompt(label, fallback string) (string, error) {
	if fallback != "" {
		fmt.Fprintf(a.out, "%s [%s]: ", label, fallback)
	} else {
		fmt.Fprintf(a.out, "%s: ", label)
	}
	line, err := a.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return fallback, nil
	}
	return line, nil
}

func (a *App) password(label string) (string, error) {
	fmt.Fprintf(a.out, "%s: ", label)
	return a.readPassword()
}

// argOrPrompt returns args[i] when present and prompts otherwise.
func (a *App) argOrPrompt(args []string, i int, label string) (string, error) {
	if i < len(args) && strings.TrimSpace(args[i]) != "" {
		return args[i], nil
	}
	v, err := a.prompt(label, "")
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return v, nil
}

func readImage(path string) (apiclient.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return apiclient.File{}, err
	}
	if info.Size() > maxUploadBytes {
		return apiclient.File{}, fmt.Errorf("%s is larger than %d MiB", path, maxUploadBytes>>20)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return apiclient.File{}, err
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return apiclient.File{Name: filepath.Base(path), ContentType: contentType, Data: data}, nil
}
