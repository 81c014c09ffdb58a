package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type fileConfig struct {
	App     *fileApp    `json:"app"`
	IPC     *fileIPC    `json:"ipc"`
	GRPC    *fileListen `json:"grpc"`
	Metrics *fileListen `json:"metrics"`
	Host    *fileHost   `json:"host"`
}

type fileApp struct {
	ID *string `json:"id"`
}

type fileIPC struct {
	Socket *string `json:"socket"`
}

type fileListen struct {
	Listen *string `json:"listen"`
}

type fileHost struct {
	BackgroundWorkspace *string   `json:"background_workspace"`
	QueryTimeoutMS      *int      `json:"query_timeout_ms"`
	LockSources         *[]string `json:"lock_sources"`
}

// Parse decodes JSONC content over base and validates the result.
//
// Empty content yields base unchanged.
func Parse(content string, base Config) (Config, []Warning, error) {
	cfg := base
	if strings.TrimSpace(content) != "" {
		normalized, err := normalizeJSONC(content)
		if err != nil {
			return Config{}, nil, err
		}

		decoder := json.NewDecoder(strings.NewReader(normalized))
		decoder.DisallowUnknownFields()

		var payload fileConfig
		if err := decoder.Decode(&payload); err != nil {
			return Config{}, nil, withPosition(normalized, err)
		}
		if err := ensureSingleJSONValue(decoder); err != nil {
			return Config{}, nil, withPosition(normalized, err)
		}
		payload.applyTo(&cfg)
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload fileConfig) applyTo(cfg *Config) {
	if payload.App != nil && payload.App.ID != nil {
		cfg.App.ID = strings.TrimSpace(*payload.App.ID)
	}
	if payload.IPC != nil && payload.IPC.Socket != nil {
		cfg.IPC.Socket = strings.TrimSpace(*payload.IPC.Socket)
	}
	if payload.GRPC != nil && payload.GRPC.Listen != nil {
		cfg.GRPC.Listen = strings.TrimSpace(*payload.GRPC.Listen)
	}
	if payload.Metrics != nil && payload.Metrics.Listen != nil {
		cfg.Metrics.Listen = strings.TrimSpace(*payload.Metrics.Listen)
	}

	if payload.Host == nil {
		return
	}
	if payload.Host.BackgroundWorkspace != nil {
		cfg.Host.BackgroundWorkspace = strings.TrimSpace(*payload.Host.BackgroundWorkspace)
	}
	if payload.Host.QueryTimeoutMS != nil {
		cfg.Host.QueryTimeoutMS = *payload.Host.QueryTimeoutMS
	}
	if payload.Host.LockSources != nil {
		sources := make([]string, 0, len(*payload.Host.LockSources))
		for _, source := range *payload.Host.LockSources {
			source = strings.ToLower(strings.TrimSpace(source))
			if source == "" {
				continue
			}
			sources = append(sources, source)
		}
		cfg.Host.LockSources = sources
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra json.RawMessage
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

// withPosition prefixes decode errors that carry a byte offset with line/column.
func withPosition(content string, err error) error {
	var offset int64 = -1

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if offset < 0 {
		return err
	}

	line, col := lineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// lineCol maps a 1-based decoder offset to a 1-based line and column.
func lineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	prefix := content[:min(int(offset)-1, len(content))]
	line := strings.Count(prefix, "\n") + 1
	col := len(prefix) - strings.LastIndexByte(prefix, '\n')
	return line, col
}
