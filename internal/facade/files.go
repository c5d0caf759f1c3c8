package facade

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
)

// FilePicker asks the user for a file path when a request carries none.
// Implementations return apperr.Cancelled when the user backs out.
type FilePicker interface {
	SavePath(ctx context.Context, defaultName string) (string, error)
	OpenPath(ctx context.Context) (string, error)
}

type noPicker struct{}

func (noPicker) SavePath(context.Context, string) (string, error) {
	return "", apperr.Validation("path is required")
}

func (noPicker) OpenPath(context.Context) (string, error) {
	return "", apperr.Validation("path is required")
}

type pathArgs struct {
	Path string `json:"path"`
}

// importSchema accepts any array of objects. Field-level problems are left
// to the reconciler so one bad record does not reject the file.
const importSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": { "type": "object" }
}`

var importValidator = jsonschema.MustCompileString("import.json", importSchema)

// ExportFileName is the suggested name for an export written at t
func ExportFileName(t time.Time) string {
	return "prompts-export-" + t.Format("2006-01-02") + ".json"
}

func (f *Facade) exportPrompts(ctx context.Context, raw json.RawMessage) (any, error) {
	var args pathArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	path := strings.TrimSpace(args.Path)
	if path == "" {
		var err error
		path, err = f.picker.SavePath(ctx, ExportFileName(f.now()))
		if err != nil {
			return nil, err
		}
	}

	prompts, err := f.store.ExportPrompts(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(prompts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	f.logger.Info("Exported prompts", zap.String("path", path), zap.Int("count", len(prompts)))
	return true, nil
}

func (f *Facade) importPrompts(ctx context.Context, raw json.RawMessage) (any, error) {
	var args pathArgs
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	path := strings.TrimSpace(args.Path)
	if path == "" {
		var err error
		path, err = f.picker.OpenPath(ctx)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	records, rejected, err := parseImport(data)
	if err != nil {
		return nil, err
	}

	stats, err := f.store.ImportPrompts(ctx, records)
	if err != nil {
		return nil, err
	}
	stats.Skipped += rejected
	f.logger.Info("Imported prompts",
		zap.String("path", path),
		zap.Int("imported", stats.Imported),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// parseImport checks the document shape and decodes each element on its
// own. Elements that do not decode are counted in rejected.
func parseImport(data []byte) ([]models.ImportRecord, int, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, 0, apperr.InvalidFormat("import file is not valid JSON: %v", err)
	}
	if err := importValidator.Validate(doc); err != nil {
		return nil, 0, apperr.InvalidFormat("import file must be a JSON array of prompt objects")
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, 0, apperr.InvalidFormat("import file must be a JSON array of prompt objects")
	}
	records := make([]models.ImportRecord, 0, len(elements))
	rejected := 0
	for _, el := range elements {
		var rec models.ImportRecord
		if err := json.Unmarshal(el, &rec); err != nil {
			rejected++
			continue
		}
		records = append(records, rec)
	}
	return records, rejected, nil
}
