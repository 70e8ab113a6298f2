package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mydailyprop/internal/engine"
	"github.com/sells-group/mydailyprop/internal/fetcher"
	"github.com/sells-group/mydailyprop/internal/llm"
	"github.com/sells-group/mydailyprop/internal/model"
)

// extractStage fetches the page and turns it into a Document with a single
// structured-extraction call. It emits no chunks.
func extractStage(f fetcher.Fetcher, gen llm.Generator) engine.StageFunc {
	schema := DocumentSchema()

	return func(ctx context.Context, in engine.Snapshot, _ engine.Emit) (engine.Update, error) {
		raw, err := f.Fetch(ctx, in.URL)
		if err != nil {
			return engine.Update{}, &engine.FetchError{URL: in.URL, Err: err}
		}

		data, err := gen.ExtractStructured(ctx, raw, schema)
		if err != nil {
			return engine.Update{}, &engine.ExtractionError{Err: err}
		}

		doc, err := decodeDocument(data)
		if err != nil {
			return engine.Update{}, &engine.ExtractionError{Err: err}
		}

		zap.L().Debug("pipeline: document extracted",
			zap.String("url", in.URL),
			zap.String("title", doc.Title),
			zap.String("outlet", doc.Outlet.String()),
			zap.Int("raw_len", len(raw)),
		)
		return engine.Update{Document: doc}, nil
	}
}

// decodeDocument parses the extraction result and checks it against the
// document's validation rules.
func decodeDocument(data json.RawMessage) (*model.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, eris.New("pipeline: empty extraction result")
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "pipeline: decode document")
	}

	doc.Title = strings.TrimSpace(doc.Title)
	doc.Outlet = model.Outlet(strings.TrimSpace(string(doc.Outlet)))
	doc.Date = strings.TrimSpace(doc.Date)
	doc.Language = strings.TrimSpace(doc.Language)
	doc.Lede = strings.TrimSpace(doc.Lede)
	doc.Body = strings.TrimSpace(doc.Body)

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
