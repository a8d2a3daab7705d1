package etl

import (
	"context"
	"errors"
	"fmt"

	"github.com/chtzvt/rekorslurp/internal/entry"
	"github.com/chtzvt/rekorslurp/internal/extractor"
	"github.com/chtzvt/rekorslurp/internal/rekor"
	"github.com/chtzvt/rekorslurp/internal/sink"
)

// StreamProcess processes envelopes from entries and writes the records to
// the sink. The object is opened on the first record, so a batch with no
// records produces no object. Entries that cannot be decoded or whose
// certificate cannot be parsed are logged and counted; transform and sink
// failures abort with an *EmitError.
func (p *Pipeline) StreamProcess(ctx context.Context, name string, entries <-chan rekor.Envelope) (BatchStats, error) {
	var (
		stats      BatchStats
		writer     sink.SinkWriter
		objName    string
		curBytes   int
		curRecs    int
		chunkNum   int = 1
		position   int
		needHeader bool
	)
	openChunk := func() (sink.SinkWriter, error) {
		objName = name
		if p.MaxChunkBytes > 0 || p.MaxChunkRecs > 0 {
			objName = fmt.Sprintf("%s.%04d", name, chunkNum)
		}
		if ext := p.Transformer.Extension(); ext != "" {
			objName += "." + ext
		}
		w, err := p.Sink.Open(ctx, objName)
		if err != nil {
			return nil, err
		}
		needHeader = true
		return w, nil
	}
	closeChunk := func() error {
		if writer != nil {
			if footer, _ := p.Transformer.Footer(); len(footer) > 0 {
				if _, err := writer.Write(footer); err != nil {
					writer.Close()
					return err
				}
			}
			return writer.Close()
		}
		return nil
	}
	abort := func(err error) (BatchStats, error) {
		if writer != nil {
			writer.Close()
		}
		return stats, err
	}

	for env := range entries {
		position++
		stats.Entries++
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		in, err := entry.Decode(env)
		if err != nil {
			stats.Failed++
			p.Logger.Printf("Error Parsing Entry #%d: %v", position, err)
			continue
		}
		rec, err := p.Extractor.ExtractInput(in)
		if errors.Is(err, extractor.ErrSkip) {
			stats.Skipped++
			continue
		}
		if err != nil {
			stats.Failed++
			p.Logger.Printf("Error Parsing Entry %d: %v", in.LogIndex, err)
			continue
		}

		data, err := p.Transformer.Transform(rec)
		if err != nil {
			return abort(&EmitError{Op: "transform", Name: name, Err: err})
		}

		if writer == nil {
			writer, err = openChunk()
			if err != nil {
				return stats, &EmitError{Op: "open", Name: objName, Err: err}
			}
			curBytes = 0
			curRecs = 0
			chunkNum++
		}
		if needHeader {
			if header, _ := p.Transformer.Header(); len(header) > 0 {
				if _, err := writer.Write(header); err != nil {
					return abort(&EmitError{Op: "header write", Name: objName, Err: err})
				}
			}
			needHeader = false
		}

		n, err := writer.Write(data)
		if err != nil {
			return abort(&EmitError{Op: "write", Name: objName, Err: err})
		}
		stats.Emitted++
		curBytes += n
		curRecs++

		// Should we rotate?
		rotate := false
		if p.MaxChunkBytes > 0 && curBytes >= p.MaxChunkBytes {
			rotate = true
		}
		if p.MaxChunkRecs > 0 && curRecs >= p.MaxChunkRecs {
			rotate = true
		}
		if rotate {
			err := closeChunk()
			writer = nil
			if err != nil {
				return stats, &EmitError{Op: "close", Name: objName, Err: err}
			}
		}
	}

	if writer != nil {
		err := closeChunk()
		writer = nil
		if err != nil {
			return stats, &EmitError{Op: "close", Name: objName, Err: err}
		}
	}
	return stats, nil
}
