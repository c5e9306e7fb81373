package offline

import (
	"context"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

const exportVersion = 1

type exportFile struct {
	Version    int            `yaml:"version"`
	ExportedAt time.Time      `yaml:"exported_at"`
	Operations []exportRecord `yaml:"operations"`
}

type exportRecord struct {
	Operation `yaml:",inline"`
	Body      string `yaml:"body,omitempty"`
}

// Export writes every pending and dead operation to w as YAML, in queue
// order, so a replacement device can pick up where this one stopped.
func (q *Queue) Export(ctx context.Context, w io.Writer) (int, error) {
	file := exportFile{Version: exportVersion, ExportedAt: q.now().UTC()}
	for _, status := range []Status{StatusPending, StatusDead} {
		ops, err := q.store.List(ctx, status, 0)
		if err != nil {
			return 0, err
		}
		for _, op := range ops {
			file.Operations = append(file.Operations, exportRecord{Operation: *op, Body: string(op.Body)})
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&file); err != nil {
		return 0, fmt.Errorf("offline: export: %w", err)
	}
	return len(file.Operations), enc.Close()
}

// Import reads an export and adds its operations to the queue. Operations
// already present (same ID) are overwritten in place, so importing the same
// file twice does not duplicate writes.
func (q *Queue) Import(ctx context.Context, r io.Reader) (int, error) {
	var file exportFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return 0, fmt.Errorf("offline: import: %w", err)
	}
	if file.Version != exportVersion {
		return 0, fmt.Errorf("offline: import: unsupported version %d", file.Version)
	}

	ops := make([]*Operation, 0, len(file.Operations))
	for i := range file.Operations {
		rec := file.Operations[i]
		op := rec.Operation
		op.Body = []byte(rec.Body)
		if op.Status != StatusDead {
			op.Status = StatusPending
		}
		if op.CreatedAt.IsZero() {
			op.CreatedAt = file.ExportedAt
		}
		if err := op.validate(); err != nil {
			return 0, fmt.Errorf("offline: import: operation %d: %w", i+1, err)
		}
		ops = append(ops, &op)
	}
	for _, op := range ops {
		if err := q.store.Upsert(ctx, op); err != nil {
			return 0, err
		}
	}
	if len(ops) > 0 {
		q.signal()
	}
	return len(ops), nil
}
