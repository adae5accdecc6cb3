package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/netsweep/netsweep/internal/errors"
)

// Queue is a filesystem spool directory of outgoing report envelopes.
// Envelopes become visible to consumers only after an atomic rename,
// so a half-written file is never picked up.
type Queue struct {
	dir string
}

// NewQueue opens the spool directory, creating it if needed.
func NewQueue(dir string) (*Queue, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.WrapReportError(errors.CodeQueue,
			"failed to create queue directory", err)
	}
	return &Queue{dir: dir}, nil
}

// Dir returns the spool directory path.
func (q *Queue) Dir() string {
	return q.dir
}

// Enqueue writes the envelope into the spool directory and returns the
// final file path.
func (q *Queue) Enqueue(env *Envelope) (string, error) {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", errors.WrapReportErrorWithID(errors.CodeQueue,
			"failed to encode report envelope", env.Report.ID.String(), err)
	}

	tmp, err := os.CreateTemp(q.dir, ".spool-*")
	if err != nil {
		return "", errors.WrapReportErrorWithID(errors.CodeQueue,
			"failed to create spool file", env.Report.ID.String(), err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.WrapReportErrorWithID(errors.CodeQueue,
			"failed to write spool file", env.Report.ID.String(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", errors.WrapReportErrorWithID(errors.CodeQueue,
			"failed to close spool file", env.Report.ID.String(), err)
	}

	name := fmt.Sprintf("%d-%s.json",
		env.Report.CreatedAt.UnixNano(), env.Report.ID)
	final := filepath.Join(q.dir, name)
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return "", errors.WrapReportErrorWithID(errors.CodeQueue,
			"failed to publish spool file", env.Report.ID.String(), err)
	}

	return final, nil
}
