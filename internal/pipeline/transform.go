package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"csvharvest/internal/filter"
	"csvharvest/internal/table"
)

// DefaultOutputFilename is the name of the processed file.
const DefaultOutputFilename = "processed_data.csv"

// Transformer filters and sorts the downloaded export and writes the result
// next to it.
type Transformer struct {
	Fs             afero.Fs
	OutputFilename string

	log *zap.Logger
}

// NewTransformer returns a Transformer over fs.
func NewTransformer(fs afero.Fs, outputFilename string, log *zap.Logger) *Transformer {
	if log == nil {
		log = zap.NewNop()
	}
	if outputFilename == "" {
		outputFilename = DefaultOutputFilename
	}
	return &Transformer{Fs: fs, OutputFilename: outputFilename, log: log}
}

// Transform loads downloadDir/sourceFilename, keeps the rows every rule in fm
// accepts, sorts them by sortColumn and writes downloadDir/OutputFilename.
// The source file is removed only once the output is in place. It returns
// the output path.
func (t *Transformer) Transform(downloadDir, sourceFilename string, fm filter.Map, sortColumn string) (string, error) {
	src := filepath.Join(downloadDir, sourceFilename)
	out := filepath.Join(downloadDir, t.OutputFilename)

	d, err := table.Load(t.Fs, src)
	if err != nil {
		return "", t.fail(err)
	}
	loaded := d.Len()

	if err := d.Apply(fm); err != nil {
		return "", t.fail(err)
	}
	if err := d.SortBy(sortColumn); err != nil {
		return "", t.fail(err)
	}
	if err := table.WriteFile(t.Fs, out, d); err != nil {
		return "", t.fail(err)
	}

	t.log.Info("transform complete",
		zap.String("source", src),
		zap.String("output", out),
		zap.Int("rows_in", loaded),
		zap.Int("rows_out", d.Len()),
	)

	if err := t.Fs.Remove(src); err != nil {
		return out, t.fail(fmt.Errorf("remove source: %w", err))
	}
	return out, nil
}

func (t *Transformer) fail(err error) error {
	return &StageError{Stage: StageTransform, Kind: DataFailure, Err: err}
}
