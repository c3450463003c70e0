package tasklet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	weatherconfig "github.com/tigerroll/weatheretl/internal/config"
	"github.com/tigerroll/weatheretl/internal/csvfile"
	"github.com/tigerroll/weatheretl/internal/domain/entity"
	"github.com/tigerroll/weatheretl/internal/normalize"
	"github.com/tigerroll/weatheretl/pkg/batch/adapter/storage"
	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

const exportModule = "exporter"

// ExportObjectKey is the step context key holding the uploaded object name.
const ExportObjectKey = "export.object"

const parquetContentType = "application/vnd.apache.parquet"

// ExportProperties are bound from the export step's tasklet properties.
type ExportProperties struct {
	// Compression is SNAPPY (default), GZIP or NONE.
	Compression string `yaml:"compression"`
}

// ExportTasklet uploads the processed rows as a Parquet object, partitioned by local date.
type ExportTasklet struct {
	baseTasklet
	cfg          weatherconfig.ExportConfig
	processedDir string
	codec        parquet.CompressionCodec
	resolver     storage.StorageConnectionResolver
	console      io.Writer
}

// NewExportTasklet creates an ExportTasklet.
func NewExportTasklet(cfg *weatherconfig.WeatherConfig, props ExportProperties, resolver storage.StorageConnectionResolver, console io.Writer) (*ExportTasklet, error) {
	codec, err := compressionCodec(props.Compression)
	if err != nil {
		return nil, exception.NewBatchError(exportModule, "invalid export compression", err, false, false)
	}
	return &ExportTasklet{
		baseTasklet:  newBaseTasklet(),
		cfg:          cfg.Export,
		processedDir: cfg.ProcessedDir,
		codec:        codec,
		resolver:     resolver,
		console:      console,
	}, nil
}

func compressionCodec(name string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(name) {
	case "SNAPPY", "":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", name)
	}
}

// ObjectName returns prefix/dt=YYYY-MM-DD/weather_YYYYMMDD_HHMM.parquet for the first row.
func ObjectName(prefix string, first entity.Observation) string {
	local := first.ObsTimestampLocal
	name := strings.TrimSuffix(csvfile.FileName(csvfile.RawPrefix, local), csvfile.Extension) + ".parquet"
	return path.Join(prefix, "dt="+local.Format("2006-01-02"), name)
}

// EncodeParquet writes rows as one Parquet row group.
func EncodeParquet(rows []entity.Observation, codec parquet.CompressionCodec) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(entity.ObservationParquet), int64(len(rows)))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = codec
	for _, row := range rows {
		if err := pw.Write(row.ToParquet()); err != nil {
			return nil, fmt.Errorf("failed to write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return buf, nil
}

// Execute is a no-op unless weather.export.enabled is set.
func (t *ExportTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	if !t.cfg.Enabled {
		logger.Infof("Parquet export is disabled; skipping.")
		return model.ExitStatusNoOp, nil
	}

	input, err := resolveInput(stepExecution, ProcessedPathKey, func() (string, error) {
		return normalize.LatestProcessed(t.processedDir)
	})
	if err != nil {
		return model.ExitStatusFailed, err
	}
	rows, err := csvfile.ReadRows(input)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	obs, err := normalize.Normalize(rows)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	stepExecution.ReadCount = len(obs)

	buf, err := EncodeParquet(obs, t.codec)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(exportModule, "failed to encode parquet", err, false, false)
	}

	conn, err := t.resolver.ResolveStorageConnection(ctx, t.cfg.StorageRef)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(exportModule, "failed to resolve storage '"+t.cfg.StorageRef+"'", err, false, false)
	}
	object := ObjectName(t.cfg.Prefix, obs[0])
	size := buf.Len()
	if err := conn.Upload(ctx, t.cfg.Bucket, object, buf, parquetContentType); err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(exportModule, "failed to upload "+object, err, false, exception.IsTemporary(err))
	}
	stepExecution.WriteCount = len(obs)
	t.ec.PutNested(ExportObjectKey, object)

	logger.Infof("Exported %d row(s) (%d bytes) to %s:%s.", len(obs), size, t.cfg.StorageRef, object)
	fmt.Fprintf(t.console, "Parquet export uploaded to: %s\n", object)
	return model.ExitStatusCompleted, nil
}

var _ port.Tasklet = (*ExportTasklet)(nil)
