package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"ndt-connect/internal/metrics"
	"ndt-connect/internal/models"
	s3service "ndt-connect/internal/services/s3"
	"ndt-connect/internal/utils"
)

const maxReportedErrors = 10

// ImportFiles reads and archives provider import files.
type ImportFiles interface {
	DownloadFile(ctx context.Context, bucket, key string) ([]byte, error)
	ArchiveImport(ctx context.Context, bucket, key string, failed bool) error
}

// ProviderWriter stores parsed provider rows.
type ProviderWriter interface {
	BulkUpsert(ctx context.Context, providers []*models.ProviderCreate) (*models.BulkInsertResult, error)
	CountByBatchID(ctx context.Context, batchID string) (int, error)
}

// CacheInvalidator drops the cached provider directory.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// ProviderImportHandler handles S3 events for provider directory uploads.
type ProviderImportHandler struct {
	files     ImportFiles
	providers ProviderWriter
	cache     CacheInvalidator
}

// NewProviderImportHandler creates a new import handler. cache may be nil.
func NewProviderImportHandler(files ImportFiles, providers ProviderWriter, cache CacheInvalidator) *ProviderImportHandler {
	return &ProviderImportHandler{files: files, providers: providers, cache: cache}
}

// ImportResult is the result of processing an import event.
type ImportResult struct {
	Message  string   `json:"message"`
	BatchID  string   `json:"batch_id,omitempty"`
	Files    int      `json:"files"`
	Inserted int      `json:"inserted"`
	Failed   int      `json:"failed"`
	Stored   int      `json:"stored"`
	Errors   []string `json:"errors,omitempty"`
}

// Handle processes S3 events for uploaded provider CSV files.
// Each record is processed independently; failures are joined into the returned error
// after the cache has been invalidated for the files that did import.
func (h *ProviderImportHandler) Handle(ctx context.Context, s3Event events.S3Event) (ImportResult, error) {
	logger := utils.GetLogger()

	result := ImportResult{BatchID: uuid.New().String()}
	var errs []error

	for _, record := range s3Event.Records {
		bucket := record.S3.Bucket.Name
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to decode S3 key %q: %w", record.S3.Object.Key, err))
			continue
		}

		if !strings.HasPrefix(key, s3service.ImportPrefix) || !strings.HasSuffix(strings.ToLower(key), ".csv") {
			logger.Info("Skipping non-import object", utils.String("key", key))
			continue
		}

		if err := h.importFile(ctx, bucket, key, &result); err != nil {
			logger.Error("Provider import failed", utils.String("key", key), utils.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		result.Files++
	}

	if result.Inserted > 0 {
		if h.cache != nil {
			if err := h.cache.Invalidate(ctx); err != nil {
				logger.Warn("Failed to invalidate provider cache", utils.Error(err))
			}
		}

		stored, err := h.providers.CountByBatchID(ctx, result.BatchID)
		if err != nil {
			logger.Warn("Failed to count imported providers", utils.String("batch_id", result.BatchID), utils.Error(err))
		}
		result.Stored = stored
	}

	if result.Files == 0 && len(errs) == 0 {
		result.Message = "No import files to process"
		return result, nil
	}

	if len(result.Errors) > maxReportedErrors {
		result.Errors = result.Errors[:maxReportedErrors]
	}
	result.Message = "Provider import processed"

	logger.Info("Provider import complete",
		utils.String("batch_id", result.BatchID),
		utils.Int("files", result.Files),
		utils.Int("inserted", result.Inserted),
		utils.Int("stored", result.Stored),
		utils.Int("failed", result.Failed),
		utils.Int("file_errors", len(errs)))

	return result, errors.Join(errs...)
}

// importFile checks, parses and stores one CSV. Only download and storage failures are
// returned; a file with an unusable header or no valid rows is archived under failed/.
func (h *ProviderImportHandler) importFile(ctx context.Context, bucket, key string, result *ImportResult) error {
	logger := utils.GetLogger()

	logger.Info("Processing provider import",
		utils.String("bucket", bucket),
		utils.String("key", key))

	content, err := h.files.DownloadFile(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("failed to download import: %w", err)
	}

	check, err := utils.CheckHeader(string(content))
	if err != nil {
		result.Errors = append(result.Errors, key+": "+err.Error())
		result.Failed++
		metrics.ProvidersImported.WithLabelValues("rejected").Inc()
		h.archive(ctx, bucket, key, true)
		return nil
	}
	if len(check.Ignored) > 0 {
		logger.Warn("Ignoring unknown import columns", utils.String("key", key), utils.Strings("columns", check.Ignored))
	}

	parser := utils.NewCSVParser()
	providers, parseErrors := parser.ParseProviders(string(content), result.BatchID)
	for _, e := range parseErrors {
		result.Errors = append(result.Errors, key+": "+e.Error())
	}
	result.Failed += len(parseErrors)
	metrics.ProvidersImported.WithLabelValues("rejected").Add(float64(len(parseErrors)))

	failed := len(providers) == 0
	if !failed {
		stored, err := h.providers.BulkUpsert(ctx, providers)
		if err != nil {
			return fmt.Errorf("failed to store providers: %w", err)
		}
		result.Inserted += stored.InsertedCount
		result.Failed += stored.FailedCount
		result.Errors = append(result.Errors, stored.Errors...)
		metrics.ProvidersImported.WithLabelValues("imported").Add(float64(stored.InsertedCount))
		metrics.ProvidersImported.WithLabelValues("rejected").Add(float64(stored.FailedCount))
	}

	h.archive(ctx, bucket, key, failed)
	return nil
}

func (h *ProviderImportHandler) archive(ctx context.Context, bucket, key string, failed bool) {
	if err := h.files.ArchiveImport(ctx, bucket, key, failed); err != nil {
		utils.GetLogger().Warn("Failed to archive import file", utils.String("key", key), utils.Error(err))
	}
}
