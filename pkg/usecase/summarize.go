package usecase

import (
	"context"
	_ "embed"
	"log/slog"
	"strings"

	"github.com/contech-ims/binsight/pkg/domain/interfaces"
	"github.com/contech-ims/binsight/pkg/domain/model"
	"github.com/contech-ims/binsight/pkg/utils/logging"
)

//go:embed prompt/summarize_system.md
var summarizeSystemPrompt string

// FailedSummary is stored when summary generation fails, so reruns can
// tell an attempted record from an untouched one.
const FailedSummary = "Summary generation failed"

// SummarizeUseCase fills in missing per-record CO summaries.
type SummarizeUseCase struct {
	chat interfaces.ChatClient
}

func NewSummarizeUseCase(chat interfaces.ChatClient) *SummarizeUseCase {
	return &SummarizeUseCase{chat: chat}
}

// SummarizeCO generates summaries for records that have extracted
// contents but no summary yet. It mutates co in place and returns how
// many records were updated. A single failed summary never aborts the
// run.
func (uc *SummarizeUseCase) SummarizeCO(ctx context.Context, co *model.COData) (int, error) {
	logger := logging.From(ctx)
	updated := 0

	for _, record := range co.Records {
		if record.Summary != "" {
			continue
		}
		if record.Contents == "" || record.Contents == model.ExtractionFailedSentinel {
			continue
		}

		summary, err := uc.chat.Generate(ctx,
			strings.TrimSpace(summarizeSystemPrompt),
			"Summarize the following CO document content concisely:\n\n"+record.Contents)
		if err != nil {
			if ctx.Err() != nil {
				return updated, ctx.Err()
			}
			logger.Warn("Failed to summarize CO record",
				slog.String("buildingID", co.BIN),
				slog.String("coNumber", record.Number),
				slog.Any("error", err))
			record.Summary = FailedSummary
			updated++
			continue
		}

		record.Summary = summary
		updated++
	}

	return updated, nil
}
