package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/contech-ims/binsight/pkg/utils/logging"
)

// Write writes data and logs the failure instead of returning it. Meant
// for response bodies where the handler has nothing useful to do with a
// write error.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.From(ctx).Error("Failed to write", slog.Any("error", err))
	}
}
