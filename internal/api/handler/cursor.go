package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/quangtm-dev/dirsubmit-be/internal/queue/storage"
)

// Cursors encode the keyset position inside the priority/creation ordering:
// base64("priority|createdAtNanos|jobID").

func DecodeJobCursor(cursorStr string) (*storage.JobCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var priority int
	if _, err := fmt.Sscanf(parts[0], "%d", &priority); err != nil {
		return nil, fmt.Errorf("invalid priority in cursor: %w", err)
	}

	var createdAt int64
	if _, err := fmt.Sscanf(parts[1], "%d", &createdAt); err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &storage.JobCursor{
		PriorityLevel: priority,
		CreatedAt:     time.Unix(0, createdAt),
		JobID:         parts[2],
	}, nil
}

func EncodeJobCursor(cursor *storage.JobCursor) string {
	cs := fmt.Sprintf("%d|%d|%s", cursor.PriorityLevel, cursor.CreatedAt.UnixNano(), cursor.JobID)
	return base64.StdEncoding.EncodeToString([]byte(cs))
}
