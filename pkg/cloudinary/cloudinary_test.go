package cloudinary

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPublicIDSanitizesName(t *testing.T) {
	at := time.Unix(1700000000, 0)

	require.Equal(t, "Exam-Schedule-2024-1700000000", PublicID("Exam Schedule_2024.pdf", at))
	require.Equal(t, "upload-1700000000", PublicID("...", at))
	require.Equal(t, "report-1700000000", PublicID("../../report.txt", at))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.ErrorIs(t, err, ErrMissingCredentials)
	require.False(t, Config{CloudName: "demo", APIKey: "key"}.Configured())
	require.True(t, Config{CloudName: "demo", APIKey: "key", APISecret: "secret"}.Configured())
}

func TestMemoryStorageKeepsContent(t *testing.T) {
	storage := NewMemoryStorage(zerolog.Nop())

	url, err := storage.Upload(context.Background(), "Timetable.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "memory://Timetable-"))
	require.True(t, strings.HasSuffix(url, ".png"))

	publicID := strings.TrimSuffix(strings.TrimPrefix(url, "memory://"), ".png")
	data, ok := storage.Object(publicID)
	require.True(t, ok)
	require.Equal(t, "png-bytes", string(data))

	_, ok = storage.Object("missing")
	require.False(t, ok)
}

func TestMemoryStorageHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStorage(zerolog.Nop()).Upload(ctx, "a.txt", strings.NewReader("x"))
	require.ErrorIs(t, err, context.Canceled)
}
